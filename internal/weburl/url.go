// Package weburl implements a deliberately small subset of URL parsing and
// resolution: absolute/relative references over http/https, with default
// ports and the small resolve() grammar used by the tab lifecycle to follow
// links and fetch subresources.
package weburl

import (
	"fmt"
	"strconv"
	"strings"
)

// Scheme is one of the two schemes the core understands.
type Scheme string

const (
	HTTP  Scheme = "http"
	HTTPS Scheme = "https"
)

// DefaultPort returns the scheme's default port, or 0 if the scheme is not
// recognized.
func (s Scheme) DefaultPort() int {
	switch s {
	case HTTP:
		return 80
	case HTTPS:
		return 443
	default:
		return 0
	}
}

// URL is a { scheme, host, port, path } tuple.
type URL struct {
	Scheme Scheme
	Host   string
	Port   int
	Path   string

	// portExplicit records whether the source text carried an explicit
	// ":port". String() does not consult it: the port is omitted whenever
	// it equals the scheme's default.
	portExplicit bool
}

// Parse parses an absolute URL of the form scheme://host[:port][path].
func Parse(s string) (*URL, error) {
	schemeRest := strings.SplitN(s, "://", 2)
	if len(schemeRest) != 2 {
		return nil, fmt.Errorf("weburl: missing scheme in %q", s)
	}
	scheme := Scheme(strings.ToLower(schemeRest[0]))
	if scheme != HTTP && scheme != HTTPS {
		return nil, fmt.Errorf("weburl: unsupported scheme %q", schemeRest[0])
	}

	rest := schemeRest[1]
	hostPort := rest
	path := "/"
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		hostPort = rest[:i]
		path = rest[i:]
	}
	if hostPort == "" {
		return nil, fmt.Errorf("weburl: missing host in %q", s)
	}

	u := &URL{Scheme: scheme, Path: path}
	if i := strings.IndexByte(hostPort, ':'); i >= 0 {
		u.Host = hostPort[:i]
		port, err := strconv.Atoi(hostPort[i+1:])
		if err != nil {
			return nil, fmt.Errorf("weburl: bad port in %q: %w", s, err)
		}
		u.Port = port
		u.portExplicit = true
	} else {
		u.Host = hostPort
		u.Port = scheme.DefaultPort()
	}
	return u, nil
}

// Origin returns scheme://host:port verbatim, the cookie-jar and
// same-origin key.
func (u *URL) Origin() string {
	return fmt.Sprintf("%s://%s:%d", u.Scheme, u.Host, u.Port)
}

// String renders the URL, omitting the port when it equals the scheme's
// default.
func (u *URL) String() string {
	var b strings.Builder
	b.WriteString(string(u.Scheme))
	b.WriteString("://")
	b.WriteString(u.Host)
	if u.Port != u.Scheme.DefaultPort() {
		fmt.Fprintf(&b, ":%d", u.Port)
	}
	b.WriteString(u.Path)
	return b.String()
}

// Resolve implements an HTML <a href> / <link href>-style resolve(base, s)
// grammar:
//   - absolute if "://" is present
//   - "//host/…" adopts the base scheme
//   - "/path" replaces the base path
//   - "../x" pops a directory per leading ".."
//   - otherwise it appends to the base directory
func Resolve(base *URL, s string) (*URL, error) {
	if strings.Contains(s, "://") {
		return Parse(s)
	}
	if strings.HasPrefix(s, "//") {
		return Parse(string(base.Scheme) + ":" + s)
	}
	if strings.HasPrefix(s, "/") {
		u := *base
		u.Path = s
		u.portExplicit = base.portExplicit
		return &u, nil
	}

	dir, _ := splitDir(base.Path)
	for strings.HasPrefix(s, "../") {
		s = s[len("../"):]
		dir = popDir(dir)
	}
	if s == ".." {
		s = ""
		dir = popDir(dir)
	}

	u := *base
	u.Path = joinDir(dir, s)
	u.portExplicit = base.portExplicit
	return &u, nil
}

// splitDir returns the directory (with trailing slash) and file-name part
// of a path.
func splitDir(path string) (dir, file string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "/", path
	}
	return path[:i+1], path[i+1:]
}

// popDir removes the last path segment from a directory, per leading "..".
func popDir(dir string) string {
	trimmed := strings.TrimSuffix(dir, "/")
	i := strings.LastIndexByte(trimmed, '/')
	if i < 0 {
		return "/"
	}
	return trimmed[:i+1]
}

func joinDir(dir, file string) string {
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return dir + file
}
