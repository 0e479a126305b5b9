// Package httpclient implements a minimal HTTP/1.0 wire client: manual
// request-line/header assembly and manual status-line/header-block
// parsing over a raw net.Conn (or crypto/tls.Conn for https), the same
// wire-level control original_source/browser.py's URL.request() has and
// net/http does not expose. Cookie-jar integration (Cookie request
// header, Set-Cookie response collection) is built in.
package httpclient

import (
	"bufio"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/dpotapov/tinybrowser/internal/cookiejar"
	"github.com/dpotapov/tinybrowser/internal/weburl"
)

// Response is a parsed HTTP/1.0 response.
type Response struct {
	Status     int
	Headers    map[string]string // lowercased keys, last one wins
	SetCookies []string          // every Set-Cookie header value, in response order
	Body       string
}

// Header returns a lowercased-key response header, or "" if absent.
func (r *Response) Header(key string) string {
	return r.Headers[strings.ToLower(key)]
}

// CertError reports a TLS certificate verification failure, distinguished
// from other network errors so a caller can set a cert_error flag and
// omit the lock indicator rather than surfacing a raw dial error.
type CertError struct {
	Err error
}

func (e *CertError) Error() string { return fmt.Sprintf("httpclient: certificate error: %v", e.Err) }
func (e *CertError) Unwrap() error { return e.Err }

// FatalHeaderError reports a response carrying Transfer-Encoding or
// Content-Encoding, both rejected outright: this load fails, but the tab
// and its other state are unaffected.
type FatalHeaderError struct {
	Header string
}

func (e *FatalHeaderError) Error() string {
	return fmt.Sprintf("httpclient: response carries unsupported %s", e.Header)
}

// Client issues raw HTTP/1.0 requests.
type Client struct {
	Jar    *cookiejar.Jar
	Logger *slog.Logger

	// InsecureSkipVerify disables certificate verification on https dials.
	// Off by default; a caller only sets it after a human has explicitly
	// chosen to proceed past a *CertError (e.g. the CLI's "proceed anyway"
	// prompt) — this field is the only route past a cert failure, there is
	// no per-request override.
	InsecureSkipVerify bool

	// dial is overridable in tests to avoid a real network connection.
	dial func(u *weburl.URL) (net.Conn, error)
}

func New(jar *cookiejar.Jar) *Client {
	c := &Client{
		Jar:    jar,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	c.dial = c.dialURL
	return c
}

// Do issues method against u. referrer and origin are the Referer/Origin
// header values ("" omits the header, per the caller's Referrer-Policy
// and same-origin decisions). body/contentType are only meaningful for a
// request carrying a body (POST).
func (c *Client) Do(method string, u *weburl.URL, referrer, origin, body, contentType string) (*Response, error) {
	dial := c.dial
	if dial == nil {
		dial = c.dialURL
	}
	conn, err := dial(u)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.0\r\n", method, u.Path)
	fmt.Fprintf(&b, "Host: %s\r\n", u.Host)
	if referrer != "" {
		fmt.Fprintf(&b, "Referer: %s\r\n", referrer)
	}
	if origin != "" {
		fmt.Fprintf(&b, "Origin: %s\r\n", origin)
	}
	if c.Jar != nil {
		// The jar's SameSite check compares origins, not full referrer URLs.
		refOrigin := ""
		if ru, err := weburl.Parse(referrer); err == nil {
			refOrigin = ru.Origin()
		}
		if cookie := c.Jar.CookieHeader(u.Origin(), method, refOrigin); cookie != "" {
			fmt.Fprintf(&b, "Cookie: %s\r\n", cookie)
		}
	}
	if body != "" {
		fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	}
	b.WriteString("\r\n")
	b.WriteString(body)

	if _, err := io.WriteString(conn, b.String()); err != nil {
		return nil, fmt.Errorf("httpclient: write request: %w", err)
	}

	resp, err := parseResponse(conn)
	if err != nil {
		return nil, err
	}

	if c.Jar != nil {
		for _, raw := range resp.SetCookies {
			if err := c.Jar.SetCookie(u.Origin(), raw); err != nil {
				c.Logger.Warn("httpclient: dropping malformed Set-Cookie", slog.String("raw", raw), slog.Any("error", err))
			}
		}
	}
	return resp, nil
}

// CORSAllowed reports whether resp's Access-Control-Allow-Origin permits a
// cross-origin XHR whose requesting tab's origin is tabOrigin: the header
// must be exactly "*" or exactly tabOrigin, no path/scheme globbing.
func CORSAllowed(resp *Response, tabOrigin string) bool {
	allow := resp.Header("access-control-allow-origin")
	return allow == "*" || allow == tabOrigin
}

func (c *Client) dialURL(u *weburl.URL) (net.Conn, error) {
	addr := net.JoinHostPort(u.Host, strconv.Itoa(u.Port))
	if u.Scheme != weburl.HTTPS {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("httpclient: dial: %w", err)
		}
		return conn, nil
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: u.Host, InsecureSkipVerify: c.InsecureSkipVerify})
	if err != nil {
		if isCertError(err) {
			return nil, &CertError{Err: err}
		}
		return nil, fmt.Errorf("httpclient: tls dial: %w", err)
	}
	return conn, nil
}

func isCertError(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	return errors.As(err, &unknownAuth) || errors.As(err, &hostErr) || errors.As(err, &invalidErr)
}

// parseResponse reads the status line and header block from r, then the
// remainder as the body, rejecting Transfer-Encoding/Content-Encoding
// outright as original_source/browser.py's request() does via assert.
func parseResponse(r io.Reader) (*Response, error) {
	br := bufio.NewReader(r)

	statusLine, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("httpclient: read status line: %w", err)
	}
	parts := strings.SplitN(strings.TrimRight(statusLine, "\r\n"), " ", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("httpclient: malformed status line %q", statusLine)
	}
	status, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("httpclient: malformed status code in %q: %w", statusLine, err)
	}

	headers := make(map[string]string)
	var setCookies []string
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("httpclient: read headers: %w", err)
		}
		if strings.TrimRight(line, "\r\n") == "" {
			break
		}
		kv := strings.SplitN(strings.TrimRight(line, "\r\n"), ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])
		if key == "set-cookie" {
			setCookies = append(setCookies, val)
			continue
		}
		headers[key] = val
	}

	if _, ok := headers["transfer-encoding"]; ok {
		return nil, &FatalHeaderError{Header: "Transfer-Encoding"}
	}
	if _, ok := headers["content-encoding"]; ok {
		return nil, &FatalHeaderError{Header: "Content-Encoding"}
	}

	bodyBytes, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	return &Response{
		Status:     status,
		Headers:    headers,
		SetCookies: setCookies,
		Body:       string(bodyBytes),
	}, nil
}
