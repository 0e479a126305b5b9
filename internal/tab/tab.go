// Package tab implements a single browser tab: navigation history, the
// script/style re-scan algorithm, CSP and Referrer-Policy enforcement, and
// the funnel from a loaded document through style/layout/paint. It wires
// together every other package in this module (htmlparse, cssom, layout,
// paint, scripthost, scheduler, httpclient, cookiejar) into one render
// loop, mirroring how dpotapov/pages.Handler wires a template engine, a
// router, and a response writer into one request-handling loop.
package tab

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dpotapov/tinybrowser/internal/cssom"
	"github.com/dpotapov/tinybrowser/internal/dom"
	"github.com/dpotapov/tinybrowser/internal/fontcache"
	"github.com/dpotapov/tinybrowser/internal/htmlparse"
	"github.com/dpotapov/tinybrowser/internal/httpclient"
	"github.com/dpotapov/tinybrowser/internal/layout"
	"github.com/dpotapov/tinybrowser/internal/paint"
	"github.com/dpotapov/tinybrowser/internal/scheduler"
	"github.com/dpotapov/tinybrowser/internal/scripthost"
	"github.com/dpotapov/tinybrowser/internal/weburl"
)

// ReferrerPolicy is one of the three Referrer-Policy values this core
// understands.
type ReferrerPolicy string

const (
	ReferrerNoReferrer ReferrerPolicy = "no-referrer"
	ReferrerSameOrigin ReferrerPolicy = "same-origin"
	ReferrerUnsafeURL  ReferrerPolicy = "unsafe-url" // default: send the full URL
)

// ParseReferrerPolicy maps a raw header value to a ReferrerPolicy,
// defaulting to sending the full referrer for anything unrecognized.
func ParseReferrerPolicy(raw string) ReferrerPolicy {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "no-referrer":
		return ReferrerNoReferrer
	case "same-origin":
		return ReferrerSameOrigin
	default:
		return ReferrerUnsafeURL
	}
}

func buildReferrer(policy ReferrerPolicy, from, to *weburl.URL) string {
	if from == nil {
		return ""
	}
	switch policy {
	case ReferrerNoReferrer:
		return ""
	case ReferrerSameOrigin:
		if to != nil && from.Origin() == to.Origin() {
			return from.String()
		}
		return ""
	default:
		return from.String()
	}
}

// parseCSP extracts the default-src directive's tokens from a
// Content-Security-Policy header. set is false when the header carried no
// default-src directive at all, meaning every origin is allowed. A token
// that parses as a URL is stored in its origin form (scheme://host:port),
// so "https://self.example/" matches requests to that origin; any other
// token is stored verbatim.
func parseCSP(header string) (origins map[string]bool, set bool) {
	for _, directive := range strings.Split(header, ";") {
		fields := strings.Fields(directive)
		if len(fields) == 0 || !strings.EqualFold(fields[0], "default-src") {
			continue
		}
		origins = make(map[string]bool, len(fields)-1)
		for _, tok := range fields[1:] {
			if tu, err := weburl.Parse(tok); err == nil {
				tok = tu.Origin()
			}
			origins[tok] = true
		}
		return origins, true
	}
	return nil, false
}

func allowedRequest(origins map[string]bool, set bool, u *weburl.URL) bool {
	if !set {
		return true
	}
	return origins[u.Origin()]
}

// HistoryEntry is one navigation in a Tab's history.
type HistoryEntry struct {
	URL    *weburl.URL
	Method string
	Body   string
}

// Tab owns one document's full pipeline: history, DOM, layout, display
// list, script context, and task runner. Every field is touched only from
// the UI thread; helper goroutines doing blocking XHR reach Tab state
// exclusively by enqueuing onto Runner (see internal/scheduler).
type Tab struct {
	client *httpclient.Client
	Logger *slog.Logger

	History      []HistoryEntry
	HistoryIndex int

	current *weburl.URL

	Root     *dom.Node
	Layout   *layout.Object
	Display  paint.DisplayList
	HitBoxes []layout.HitBox

	ScrollY   float64
	DocHeight float64
	Focus     *dom.Node

	loadedScripts    map[string]bool
	inlineScriptsRun map[*dom.Node]bool
	loadedStyles     map[*dom.Node][]cssom.Rule
	ExtraStyleRules  []cssom.Rule

	allowedOrigins    map[string]bool
	allowedOriginsSet bool
	ReferrerPolicy    ReferrerPolicy

	CertError bool
	Status    string

	Runner *scheduler.Runner
	Host   *scripthost.Host

	NeedsRender bool

	layoutCtx *layout.Context
}

// New creates an unnavigated Tab. client supplies the HTTP/1.0 wire
// transport and shared cookie jar; fonts is the drawing backend's font
// factory (the rasterizer itself is an external collaborator, per this
// module's out-of-scope list).
func New(client *httpclient.Client, fonts fontcache.Factory, logger *slog.Logger) *Tab {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	t := &Tab{
		client:           client,
		Logger:           logger,
		loadedScripts:    make(map[string]bool),
		inlineScriptsRun: make(map[*dom.Node]bool),
		loadedStyles:     make(map[*dom.Node][]cssom.Rule),
		Runner:           scheduler.NewRunner(),
		ReferrerPolicy:   ReferrerUnsafeURL,
	}
	t.layoutCtx = &layout.Context{Fonts: fontcache.NewCache(fonts), HitBoxes: &t.HitBoxes}
	return t
}

// CurrentURL returns the URL of the currently loaded document, or nil
// before the first navigation.
func (t *Tab) CurrentURL() *weburl.URL { return t.current }

// Navigate trims any forward history past the current entry, appends a
// new entry, and loads it.
func (t *Tab) Navigate(u *weburl.URL, method, body string) {
	if len(t.History) > 0 {
		t.History = t.History[:t.HistoryIndex+1]
	}
	t.History = append(t.History, HistoryEntry{URL: u, Method: method, Body: body})
	t.HistoryIndex = len(t.History) - 1
	t.load(u, method, body)
}

// Back restores the previous history entry, always as GET (a POSTed entry
// is never replayed). Reports whether there was a previous entry.
func (t *Tab) Back() bool {
	if t.HistoryIndex <= 0 {
		return false
	}
	t.HistoryIndex--
	t.load(t.History[t.HistoryIndex].URL, "GET", "")
	return true
}

// Forward restores the next history entry, always as GET.
func (t *Tab) Forward() bool {
	if t.HistoryIndex >= len(t.History)-1 {
		return false
	}
	t.HistoryIndex++
	t.load(t.History[t.HistoryIndex].URL, "GET", "")
	return true
}

// Reload re-fetches the current URL with GET, never re-POSTing.
func (t *Tab) Reload() {
	if t.current == nil {
		return
	}
	t.load(t.current, "GET", "")
}

// load performs one navigation: fetch, parse, discard the old script
// context, re-scan, style, layout, and paint. Network and certificate
// failures leave the previous document in place.
func (t *Tab) load(u *weburl.URL, method, body string) {
	referrer := buildReferrer(t.ReferrerPolicy, t.current, u)
	var origin string
	if t.current != nil {
		origin = t.current.Origin()
	}
	contentType := ""
	if body != "" {
		contentType = "application/x-www-form-urlencoded"
	}

	resp, err := t.client.Do(method, u, referrer, origin, body, contentType)
	if err != nil {
		var certErr *httpclient.CertError
		if errors.As(err, &certErr) {
			t.CertError = true
			t.Status = certErr.Error()
			return
		}
		t.Status = err.Error()
		return
	}

	t.CertError = false
	t.Status = fmt.Sprintf("%d", resp.Status)

	origins, set := parseCSP(resp.Header("content-security-policy"))
	refPolicy := ParseReferrerPolicy(resp.Header("referrer-policy"))
	root := htmlparse.Parse(resp.Body)

	if t.Host != nil {
		t.Host.Discard()
	}
	t.Runner.Close()
	t.Runner = scheduler.NewRunner()

	host := scripthost.NewHost(root)
	host.Origin = u.Origin()
	host.Cookies = t.client.Jar
	host.Scheduler = t.Runner
	host.Fetcher = &tabFetcher{tab: t}
	host.OnMutate = func() { t.NeedsRender = true }
	host.Log = func(msg string) { t.Logger.Warn("tab: script error", slog.String("error", msg)) }
	t.Host = host

	t.Root = root
	t.current = u
	t.allowedOrigins = origins
	t.allowedOriginsSet = set
	t.ReferrerPolicy = refPolicy
	t.loadedScripts = make(map[string]bool)
	t.inlineScriptsRun = make(map[*dom.Node]bool)
	t.loadedStyles = make(map[*dom.Node][]cssom.Rule)
	t.ExtraStyleRules = nil
	t.Focus = nil
	t.ScrollY = 0

	t.rescan()
	t.Render()
}

// rescan traverses every Element, fetching newly-seen <script src> and
// <link rel=stylesheet> resources and rebuilding ExtraStyleRules as the
// concatenation of every currently-present stylesheet link's rules, in
// document order (a removed link drops out automatically since it is no
// longer walked).
func (t *Tab) rescan() {
	var rules []cssom.Rule
	dom.Walk(t.Root, func(n *dom.Node) {
		if n.Kind != dom.ElementKind {
			return
		}
		switch n.Tag {
		case "script":
			t.rescanScript(n)
		case "link":
			if rel, ok := n.GetAttribute("rel"); ok && strings.EqualFold(rel, "stylesheet") {
				rules = append(rules, t.rescanStylesheet(n)...)
			}
		}
	})
	t.ExtraStyleRules = rules
}

func (t *Tab) rescanScript(n *dom.Node) {
	src, hasSrc := n.GetAttribute("src")
	if !hasSrc {
		if t.inlineScriptsRun[n] {
			return
		}
		t.inlineScriptsRun[n] = true
		body := inlineText(n)
		t.Runner.Enqueue(func() {
			if err := t.Host.Evaluate(body); err != nil {
				t.Logger.Warn("tab: inline script error", slog.Any("error", err))
			}
		})
		return
	}

	u, err := weburl.Resolve(t.current, src)
	if err != nil {
		return
	}
	key := u.String()
	if t.loadedScripts[key] {
		return
	}
	// Marked loaded regardless of outcome below, so a CSP-blocked or
	// failed fetch is never retried on a later rescan.
	t.loadedScripts[key] = true

	if !allowedRequest(t.allowedOrigins, t.allowedOriginsSet, u) {
		return
	}

	referrer := buildReferrer(t.ReferrerPolicy, t.current, u)
	resp, err := t.client.Do("GET", u, referrer, t.current.Origin(), "", "")
	if err != nil {
		t.Logger.Warn("tab: script fetch failed", slog.String("url", key), slog.Any("error", err))
		return
	}
	if !looksLikeText(resp.Body) {
		t.Logger.Warn("tab: rejecting non-text script body", slog.String("url", key), slog.String("sniffed", mimetype.Detect([]byte(resp.Body)).String()))
		return
	}
	body := resp.Body
	t.Runner.Enqueue(func() {
		if err := t.Host.Evaluate(body); err != nil {
			t.Logger.Warn("tab: script error", slog.String("url", key), slog.Any("error", err))
		}
	})
}

// rescanStylesheet fetches and parses a <link rel=stylesheet> the first
// time its node is seen; the parsed rules (or nil, on a blocked/failed
// fetch) are cached against the node and simply returned on every later
// scan, so a link present across renders is never re-fetched.
func (t *Tab) rescanStylesheet(n *dom.Node) []cssom.Rule {
	if rules, ok := t.loadedStyles[n]; ok {
		return rules
	}
	href, ok := n.GetAttribute("href")
	if !ok {
		t.loadedStyles[n] = nil
		return nil
	}
	u, err := weburl.Resolve(t.current, href)
	if err != nil {
		t.loadedStyles[n] = nil
		return nil
	}
	if !allowedRequest(t.allowedOrigins, t.allowedOriginsSet, u) {
		t.loadedStyles[n] = nil
		return nil
	}
	referrer := buildReferrer(t.ReferrerPolicy, t.current, u)
	resp, err := t.client.Do("GET", u, referrer, t.current.Origin(), "", "")
	if err != nil || !looksLikeText(resp.Body) {
		t.loadedStyles[n] = nil
		return nil
	}
	rules := cssom.ParseStylesheet(resp.Body)
	t.loadedStyles[n] = rules
	return rules
}

// looksLikeText sniffs a fetched script/stylesheet body and rejects
// anything mimetype doesn't classify as text, a safety net alongside the
// CSP allowed_request check: a subresource load isn't trusted just because
// its origin passed CSP.
func looksLikeText(body string) bool {
	return strings.HasPrefix(mimetype.Detect([]byte(body)).String(), "text/")
}

func inlineText(n *dom.Node) string {
	var b strings.Builder
	for _, c := range n.Children {
		if c.Kind == dom.TextKind {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// Render recomputes style, rebuilds the layout tree and display list from
// scratch, and clears NeedsRender. Calling it twice with no mutation in
// between produces the same display list.
func (t *Tab) Render() {
	cssom.Resolve(t.Root, t.ExtraStyleRules)
	t.HitBoxes = nil
	t.layoutCtx.HitBoxes = &t.HitBoxes
	t.Layout = layout.BuildDocument(t.Root, layout.DefaultWidth, t.layoutCtx)
	t.Display = layout.CollectDisplayList(t.Layout)
	t.DocHeight = t.Layout.H
	t.NeedsRender = false
}

// Tick drains one event-loop tick of deferred tasks and accumulated
// animation-frame callbacks, then re-renders if anything requested it.
// A UI loop calls this once per iteration.
func (t *Tab) Tick() {
	t.Runner.RunPending()
	t.Runner.RunFrame()
	if t.NeedsRender {
		t.Render()
	}
}

// Scroll adjusts ScrollY by dy, clamped to [0, DocHeight-viewportHeight].
func (t *Tab) Scroll(dy float64) {
	t.ScrollY += dy
	max := t.DocHeight - layout.DefaultHeight
	if max < 0 {
		max = 0
	}
	switch {
	case t.ScrollY < 0:
		t.ScrollY = 0
	case t.ScrollY > max:
		t.ScrollY = max
	}
}

// Click hit-tests (x, y) in viewport coordinates against the registered
// widget hit-boxes. A matching widget's native action (focus+clear,
// checkbox toggle, form submit, link navigation) runs only if no click
// listener called preventDefault.
func (t *Tab) Click(x, y float64) {
	absY := y + t.ScrollY
	for _, hb := range t.HitBoxes {
		r := hb.Rect
		if x < r.X || x > r.X+r.W || absY < r.Y || absY > r.Y+r.H {
			continue
		}
		doDefault := true
		if t.Host != nil {
			h := t.Host.HandleFor(hb.Node)
			doDefault = scripthost.Dispatch(t.Host, h, "click")
		}
		if doDefault {
			t.activateWidget(hb.Node)
		}
		return
	}
}

func (t *Tab) activateWidget(node *dom.Node) {
	switch {
	case node.Tag == "input" && attrIs(node, "type", "checkbox"):
		if _, checked := node.GetAttribute("checked"); checked {
			delete(node.Attributes, "checked")
		} else {
			node.SetAttribute("checked", "checked")
		}
	case node.Tag == "input":
		if t.Focus != nil {
			t.Focus.Focused = false
		}
		node.Focused = true
		t.Focus = node
		node.SetAttribute("value", "")
	case node.Tag == "button":
		t.submitForm(node)
	case node.Tag == "a":
		t.navigateLink(node)
	}
	t.NeedsRender = true
}

// navigateLink resolves an <a>'s href against the current URL and navigates
// to it. A missing or unresolvable href is a silent no-op, same as a form
// whose action fails to resolve.
func (t *Tab) navigateLink(node *dom.Node) {
	href, ok := node.GetAttribute("href")
	if !ok {
		return
	}
	u, err := weburl.Resolve(t.current, href)
	if err != nil {
		return
	}
	t.Navigate(u, "GET", "")
}

// Type appends s to the focused <input>'s value.
func (t *Tab) Type(s string) {
	if t.Focus == nil || t.Focus.Tag != "input" {
		return
	}
	cur, _ := t.Focus.GetAttribute("value")
	t.Focus.SetAttribute("value", cur+s)
	t.NeedsRender = true
}

// KeyEnter submits the focused input's nearest ancestor <form>, if any.
func (t *Tab) KeyEnter() {
	if t.Focus == nil {
		return
	}
	if form := closestAncestor(t.Focus, "form"); form != nil {
		t.submitForm(form)
	}
}

func (t *Tab) submitForm(node *dom.Node) {
	form := node
	if form.Tag != "form" {
		form = closestAncestor(node, "form")
	}
	if form == nil {
		return
	}
	action, _ := form.GetAttribute("action")
	method, _ := form.GetAttribute("method")
	u, err := weburl.Resolve(t.current, action)
	if err != nil {
		return
	}
	body := encodeForm(form)

	if strings.EqualFold(method, "post") {
		t.Navigate(u, "POST", body)
		return
	}
	if body != "" {
		sep := "?"
		if strings.Contains(u.Path, "?") {
			sep = "&"
		}
		withQuery := *u
		withQuery.Path = u.Path + sep + body
		u = &withQuery
	}
	t.Navigate(u, "GET", "")
}

func encodeForm(form *dom.Node) string {
	var parts []string
	dom.Walk(form, func(n *dom.Node) {
		if n.Kind != dom.ElementKind || n.Tag != "input" {
			return
		}
		name, ok := n.GetAttribute("name")
		if !ok {
			return
		}
		if attrIs(n, "type", "checkbox") {
			if _, checked := n.GetAttribute("checked"); !checked {
				return
			}
		}
		value, _ := n.GetAttribute("value")
		parts = append(parts, url.QueryEscape(name)+"="+url.QueryEscape(value))
	})
	return strings.Join(parts, "&")
}

func attrIs(n *dom.Node, key, want string) bool {
	v, ok := n.GetAttribute(key)
	return ok && strings.EqualFold(v, want)
}

func closestAncestor(n *dom.Node, tag string) *dom.Node {
	for p := n; p != nil; p = p.Parent {
		if p.Kind == dom.ElementKind && p.Tag == tag {
			return p
		}
	}
	return nil
}

// tabFetcher implements scripthost.Fetcher on behalf of a Tab: it resolves
// a script-supplied URL against the tab's current document, applies the
// same CSP/referrer/origin/cookie rules a subresource load would, and
// additionally enforces CORS (XHR, unlike subresource loads, fails loudly
// rather than being silently dropped).
type tabFetcher struct {
	tab *Tab
}

func (f *tabFetcher) resolve(rawURL string) (*weburl.URL, error) {
	u, err := weburl.Resolve(f.tab.current, rawURL)
	if err != nil {
		return nil, err
	}
	if !allowedRequest(f.tab.allowedOrigins, f.tab.allowedOriginsSet, u) {
		return nil, fmt.Errorf("tab: blocked by content security policy: %s", u.Origin())
	}
	return u, nil
}

func (f *tabFetcher) do(method string, u *weburl.URL, body string) (*httpclient.Response, error) {
	t := f.tab
	referrer := buildReferrer(t.ReferrerPolicy, t.current, u)
	contentType := ""
	if body != "" {
		contentType = "application/x-www-form-urlencoded"
	}
	resp, err := t.client.Do(method, u, referrer, t.current.Origin(), body, contentType)
	if err != nil {
		return nil, err
	}
	if u.Origin() != t.current.Origin() && !httpclient.CORSAllowed(resp, t.current.Origin()) {
		return nil, fmt.Errorf("tab: cross-origin request blocked: no Access-Control-Allow-Origin for %s", t.current.Origin())
	}
	return resp, nil
}

func (f *tabFetcher) FetchSync(method, rawURL, body string) (int, string, error) {
	u, err := f.resolve(rawURL)
	if err != nil {
		return 0, "", err
	}
	resp, err := f.do(method, u, body)
	if err != nil {
		return 0, "", err
	}
	return resp.Status, resp.Body, nil
}

func (f *tabFetcher) FetchAsync(method, rawURL, body string, onDone func(status int, respBody string, err error)) {
	u, err := f.resolve(rawURL)
	if err != nil {
		onDone(0, "", err)
		return
	}
	go func() {
		resp, err := f.do(method, u, body)
		if err != nil {
			onDone(0, "", err)
			return
		}
		onDone(resp.Status, resp.Body, nil)
	}()
}
