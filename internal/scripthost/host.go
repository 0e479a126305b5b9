package scripthost

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/dpotapov/tinybrowser/internal/dom"
)

// Fetcher performs the network operations XMLHttpRequest needs. It is
// implemented by the tab's HTTP client and injected so this package
// carries no network dependency of its own.
type Fetcher interface {
	FetchSync(method, url, body string) (status int, respBody string, err error)
	FetchAsync(method, url, body string, onDone func(status int, respBody string, err error))
}

// Scheduler queues work onto the tab's per-tab task runner. It is
// implemented by internal/scheduler.
type Scheduler interface {
	Enqueue(fn func())
	After(ms int, fn func())
	AfterFrame(fn func())
}

// CookieStore backs document.cookie. It is implemented by
// internal/cookiejar.
type CookieStore interface {
	ScriptReadable(origin string) string
	SetCookieFromScript(origin, raw string) error
}

// Host is one page's script context: a handle table, the listener
// registry, a callable table of compiled expr-lang programs, and the
// injected collaborators a script-exposed operation may need. A Host is
// created fresh on every navigation and discarded (never reused) when the
// tab navigates away.
type Host struct {
	mu sync.Mutex

	root    *dom.Node
	handles *HandleTable

	listeners map[Handle]map[string][]string
	callables map[string]*vm.Program
	nextID    int

	Cookies   CookieStore
	Origin    string
	Fetcher   Fetcher
	Scheduler Scheduler

	// OnMutate is invoked after any script-driven tree or attribute
	// mutation; the tab wires this to its rescan/restyle/layout/redraw
	// funnel.
	OnMutate func()

	// Log receives one line per caught script runtime error; the tab
	// wires this into the ambient logging stack.
	Log func(msg string)
}

// NewHost creates a script context bound to the document rooted at root.
func NewHost(root *dom.Node) *Host {
	return &Host{
		root:      root,
		handles:   NewHandleTable(),
		listeners: make(map[Handle]map[string][]string),
		callables: make(map[string]*vm.Program),
	}
}

// DocumentHandle returns the handle for the document's root element.
func (h *Host) DocumentHandle() Handle {
	return h.handles.HandleFor(h.root)
}

// HandleFor exposes the handle table's allocation to callers outside the
// package (the tab needs it to hand a click or keypress target to
// dispatchEvent).
func (h *Host) HandleFor(n *dom.Node) Handle {
	return h.handles.HandleFor(n)
}

// Discard invalidates every handle this context has ever issued. Scripts
// still in flight (a pending setTimeout, an async XHR onload) see every
// subsequent handle lookup fail and become a no-op rather than touching a
// node that belongs to a page the user has already navigated away from.
func (h *Host) Discard() {
	h.handles.Discard()
}

// Evaluate compiles and runs a <script> body once, discarding its result.
// It is a no-op once the context is discarded.
func (h *Host) Evaluate(source string) error {
	if h.handles.Discarded() {
		return nil
	}
	prog, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		h.logErr(err)
		return err
	}
	_, err = expr.Run(prog, h.env(nil))
	if err != nil {
		h.logErr(err)
	}
	return err
}

// registerCallable compiles src once and files it under a fresh synthetic
// name, returning that name for later invocation via callListener/
// CallExposed. This is how addEventListener/setTimeout/requestAnimationFrame/
// XMLHttpRequest onload bodies are "registered" against the host: a
// callback in this scripting model is a literal expression body, compiled
// once up front and re-run against a fresh environment per invocation —
// the same compile-once-run-many shape chtml/expr.go and
// chtml/component.go use for their own expr-lang callbacks.
func (h *Host) registerCallable(src string) (string, error) {
	prog, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		h.logErr(err)
		return "", err
	}
	h.mu.Lock()
	h.nextID++
	name := fmt.Sprintf("callable#%d", h.nextID)
	h.callables[name] = prog
	h.mu.Unlock()
	return name, nil
}

// CallExposed runs a previously registered callable by name, merging
// extra bindings (e.g. "event" for a listener, "status"/"body" for an XHR
// onload) into its environment. Missing or stale names — including every
// name once the context is discarded — are a silent no-op.
func (h *Host) CallExposed(name string, extra map[string]any) error {
	if h.handles.Discarded() {
		return nil
	}
	h.mu.Lock()
	prog, ok := h.callables[name]
	h.mu.Unlock()
	if !ok {
		return nil
	}
	_, err := expr.Run(prog, h.env(extra))
	if err != nil {
		h.logErr(err)
	}
	return err
}

func (h *Host) callListener(name string, evt *Event) error {
	return h.CallExposed(name, map[string]any{"event": evt})
}

func (h *Host) listenersFor(target Handle, typ string) []string {
	byType := h.listeners[target]
	if byType == nil {
		return nil
	}
	return byType[typ]
}

func (h *Host) logErr(err error) {
	if h.Log != nil {
		h.Log(fmt.Sprintf("scripthost: %v", err))
	}
}

func (h *Host) mutate() {
	if h.OnMutate != nil {
		h.OnMutate()
	}
}

// env builds the environment map a script body or registered callable
// runs against: the full script-exposed operation table plus whatever
// call-specific bindings extra supplies.
func (h *Host) env(extra map[string]any) map[string]any {
	e := map[string]any{
		"document":              int(h.DocumentHandle()),
		"querySelectorAll":      h.querySelectorAll,
		"getAttribute":          h.getAttribute,
		"setAttribute":          h.setAttribute,
		"innerHTML":             h.innerHTML,
		"setInnerHTML":          h.setInnerHTML,
		"outerHTML":             h.outerHTML,
		"children":              h.children,
		"createElement":         h.createElement,
		"appendChild":           h.appendChild,
		"insertBefore":          h.insertBefore,
		"removeChild":           h.removeChild,
		"setStyle":              h.setStyle,
		"addEventListener":      h.addEventListener,
		"dispatchEvent":         h.dispatchEvent,
		"xhrSendSync":           h.xhrSendSync,
		"xhrSendAsync":          h.xhrSendAsync,
		"setTimeout":            h.setTimeoutFn,
		"requestAnimationFrame": h.requestAnimationFrame,
		"cookieGet":             h.cookieGet,
		"cookieSet":             h.cookieSet,
	}
	for k, v := range extra {
		e[k] = v
	}
	return e
}
