package scripthost

import (
	"github.com/dpotapov/tinybrowser/internal/cssom"
	"github.com/dpotapov/tinybrowser/internal/dom"
	"github.com/dpotapov/tinybrowser/internal/htmlparse"
)

// resolve looks up an int handle (expr-lang arithmetic produces int/float
// values, never the Handle type itself) and reports ok == false for any
// stale or unknown handle — every operation below treats that as a silent
// no-op rather than a crash.
func (h *Host) resolve(handle int) (*dom.Node, bool) {
	return h.handles.Node(Handle(handle))
}

func (h *Host) querySelectorAll(sel string) []int {
	s := cssom.ParseSelector(sel)
	if s == nil {
		return nil
	}
	var out []int
	dom.Walk(h.root, func(n *dom.Node) {
		if n.Kind == dom.ElementKind && s.Matches(n) {
			out = append(out, int(h.handles.HandleFor(n)))
		}
	})
	return out
}

func (h *Host) getAttribute(handle int, key string) string {
	n, ok := h.resolve(handle)
	if !ok {
		return ""
	}
	v, _ := n.GetAttribute(key)
	return v
}

func (h *Host) setAttribute(handle int, key, val string) {
	n, ok := h.resolve(handle)
	if !ok {
		return
	}
	n.SetAttribute(key, val)
	h.mutate()
}

func (h *Host) innerHTML(handle int) string {
	n, ok := h.resolve(handle)
	if !ok {
		return ""
	}
	return dom.InnerHTML(n)
}

// setInnerHTML reparses html and replaces n's children atomically: the
// new subtree is fully built before any existing child is removed, so a
// parse failure never leaves n half-cleared.
func (h *Host) setInnerHTML(handle int, htmlText string) {
	n, ok := h.resolve(handle)
	if !ok || n.Kind != dom.ElementKind {
		return
	}
	fragment := fragmentBody(htmlparse.Parse(htmlText))
	newChildren := make([]*dom.Node, 0, len(fragment.Children))
	for _, c := range fragment.Children {
		c.Detach()
		newChildren = append(newChildren, c)
	}

	for _, c := range append([]*dom.Node{}, n.Children...) {
		n.RemoveChild(c)
	}
	for _, c := range newChildren {
		n.AppendChild(c)
	}
	h.mutate()
}

func (h *Host) outerHTML(handle int) string {
	n, ok := h.resolve(handle)
	if !ok {
		return ""
	}
	return dom.OuterHTML(n)
}

func (h *Host) children(handle int) []int {
	n, ok := h.resolve(handle)
	if !ok {
		return nil
	}
	elems := n.ElementChildren()
	out := make([]int, len(elems))
	for i, c := range elems {
		out[i] = int(h.handles.HandleFor(c))
	}
	return out
}

// createElement returns a detached node seeded with the UA default
// computed style, matching the inherited-default style a brand new
// element would get before it is ever attached to a styled tree.
func (h *Host) createElement(tag string) int {
	n := dom.NewElement(tag)
	n.ComputedStyle = cssom.DefaultComputedStyle()
	return int(h.handles.HandleFor(n))
}

// appendChild detaches child from any prior parent first, so a script
// moving an existing node never panics on dom.Node's attached-child
// invariant.
func (h *Host) appendChild(parentHandle, childHandle int) {
	parent, ok1 := h.resolve(parentHandle)
	child, ok2 := h.resolve(childHandle)
	if !ok1 || !ok2 {
		return
	}
	child.Detach()
	parent.AppendChild(child)
	h.mutate()
}

// insertBefore treats a zero oldChildHandle as "no reference child",
// i.e. append.
func (h *Host) insertBefore(parentHandle, newChildHandle, oldChildHandle int) {
	parent, ok1 := h.resolve(parentHandle)
	newChild, ok2 := h.resolve(newChildHandle)
	if !ok1 || !ok2 {
		return
	}
	newChild.Detach()
	var oldChild *dom.Node
	if oldChildHandle != 0 {
		var ok3 bool
		oldChild, ok3 = h.resolve(oldChildHandle)
		if !ok3 {
			return
		}
	}
	parent.InsertBefore(newChild, oldChild)
	h.mutate()
}

func (h *Host) removeChild(parentHandle, childHandle int) {
	parent, ok1 := h.resolve(parentHandle)
	child, ok2 := h.resolve(childHandle)
	if !ok1 || !ok2 {
		return
	}
	parent.RemoveChild(child)
	h.mutate()
}

func (h *Host) setStyle(handle int, style string) {
	n, ok := h.resolve(handle)
	if !ok {
		return
	}
	n.SetAttribute("style", style)
	h.mutate()
}

func (h *Host) addEventListener(handle int, typ, src string) {
	n, ok := h.resolve(handle)
	if !ok {
		return
	}
	name, err := h.registerCallable(src)
	if err != nil {
		return
	}
	nh := h.handles.HandleFor(n)
	if h.listeners[nh] == nil {
		h.listeners[nh] = make(map[string][]string)
	}
	h.listeners[nh][typ] = append(h.listeners[nh][typ], name)
}

func (h *Host) dispatchEvent(handle int, typ string) bool {
	return Dispatch(h, Handle(handle), typ)
}

// xhrSendSync blocks until the request completes, returning the response
// body (or "" on error/cross-origin denial).
func (h *Host) xhrSendSync(method, url, body string) string {
	if h.Fetcher == nil {
		return ""
	}
	_, respBody, err := h.Fetcher.FetchSync(method, url, body)
	if err != nil {
		return ""
	}
	return respBody
}

// xhrSendAsync enqueues the request and, on completion, registers and
// invokes onloadSrc on the tab's task runner with "status", "body", and
// "target" (targetHandle, the element the XHR is acting on behalf of, 0
// if unused) bound in its environment. A completion arriving after this
// context was discarded (the user navigated away mid-flight) never calls
// back.
func (h *Host) xhrSendAsync(method, url, body string, targetHandle int, onloadSrc string) {
	if h.Fetcher == nil {
		return
	}
	name, err := h.registerCallable(onloadSrc)
	if err != nil {
		return
	}
	h.Fetcher.FetchAsync(method, url, body, func(status int, respBody string, ferr error) {
		if h.handles.Discarded() {
			return
		}
		run := func() {
			_ = h.CallExposed(name, map[string]any{
				"status": status,
				"body":   respBody,
				"target": targetHandle,
			})
		}
		if h.Scheduler != nil {
			h.Scheduler.Enqueue(run)
		} else {
			run()
		}
	})
}

func (h *Host) setTimeoutFn(src string, ms int) {
	if h.Scheduler == nil {
		return
	}
	name, err := h.registerCallable(src)
	if err != nil {
		return
	}
	h.Scheduler.After(ms, func() {
		_ = h.CallExposed(name, nil)
	})
}

func (h *Host) requestAnimationFrame(src string) {
	if h.Scheduler == nil {
		return
	}
	name, err := h.registerCallable(src)
	if err != nil {
		return
	}
	h.Scheduler.AfterFrame(func() {
		_ = h.CallExposed(name, nil)
	})
}

func (h *Host) cookieGet() string {
	if h.Cookies == nil {
		return ""
	}
	return h.Cookies.ScriptReadable(h.Origin)
}

func (h *Host) cookieSet(raw string) {
	if h.Cookies == nil {
		return
	}
	_ = h.Cookies.SetCookieFromScript(h.Origin, raw)
}

// fragmentBody unwraps the implicit html>head,body wrapper htmlparse.Parse
// always produces, returning the body element whose children are the
// actual parsed fragment.
func fragmentBody(root *dom.Node) *dom.Node {
	for _, c := range root.Children {
		if c.Tag == "body" {
			return c
		}
	}
	return root
}
