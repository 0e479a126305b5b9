package scripthost

import (
	"fmt"
	"testing"

	"github.com/dpotapov/tinybrowser/internal/cssom"
	"github.com/dpotapov/tinybrowser/internal/htmlparse"
)

func buildHost(t *testing.T, html string) *Host {
	t.Helper()
	root := htmlparse.Parse(html)
	cssom.Resolve(root, nil)
	return NewHost(root)
}

func TestQuerySelectorAllFindsByTag(t *testing.T) {
	h := buildHost(t, `<div><p id="a">one</p><p id="b">two</p></div>`)
	handles := h.querySelectorAll("p")
	if len(handles) != 2 {
		t.Fatalf("got %d handles, want 2", len(handles))
	}
}

func TestSetAttributeTriggersMutate(t *testing.T) {
	h := buildHost(t, `<div id="x"></div>`)
	calls := 0
	h.OnMutate = func() { calls++ }

	handles := h.querySelectorAll("div")
	h.setAttribute(handles[0], "class", "active")

	if got, _ := h.resolve(handles[0]); got.Attributes["class"] != "active" {
		t.Fatalf("attribute not set")
	}
	if calls != 1 {
		t.Fatalf("OnMutate called %d times, want 1", calls)
	}
}

func TestStaleHandleAfterDiscardIsNoop(t *testing.T) {
	h := buildHost(t, `<div id="x"></div>`)
	handles := h.querySelectorAll("div")
	h.Discard()

	// None of these should panic or take effect.
	h.setAttribute(handles[0], "class", "active")
	if got := h.getAttribute(handles[0], "class"); got != "" {
		t.Fatalf("getAttribute after discard returned %q, want empty", got)
	}
}

func TestCreateElementAppendChildDetachesFromOldParent(t *testing.T) {
	h := buildHost(t, `<div id="a"></div><div id="b"></div>`)
	handles := h.querySelectorAll("div")
	a, b := handles[0], handles[1]

	child := h.createElement("span")
	h.appendChild(a, child)
	if len(h.children(a)) != 1 {
		t.Fatalf("expected span under a")
	}

	h.appendChild(b, child)
	if len(h.children(a)) != 0 {
		t.Fatalf("span still listed under a after move")
	}
	if len(h.children(b)) != 1 {
		t.Fatalf("span not moved under b")
	}
}

func TestSetInnerHTMLReplacesChildren(t *testing.T) {
	h := buildHost(t, `<div id="x"><p>old</p></div>`)
	handles := h.querySelectorAll("div")
	h.setInnerHTML(handles[0], `<span>new</span><span>new2</span>`)

	kids := h.children(handles[0])
	if len(kids) != 2 {
		t.Fatalf("got %d children, want 2", len(kids))
	}
}

func TestInnerHTMLEscapesAndSortsAttributes(t *testing.T) {
	h := buildHost(t, `<div id="x"><p class="a" id="b">a &amp; b</p></div>`)
	handle := h.querySelectorAll("div")[0]

	got := h.innerHTML(handle)
	want := `<p class="a" id="b">a &amp; b</p>`
	if got != want {
		t.Fatalf("innerHTML = %q, want %q", got, want)
	}
}

func TestOuterHTMLSelfClosingTagHasNoCloseTag(t *testing.T) {
	h := buildHost(t, `<div id="x"><br></div>`)
	brHandle := h.querySelectorAll("br")[0]

	got := h.outerHTML(brHandle)
	if got != "<br>" {
		t.Fatalf("outerHTML(<br>) = %q, want %q", got, "<br>")
	}
}

// A listener error must not abort dispatch: a later listener at the same
// level, and any registered on an ancestor, must still run.
func TestDispatchContinuesPastListenerError(t *testing.T) {
	h := buildHost(t, `<div id="outer"><a id="inner" href="/x">link</a></div>`)
	divHandle := h.querySelectorAll("div")[0]
	aHandle := h.querySelectorAll("a")[0]

	var logged []string
	h.Log = func(msg string) { logged = append(logged, msg) }

	h.addEventListener(aHandle, "click", `nonexistent_function_call()`)
	h.addEventListener(divHandle, "click", `event.PreventDefault()`)

	doDefault := h.dispatchEvent(aHandle, "click")
	if doDefault {
		t.Fatalf("doDefault = true, want false (div's listener ran and called preventDefault)")
	}
	if len(logged) != 1 {
		t.Fatalf("logged %d messages, want 1 (the a listener's error)", len(logged))
	}
}

// Event bubbling: an <a> nested in a <div>, each with a click listener.
// The div's listener calls stopPropagation but not preventDefault; the
// a's listener does neither. Default should still run since nothing
// called preventDefault, matching the "stopPropagation never suppresses a
// default already decided" rule.
func TestDispatchEventBubblesAndStopPropagationLeavesDefault(t *testing.T) {
	h := buildHost(t, `<div id="outer"><a id="inner" href="/x">link</a></div>`)
	divHandle := h.querySelectorAll("div")[0]
	aHandle := h.querySelectorAll("a")[0]

	h.addEventListener(aHandle, "click", `1`)
	h.addEventListener(divHandle, "click", `event.StopPropagation()`)

	doDefault := h.dispatchEvent(aHandle, "click")
	if !doDefault {
		t.Fatalf("doDefault = false, want true (nothing called preventDefault)")
	}
}

// Same tree, but the a's listener calls preventDefault. doDefault must
// flip false even though the div's listener (which still runs, since
// preventDefault alone does not stop bubbling) only calls stopPropagation.
func TestDispatchEventPreventDefaultFlipsDoDefaultAcrossLevels(t *testing.T) {
	h := buildHost(t, `<div id="outer"><a id="inner" href="/x">link</a></div>`)
	divHandle := h.querySelectorAll("div")[0]
	aHandle := h.querySelectorAll("a")[0]

	h.addEventListener(aHandle, "click", `event.PreventDefault()`)
	h.addEventListener(divHandle, "click", `event.StopPropagation()`)

	doDefault := h.dispatchEvent(aHandle, "click")
	if doDefault {
		t.Fatalf("doDefault = true, want false (a's listener called preventDefault)")
	}
}

func TestDispatchEventStopPropagationStopsFurtherBubbling(t *testing.T) {
	h := buildHost(t, `<div id="outer"><span id="mid"><a id="inner" href="/x">link</a></span></div>`)
	divHandle := h.querySelectorAll("div")[0]
	spanHandle := h.querySelectorAll("span")[0]
	aHandle := h.querySelectorAll("a")[0]

	h.addEventListener(spanHandle, "click", `event.StopPropagation()`)
	// This listener lives on div, an ancestor beyond span; it must never
	// run once span's listener stops propagation.
	h.addEventListener(divHandle, "click", `event.PreventDefault()`)

	doDefault := h.dispatchEvent(aHandle, "click")
	if !doDefault {
		t.Fatalf("doDefault = false, want true (div's listener must not have run)")
	}
}

type fakeFetcher struct {
	pending func(status int, body string, err error)
}

func (f *fakeFetcher) FetchSync(method, url, body string) (int, string, error) {
	return 200, "sync-body", nil
}

func (f *fakeFetcher) FetchAsync(method, url, body string, onDone func(status int, body string, err error)) {
	f.pending = onDone
}

type fakeScheduler struct {
	enqueued []func()
}

func (s *fakeScheduler) Enqueue(fn func())       { s.enqueued = append(s.enqueued, fn) }
func (s *fakeScheduler) After(ms int, fn func()) { fn() }
func (s *fakeScheduler) AfterFrame(fn func())    { fn() }

func TestAsyncXHRDroppedAfterDiscard(t *testing.T) {
	h := buildHost(t, `<div id="x"></div>`)
	fetcher := &fakeFetcher{}
	sched := &fakeScheduler{}
	h.Fetcher = fetcher
	h.Scheduler = sched

	handles := h.querySelectorAll("div")
	node, _ := h.resolve(handles[0]) // captured before discard invalidates the handle
	h.xhrSendAsync("GET", "http://example.com/data", "", handles[0], `setAttribute(target, "data-status", "ok")`)

	// Simulate navigating away before the response arrives.
	h.Discard()

	// Now the response arrives.
	fetcher.pending(200, `{"ok":true}`, nil)

	// The enqueued task, if run, must be a no-op: no panic, and the
	// attribute must remain unset.
	for _, fn := range sched.enqueued {
		fn()
	}
	if node.Attributes["data-status"] != "" {
		t.Fatalf("attribute set after discard: %q", node.Attributes["data-status"])
	}
}

// A setTimeout body has no implicit "target" binding the way an event
// listener or XHR onload does; a caller that wants one embeds the handle
// as a literal in the source text it hands to setTimeout, the way a
// templated callback would.
func TestSetTimeoutRunsCallableViaScheduler(t *testing.T) {
	h := buildHost(t, `<div id="x"></div>`)
	sched := &fakeScheduler{}
	h.Scheduler = sched

	handles := h.querySelectorAll("div")
	src := fmt.Sprintf(`setAttribute(%d, "data-fired", "yes")`, handles[0])
	h.setTimeoutFn(src, 0)

	got, _ := h.resolve(handles[0])
	if got.Attributes["data-fired"] != "yes" {
		t.Fatalf("setTimeout callback did not run")
	}
}
