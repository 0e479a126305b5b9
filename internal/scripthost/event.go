package scripthost

import "fmt"

// Event is the mutable object shared by every listener invoked during one
// Dispatch call.
type Event struct {
	Type   string
	Target Handle

	stopped          bool
	defaultPrevented bool
}

// PreventDefault suppresses the native default action (form submission,
// link navigation, checkbox toggle, caret placement) for this dispatch.
// It does not stop the event from continuing to bubble.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// StopPropagation stops the event from bubbling to further ancestors once
// the current level's listeners have all run. It does not suppress the
// default action for levels already visited.
func (e *Event) StopPropagation() { e.stopped = true }

// Dispatch runs every listener registered for (target, typ) on target
// itself, then on each ancestor in turn, stopping after the first level at
// which some listener called StopPropagation. It returns doDefault: false
// if any listener at any visited level called PreventDefault, true
// otherwise — native code should skip the default action when doDefault
// is false. A listener error is logged once (via h.Log) and does not abort
// the walk: remaining listeners at this level and further ancestor levels
// still run.
func Dispatch(h *Host, target Handle, typ string) (doDefault bool) {
	doDefault = true

	node, ok := h.handles.Node(target)
	if !ok {
		return true
	}

	evt := &Event{Type: typ, Target: target}
	for n := node; n != nil; n = n.Parent {
		nh := h.handles.HandleFor(n)
		for _, name := range h.listenersFor(nh, typ) {
			if err := h.callListener(name, evt); err != nil {
				if h.Log != nil {
					h.Log(fmt.Sprintf("scripthost: %s listener error: %v", typ, err))
				}
				continue
			}
		}
		if evt.defaultPrevented {
			doDefault = false
		}
		if evt.stopped {
			break
		}
	}
	return doDefault
}
