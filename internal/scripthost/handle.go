// Package scripthost implements the DOM bridge and scripting host: an
// opaque Handle scheme over *dom.Node, an event dispatch algorithm with
// bubbling and preventDefault/stopPropagation, and the script-exposed
// operation table (querySelectorAll, attribute/innerHTML access,
// tree mutation, addEventListener/dispatchEvent, XMLHttpRequest,
// setTimeout/requestAnimationFrame, document.cookie), backed by
// github.com/expr-lang/expr as the script evaluator.
package scripthost

import "github.com/dpotapov/tinybrowser/internal/dom"

// Handle is an opaque, script-facing integer identifying a DOM node. Zero
// is never allocated and is used as a "no handle" sentinel.
type Handle int

// HandleTable is the two-way node<->handle mapping one script context
// owns. Handles are monotonically increasing and stable for the life of
// the context. Navigating away from a page discards the context by
// flipping Discarded rather than clearing the tables, so a handle a
// still-running callback is holding keeps resolving to nil safely instead
// of looking like a brand new, unrelated node.
type HandleTable struct {
	next         Handle
	nodeToHandle map[*dom.Node]Handle
	handleToNode map[Handle]*dom.Node
	discarded    bool
}

func NewHandleTable() *HandleTable {
	return &HandleTable{
		next:         1,
		nodeToHandle: make(map[*dom.Node]Handle),
		handleToNode: make(map[Handle]*dom.Node),
	}
}

// HandleFor returns the stable handle for node, allocating one on first
// use.
func (t *HandleTable) HandleFor(node *dom.Node) Handle {
	if h, ok := t.nodeToHandle[node]; ok {
		return h
	}
	h := t.next
	t.next++
	t.nodeToHandle[node] = h
	t.handleToNode[h] = node
	return h
}

// Node resolves a handle back to its node. It reports ok == false for a
// stale, unknown, or zero handle, and always once the table has been
// discarded — callers must treat that as a no-op, never a crash.
func (t *HandleTable) Node(h Handle) (*dom.Node, bool) {
	if t.discarded || h == 0 {
		return nil, false
	}
	n, ok := t.handleToNode[h]
	return n, ok
}

// Discard marks every handle in the table permanently unresolvable. It
// never clears the maps, so the only effect is Node always failing.
func (t *HandleTable) Discard() {
	t.discarded = true
}

// Discarded reports whether Discard has been called.
func (t *HandleTable) Discarded() bool {
	return t.discarded
}
