package layout

import "github.com/dpotapov/tinybrowser/internal/dom"

// BuildDocument builds the whole layout tree for root (the DOM's <html>
// element) and returns its DocumentLayout. Widget hit boxes are appended to
// ctx.HitBoxes as a side effect.
func BuildDocument(root *dom.Node, width float64, ctx *Context) *Object {
	doc := &Object{
		Kind: KindDocument,
		Node: root,
		X:    HStep,
		Y:    VStep,
		W:    width - 2*HStep,
	}
	child := buildBlock(root, doc, nil, ctx)
	doc.Children = []*Object{child}
	doc.H = child.H
	return doc
}

// buildBlock builds a BlockLayout for node, positioned after prevSibling (or
// at the parent's own y if prevSibling is nil): each child inherits the
// parent's x and width, and its y is the previous sibling's y+height, or
// the parent's y for the first child.
func buildBlock(node *dom.Node, parent *Object, prevSibling *Object, ctx *Context) *Object {
	b := &Object{
		Kind:   KindBlock,
		Node:   node,
		Parent: parent,
		X:      parent.X,
		W:      parent.W,
	}
	if prevSibling != nil {
		b.Y = prevSibling.Y + prevSibling.H
	} else {
		b.Y = parent.Y
	}

	if Mode(node) == "block" {
		layoutBlockChildren(b, node, ctx)
	} else {
		layoutInline(b, node, ctx)
	}

	paintBackground(b, node)
	return b
}

// layoutBlockChildren recurses into every child of node (text or element
// alike — a BlockLayout wrapping a bare Text node falls into inline mode
// on its own, per Mode()), stacking them vertically, and sums their
// heights.
func layoutBlockChildren(b *Object, node *dom.Node, ctx *Context) {
	var prev *Object
	for _, c := range node.Children {
		if c.Kind == dom.TextKind && c.IsWhitespaceText() {
			continue
		}
		child := buildBlock(c, b, prev, ctx)
		b.Children = append(b.Children, child)
		prev = child
	}

	if len(b.Children) == 0 {
		b.H = VStep // "or a single line-height if empty"
		return
	}
	last := b.Children[len(b.Children)-1]
	b.H = last.Y + last.H - b.Y
}

// paintBackground emits a DrawRRect background primitive for an Element
// with a non-transparent background-color.
func paintBackground(b *Object, node *dom.Node) {
	if node.Kind != dom.ElementKind || node.ComputedStyle == nil {
		return
	}
	bg := node.ComputedStyle["background-color"]
	if bg == "" || bg == "transparent" {
		return
	}
	radius := resolveRadius(node.ComputedStyle["border-radius"], b.W, b.H)
	rect := paintRect(b)
	b.Display = append(paintRRect(rect, bg, radius), b.Display...)
}
