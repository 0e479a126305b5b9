// Package dom implements the DOM's Node data model: a sum type of Text and
// Element nodes, with exclusive parent-owns-children ownership and a
// non-owning parent back-reference, splitting what would otherwise be a
// cyclic parent/child reference.
package dom

import "strings"

// Node is a closed tagged union. Exactly one of Text/Element fields is
// meaningful, selected by Kind, and callers are expected to match
// exhaustively on the Kind switch rather than grow open polymorphism.
type Kind int

const (
	TextKind Kind = iota
	ElementKind
)

// Node is never itself a pointer-to-interface; callers hold *Node.
type Node struct {
	Kind Kind

	// Text is valid when Kind == TextKind.
	Text string

	// Tag, Attributes, Children are valid when Kind == ElementKind.
	Tag        string
	Attributes map[string]string // lowercased keys
	Children   []*Node           // DOM order, observable

	// Parent is a non-owning back-reference, never an ownership edge.
	Parent *Node

	// ComputedStyle is filled in by the style resolver; empty until then.
	// Keys are lowercased CSS property names.
	ComputedStyle map[string]string

	// Focused is set on the currently focused <input> element.
	Focused bool
}

// NewText creates a detached text node. The tokenizer never produces
// whitespace-only text nodes; callers constructing nodes by hand should
// respect that too.
func NewText(text string) *Node {
	return &Node{Kind: TextKind, Text: text}
}

// NewElement creates a detached element node with lowercased tag and no
// children, attributes, or parent.
func NewElement(tag string) *Node {
	return &Node{
		Kind:       ElementKind,
		Tag:        strings.ToLower(tag),
		Attributes: make(map[string]string),
	}
}

// IsWhitespaceText reports whether n is a text node made only of whitespace.
func (n *Node) IsWhitespaceText() bool {
	return n.Kind == TextKind && strings.TrimSpace(n.Text) == ""
}

// GetAttribute returns the (present, value) pair for a lowercased attribute
// key. Absent key is distinguished from empty-string value.
func (n *Node) GetAttribute(key string) (string, bool) {
	if n.Kind != ElementKind {
		return "", false
	}
	v, ok := n.Attributes[strings.ToLower(key)]
	return v, ok
}

// SetAttribute sets a lowercased attribute key to value.
func (n *Node) SetAttribute(key, value string) {
	if n.Kind != ElementKind {
		return
	}
	if n.Attributes == nil {
		n.Attributes = make(map[string]string)
	}
	n.Attributes[strings.ToLower(key)] = value
}

// AppendChild attaches c as the last child of n. It panics if c is already
// attached to a parent — a child must be detached before being re-attached
// elsewhere.
func (n *Node) AppendChild(c *Node) {
	if c.Parent != nil {
		panic("dom: AppendChild called on an already-attached node")
	}
	n.Children = append(n.Children, c)
	c.Parent = n
}

// InsertBefore inserts newChild immediately before oldChild in n's
// children. If oldChild is nil, newChild is appended. Panics if newChild is
// already attached or oldChild is not a child of n.
func (n *Node) InsertBefore(newChild, oldChild *Node) {
	if newChild.Parent != nil {
		panic("dom: InsertBefore called on an already-attached node")
	}
	if oldChild == nil {
		n.AppendChild(newChild)
		return
	}
	idx := n.indexOf(oldChild)
	if idx < 0 {
		panic("dom: InsertBefore called with oldChild not a child of n")
	}
	n.Children = append(n.Children, nil)
	copy(n.Children[idx+1:], n.Children[idx:])
	n.Children[idx] = newChild
	newChild.Parent = n
}

// RemoveChild detaches c from n. Panics if c is not a child of n.
func (n *Node) RemoveChild(c *Node) {
	idx := n.indexOf(c)
	if idx < 0 {
		panic("dom: RemoveChild called with a non-child node")
	}
	n.Children = append(n.Children[:idx], n.Children[idx+1:]...)
	c.Parent = nil
}

// Detach removes n from its current parent, if any. It is the "detach"
// half of an atomic detach+attach move when reparenting a child across
// parents.
func (n *Node) Detach() {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func (n *Node) indexOf(c *Node) int {
	for i, ch := range n.Children {
		if ch == c {
			return i
		}
	}
	return -1
}

// ElementChildren returns the immediate Element children of n, excluding
// text nodes (used by the C10 "children" operation).
func (n *Node) ElementChildren() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == ElementKind {
			out = append(out, c)
		}
	}
	return out
}

// Walk calls fn for n and every descendant, depth-first pre-order.
func Walk(n *Node, fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// FindElements returns every descendant (including n) for which pred
// returns true, in document order.
func FindElements(n *Node, pred func(*Node) bool) []*Node {
	var out []*Node
	Walk(n, func(m *Node) {
		if m.Kind == ElementKind && pred(m) {
			out = append(out, m)
		}
	})
	return out
}
