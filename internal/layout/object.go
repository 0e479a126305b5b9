package layout

import (
	"strconv"
	"strings"

	"github.com/dpotapov/tinybrowser/internal/dom"
	"github.com/dpotapov/tinybrowser/internal/fontcache"
	"github.com/dpotapov/tinybrowser/internal/paint"
)

// Object is a layout object: a weak back-reference to a DOM node, a
// parent pointer, child layouts, geometry, and its own display list.
// Layout trees are rebuilt from scratch per render so these pointers
// never outlive the DOM/layout pass that created them.
type Object struct {
	Kind Kind

	// Node is a non-owning back-reference; nil for LineLayout objects,
	// which don't correspond 1:1 to a DOM node.
	Node *dom.Node

	Parent   *Object
	Children []*Object

	X, Y, W, H float64

	Display paint.DisplayList
}

// HitBox is a registered widget hit-test rectangle, consulted on click:
// every widget registers a (node, rect) pair into a browser-wide list.
type HitBox struct {
	Node *dom.Node
	Rect paint.Rect
}

// Widget geometry constants.
const (
	CheckboxSize  = 16.0
	InputWidth    = 200.0
	InputPadX     = 5.0
	InputPadY     = 3.0
	ButtonPadX    = 6.0
	ButtonPadY    = 4.0
	CaretWidth    = 1.0
	DefaultRadius = 0.0
)

// Context carries the shared inputs to a layout build pass: the font cache
// used for measurement and the hit-box sink widgets register into.
type Context struct {
	Fonts    *fontcache.Cache
	HitBoxes *[]HitBox
}

func (c *Context) registerHitBox(node *dom.Node, rect paint.Rect) {
	if c.HitBoxes == nil {
		return
	}
	*c.HitBoxes = append(*c.HitBoxes, HitBox{Node: node, Rect: rect})
}

// fontFor resolves the computed font for a node, converting its
// computed_style font-size px value to points.
func (c *Context) fontFor(node *dom.Node) fontcache.Font {
	sizePx := 16.0
	weight := "normal"
	style := "normal"
	if node.ComputedStyle != nil {
		sizePx = parsePx(node.ComputedStyle["font-size"])
		if w, ok := node.ComputedStyle["font-weight"]; ok && w != "" {
			weight = w
		}
		if s, ok := node.ComputedStyle["font-style"]; ok && s != "" {
			style = s
		}
	}
	return c.Fonts.Get(sizePx*0.75, weight, style)
}

func parsePx(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	if s == "" {
		return 16
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 16
	}
	return v
}
