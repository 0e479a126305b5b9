// Package layout implements the layout tree: mode selection, block/inline
// geometry, widget sizing, and backgrounds, producing a per-object display
// list of paint.Primitive values.
//
// The canvas/step constants below are carried over from
// original_source/browser.py (an earlier chapter snapshot of the same toy
// browser); the canvas size is otherwise backend-provided, so these are
// defaults, not hard limits.
package layout

import "github.com/dpotapov/tinybrowser/internal/dom"

const (
	DefaultWidth  = 800.0
	DefaultHeight = 600.0
	HStep         = 13.0
	VStep         = 18.0
	ScrollStep    = 100.0
)

// Kind is the closed sum type of layout objects: DocumentLayout,
// BlockLayout, LineLayout, TextLayout, InputLayout.
type Kind int

const (
	KindDocument Kind = iota
	KindBlock
	KindLine
	KindText
	KindInput
)

// blockElements is the common HTML block-level tag set, used to decide
// whether a node's children force it into block mode.
var blockElements = map[string]bool{
	"html": true, "body": true, "article": true, "section": true, "nav": true,
	"aside": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "hgroup": true, "header": true, "footer": true, "address": true,
	"p": true, "hr": true, "pre": true, "blockquote": true, "ol": true,
	"ul": true, "menu": true, "li": true, "dl": true, "dt": true, "dd": true,
	"figure": true, "figcaption": true, "main": true, "div": true,
	"table": true, "form": true, "fieldset": true, "legend": true,
	"details": true, "summary": true,
}

// Mode computes the layout mode for a BlockLayout wrapping node.
func Mode(node *dom.Node) string {
	if node.Kind == dom.TextKind {
		return "inline"
	}
	for _, c := range node.Children {
		if c.Kind == dom.ElementKind && blockElements[c.Tag] {
			return "block"
		}
	}
	if len(node.Children) > 0 || node.Tag == "input" || node.Tag == "button" {
		return "inline"
	}
	return "block"
}
