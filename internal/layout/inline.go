package layout

import (
	"strings"

	"github.com/dpotapov/tinybrowser/internal/dom"
	"github.com/dpotapov/tinybrowser/internal/paint"
)

// lineItem is one pending word or widget on the current line, buffered
// until flush() positions the whole line on a shared baseline.
type lineItem struct {
	x          float64
	width      float64
	ascent     float64
	descent    float64
	isWidget   bool
	word       string
	styleNode  *dom.Node // text color/font source
	widgetNode *dom.Node
	linkNode   *dom.Node // nearest enclosing <a>, nil outside one
}

// inlineBuilder walks node's subtree depth-first, collecting words and
// widgets into lines.
type inlineBuilder struct {
	block   *Object
	ctx     *Context
	cursorX float64
	cursorY float64
	line    []lineItem

	// contentBottom tracks the pixel bottom of the last flushed line's
	// glyphs, used to compute the block's final inline-mode height.
	contentBottom float64
}

func layoutInline(b *Object, node *dom.Node, ctx *Context) {
	ib := &inlineBuilder{
		block:         b,
		ctx:           ctx,
		cursorX:       b.X,
		cursorY:       b.Y,
		contentBottom: b.Y,
	}
	ib.walk(node, nil)
	ib.flush()

	b.H = ib.contentBottom + VStep - b.Y
	if b.H < VStep {
		b.H = VStep
	}
}

// walk descends node's subtree, threading the nearest enclosing <a> (nil
// outside one) so words and widgets it produces carry a link hit-box.
func (ib *inlineBuilder) walk(node *dom.Node, link *dom.Node) {
	switch {
	case node.Kind == dom.TextKind:
		for _, word := range strings.Fields(node.Text) {
			ib.addWord(word, node, link)
		}
	case node.Tag == "br":
		ib.flush()
	case node.Tag == "input" || node.Tag == "button":
		ib.addWidget(node)
	case node.Tag == "a":
		for _, c := range node.Children {
			ib.walk(c, node)
		}
	default:
		for _, c := range node.Children {
			ib.walk(c, link)
		}
	}
}

func (ib *inlineBuilder) addWord(word string, styleNode, link *dom.Node) {
	font := ib.ctx.fontFor(styleNode)
	w := font.Measure(word)
	if ib.cursorX+w > ib.block.X+ib.block.W {
		ib.flush()
	}
	m := font.Metrics()
	ib.line = append(ib.line, lineItem{
		x: ib.cursorX, width: w, ascent: m.Ascent, descent: m.Descent,
		word: word, styleNode: styleNode, linkNode: link,
	})
	ib.cursorX += w + font.Measure(" ")
}

func (ib *inlineBuilder) addWidget(node *dom.Node) {
	if node.Tag == "input" {
		if t, _ := node.GetAttribute("type"); t == "hidden" {
			return // consumes no space
		}
	}
	w, ascent, descent := measureWidget(node, ib.ctx)
	if ib.cursorX+w > ib.block.X+ib.block.W {
		ib.flush()
	}
	ib.line = append(ib.line, lineItem{
		x: ib.cursorX, width: w, ascent: ascent, descent: descent,
		isWidget: true, widgetNode: node,
	})
	ib.cursorX += w + fontcacheSpaceWidth(ib.ctx, node)
}

// fontcacheSpaceWidth measures a space in the widget's inherited font, used
// as the gap after a widget the same way addWord spaces words.
func fontcacheSpaceWidth(ctx *Context, node *dom.Node) float64 {
	return ctx.fontFor(node).Measure(" ")
}

// flush commits the buffered line to a LineLayout child of the block,
// baseline-positioning every item. An empty flush
// (as from a <br> with no preceding words on the line) still advances
// cursorY by one default line height, so the line occupies visible space —
// this is how "<br> inside the first word of a line" produces an empty
// first line rather than collapsing it.
func (ib *inlineBuilder) flush() {
	if len(ib.line) == 0 {
		lineObj := &Object{Kind: KindLine, Parent: ib.block, X: ib.block.X, Y: ib.cursorY, W: ib.block.W, H: VStep}
		ib.block.Children = append(ib.block.Children, lineObj)
		ib.cursorY += VStep
		ib.contentBottom = ib.cursorY
		ib.cursorX = ib.block.X
		return
	}

	maxAscent, maxDescent := 0.0, 0.0
	for _, it := range ib.line {
		if it.ascent > maxAscent {
			maxAscent = it.ascent
		}
		if it.descent > maxDescent {
			maxDescent = it.descent
		}
	}
	baseline := ib.cursorY + maxAscent

	lineObj := &Object{Kind: KindLine, Parent: ib.block, X: ib.block.X, Y: ib.cursorY, W: ib.block.W}
	for _, it := range ib.line {
		y := baseline - it.ascent
		if it.isWidget {
			lineObj.Children = append(lineObj.Children, buildWidget(it, y, ib.ctx, lineObj))
		} else {
			lineObj.Children = append(lineObj.Children, buildText(it, y, ib.ctx, lineObj))
		}
	}
	lineObj.H = maxAscent + maxDescent
	ib.block.Children = append(ib.block.Children, lineObj)

	ib.cursorY = baseline + 1.25*maxDescent
	ib.contentBottom = baseline + maxDescent
	ib.cursorX = ib.block.X
}

func buildText(it lineItem, y float64, ctx *Context, parent *Object) *Object {
	font := ctx.fontFor(it.styleNode)
	color := "black"
	if it.styleNode.ComputedStyle != nil {
		if c := it.styleNode.ComputedStyle["color"]; c != "" {
			color = c
		}
	}
	t := &Object{
		Kind: KindText, Node: it.styleNode, Parent: parent,
		X: it.x, Y: y, W: it.width, H: it.ascent + it.descent,
	}
	t.Display = paint.DisplayList{paint.DrawText(it.x, y, it.word, font, color)}
	if it.linkNode != nil {
		ctx.registerHitBox(it.linkNode, paint.Rect{X: it.x, Y: y, W: it.width, H: it.ascent + it.descent})
	}
	return t
}

// measureWidget returns (width, ascent, descent) for an <input>/<button>.
func measureWidget(node *dom.Node, ctx *Context) (w, ascent, descent float64) {
	font := ctx.fontFor(node)
	m := font.Metrics()

	switch {
	case node.Tag == "input" && attrIs(node, "type", "checkbox"):
		return CheckboxSize, CheckboxSize, 0
	case node.Tag == "button":
		label := buttonLabel(node)
		return font.Measure(label) + 2*ButtonPadX, m.Ascent + ButtonPadY, m.Descent + ButtonPadY
	default: // text, password, or any other <input>
		return InputWidth, m.Ascent + InputPadY, m.Descent + InputPadY
	}
}

func attrIs(node *dom.Node, key, want string) bool {
	v, ok := node.GetAttribute(key)
	return ok && v == want
}

func buttonLabel(node *dom.Node) string {
	var b strings.Builder
	for _, c := range node.Children {
		if c.Kind == dom.TextKind {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}
