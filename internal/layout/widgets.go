package layout

import (
	"strings"

	"github.com/dpotapov/tinybrowser/internal/dom"
	"github.com/dpotapov/tinybrowser/internal/paint"
)

// buildWidget renders an <input>/<button> line item into an InputLayout,
// painting its box, content, and (if focused) caret, and registers its
// hit-test rectangle.
func buildWidget(it lineItem, y float64, ctx *Context, parent *Object) *Object {
	node := it.widgetNode
	rect := paint.Rect{X: it.x, Y: y, W: it.width, H: it.ascent + it.descent}

	obj := &Object{
		Kind: KindInput, Node: node, Parent: parent,
		X: it.x, Y: y, W: it.width, H: it.ascent + it.descent,
	}

	switch {
	case node.Tag == "input" && attrIs(node, "type", "checkbox"):
		obj.Display = checkboxDisplay(rect, node)
	case node.Tag == "button":
		obj.Display = buttonDisplay(rect, node, ctx)
	default:
		obj.Display = textInputDisplay(rect, node, ctx)
	}

	ctx.registerHitBox(node, rect)
	return obj
}

func checkboxDisplay(r paint.Rect, node *dom.Node) paint.DisplayList {
	list := paint.DisplayList{paint.DrawOutline(r, "black", 1)}
	if _, checked := node.GetAttribute("checked"); checked {
		list = append(list,
			paint.DrawLine(r.X, r.Y, r.X+r.W, r.Y+r.H, "black", 1),
			paint.DrawLine(r.X, r.Y+r.H, r.X+r.W, r.Y, "black", 1),
		)
	}
	return list
}

func buttonDisplay(r paint.Rect, node *dom.Node, ctx *Context) paint.DisplayList {
	font := ctx.fontFor(node)
	label := buttonLabel(node)
	list := paint.DisplayList{paint.DrawOutline(r, "black", 1)}
	textY := r.Y + ButtonPadY
	list = append(list, paint.DrawText(r.X+ButtonPadX, textY, label, font, "black"))
	return list
}

// textInputDisplay renders a text/password <input>'s current value
// (password masked with the bullet character), plus a caret if focused.
func textInputDisplay(r paint.Rect, node *dom.Node, ctx *Context) paint.DisplayList {
	font := ctx.fontFor(node)
	value, _ := node.GetAttribute("value")
	if attrIs(node, "type", "password") {
		value = strings.Repeat("•", len(value))
	}

	list := paint.DisplayList{paint.DrawOutline(r, "black", 1)}
	textX := r.X + InputPadX
	textY := r.Y + InputPadY
	list = append(list, paint.DrawText(textX, textY, value, font, "black"))

	if node.Focused {
		caretX := textX + font.Measure(value)
		list = append(list, paint.DrawLine(caretX, r.Y, caretX, r.Y+r.H, "black", CaretWidth))
	}
	return list
}
