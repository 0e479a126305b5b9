// Package paint implements the tagged drawing-primitive display list: an
// ordered, z-order sequence consumed by an external drawing backend, plus
// scroll-aware execution against that backend.
package paint

import "github.com/dpotapov/tinybrowser/internal/fontcache"

// Color is an opaque backend color value (e.g. a name or hex string); the
// core never interprets it, only threads it through to the backend.
type Color = string

// Rect is an axis-aligned box in layout coordinates.
type Rect struct {
	X, Y, W, H float64
}

// Primitive is the closed sum type of drawing commands: a tagged union
// matched exhaustively via the Kind switch, avoiding open polymorphism.
type Kind int

const (
	KindText Kind = iota
	KindRect
	KindRRect
	KindLine
	KindOutline
)

// Primitive is a single entry in a display list. Exactly one field group is
// meaningful, selected by Kind.
type Primitive struct {
	Kind Kind

	// KindText
	X, Y  float64
	Text  string
	Font  fontcache.Font
	Color Color

	// KindRect, KindRRect, KindOutline
	Rect Rect

	// KindRRect
	Radius float64

	// KindLine, KindOutline
	X1, Y1, X2, Y2 float64
	Thickness      float64
}

func DrawText(x, y float64, text string, font fontcache.Font, color Color) Primitive {
	return Primitive{Kind: KindText, X: x, Y: y, Text: text, Font: font, Color: color}
}

func DrawRect(r Rect, color Color) Primitive {
	return Primitive{Kind: KindRect, Rect: r, Color: color}
}

func DrawRRect(r Rect, color Color, radius float64) Primitive {
	return Primitive{Kind: KindRRect, Rect: r, Color: color, Radius: radius}
}

func DrawLine(x1, y1, x2, y2 float64, color Color, thickness float64) Primitive {
	return Primitive{Kind: KindLine, X1: x1, Y1: y1, X2: x2, Y2: y2, Color: color, Thickness: thickness}
}

func DrawOutline(r Rect, color Color, thickness float64) Primitive {
	return Primitive{Kind: KindOutline, Rect: r, Color: color, Thickness: thickness}
}

// DisplayList is an ordered sequence of primitives; painting order is
// z-order.
type DisplayList []Primitive

// Backend is the drawing-backend contract.
type Backend interface {
	DrawRect(r Rect, color Color)
	DrawRRect(r Rect, color Color, radius float64)
	DrawText(x, y float64, text string, font fontcache.Font, color Color)
	DrawLine(x1, y1, x2, y2 float64, color Color, thickness float64)
	DrawOutline(r Rect, color Color, thickness float64)
}

// top returns a primitive's upper vertical edge, used by Execute to
// cull off-screen entries the way original_source/browser.py's draw() does
// ("skip off-screen lines for speed").
func (p Primitive) top() float64 {
	switch p.Kind {
	case KindText:
		return p.Y
	case KindRect, KindRRect, KindOutline:
		return p.Rect.Y
	case KindLine:
		return min(p.Y1, p.Y2)
	default:
		return 0
	}
}

func (p Primitive) bottom(lineHeight func(Primitive) float64) float64 {
	switch p.Kind {
	case KindText:
		return p.Y + lineHeight(p)
	case KindRect, KindRRect, KindOutline:
		return p.Rect.Y + p.Rect.H
	case KindLine:
		return max(p.Y1, p.Y2)
	default:
		return p.top()
	}
}

// Execute paints every primitive whose vertical extent intersects
// [scrollTop, scrollTop+viewportHeight], offsetting by -scrollTop, mirroring
// original_source/browser.py's Browser.draw().
func Execute(list DisplayList, backend Backend, scrollTop, viewportHeight float64) {
	lineHeight := func(p Primitive) float64 {
		if p.Font != nil {
			return p.Font.Metrics().Linespace
		}
		return 0
	}

	for _, p := range list {
		bottom := p.bottom(lineHeight)
		top := p.top()
		if top > scrollTop+viewportHeight {
			continue
		}
		if bottom < scrollTop {
			continue
		}

		switch p.Kind {
		case KindText:
			backend.DrawText(p.X, p.Y-scrollTop, p.Text, p.Font, p.Color)
		case KindRect:
			backend.DrawRect(offsetRect(p.Rect, -scrollTop), p.Color)
		case KindRRect:
			backend.DrawRRect(offsetRect(p.Rect, -scrollTop), p.Color, p.Radius)
		case KindLine:
			backend.DrawLine(p.X1, p.Y1-scrollTop, p.X2, p.Y2-scrollTop, p.Color, p.Thickness)
		case KindOutline:
			backend.DrawOutline(offsetRect(p.Rect, -scrollTop), p.Color, p.Thickness)
		}
	}
}

func offsetRect(r Rect, dy float64) Rect {
	r.Y += dy
	return r
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
