package layout

import (
	"strconv"
	"strings"

	"github.com/dpotapov/tinybrowser/internal/paint"
)

func paintRect(b *Object) paint.Rect {
	return paint.Rect{X: b.X, Y: b.Y, W: b.W, H: b.H}
}

func paintRRect(r paint.Rect, color string, radius float64) paint.DisplayList {
	return paint.DisplayList{paint.DrawRRect(r, color, radius)}
}

// resolveRadius converts a border-radius value (px or %) into pixels,
// resolving a percentage against the average of width and height.
func resolveRadius(s string, w, h float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.HasSuffix(s, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0
		}
		return (w + h) / 2 * pct / 100
	}
	return parsePx(s)
}
