package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/dpotapov/tinybrowser/internal/fontcache"
	"github.com/dpotapov/tinybrowser/internal/paint"
)

const charWidth = 8.0 // matches fakeFont's px-per-rune in internal/tab's tests

// monospaceFont stands in for the external rasterizer: every Font this
// CLI ever asks for measures text at a fixed px-per-rune, wide enough for
// layout to do something sane without an actual font backend.
type monospaceFont struct {
	size float64
}

func (f monospaceFont) Measure(text string) float64 { return float64(len(text)) * charWidth }
func (f monospaceFont) Metrics() fontcache.Metrics {
	return fontcache.Metrics{Ascent: f.size * 0.8, Descent: f.size * 0.2, Linespace: f.size * 1.2}
}

func monospaceFactory(size float64, weight, style string) fontcache.Font {
	return monospaceFont{size: size}
}

// namedColors maps the small set of Color values this module's CSS engine
// actually produces to a terminal color attribute; anything else falls
// back to the terminal's default foreground.
var namedColors = map[string]color.Attribute{
	"red":    color.FgRed,
	"green":  color.FgGreen,
	"blue":   color.FgBlue,
	"yellow": color.FgYellow,
	"gray":   color.FgHiBlack,
	"grey":   color.FgHiBlack,
	"black":  color.FgWhite, // inverted: black text is the common case, default terminal bg is dark
	"white":  color.FgHiWhite,
}

func colorize(c paint.Color, s string) string {
	attr, ok := namedColors[strings.ToLower(c)]
	if !ok {
		return s
	}
	return color.New(attr).Sprint(s)
}

// termBackend implements paint.Backend by rendering each primitive as its
// own terminal line: text colored per its Color field, background rects as
// a colored bar of block characters scaled to the terminal width, lines and
// outlines as a colored rule. It isn't a pixel-faithful canvas - it's a
// readable line-mode transcript of the display list, in painting order,
// the same role original_source/browser.py's tkinter canvas serves, just
// rendered for a terminal instead of a GUI window.
type termBackend struct {
	out   *strings.Builder
	width int // terminal columns, from term.GetSize
}

func newTermBackend() *termBackend {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	return &termBackend{out: &strings.Builder{}, width: width}
}

func (b *termBackend) indent(x float64) string {
	n := int(x / charWidth)
	if n < 0 {
		n = 0
	}
	if n > b.width/2 {
		n = b.width / 2
	}
	return strings.Repeat(" ", n)
}

func (b *termBackend) DrawText(x, y float64, text string, font fontcache.Font, c paint.Color) {
	line := b.indent(x) + text
	if len(line) > b.width {
		line = line[:b.width]
	}
	fmt.Fprintln(b.out, colorize(c, line))
}

func (b *termBackend) DrawRect(r paint.Rect, c paint.Color) {
	b.drawBar(r, c)
}

func (b *termBackend) DrawRRect(r paint.Rect, c paint.Color, radius float64) {
	b.drawBar(r, c)
}

func (b *termBackend) drawBar(r paint.Rect, c paint.Color) {
	cols := int(r.W / charWidth)
	if cols <= 0 {
		return
	}
	if cols > b.width {
		cols = b.width
	}
	fmt.Fprintln(b.out, colorize(c, b.indent(r.X)+strings.Repeat("▇", cols)))
}

func (b *termBackend) DrawLine(x1, y1, x2, y2 float64, c paint.Color, thickness float64) {
	cols := int((x2 - x1) / charWidth)
	if cols <= 0 {
		cols = 1
	}
	fmt.Fprintln(b.out, colorize(c, b.indent(x1)+strings.Repeat("─", cols)))
}

func (b *termBackend) DrawOutline(r paint.Rect, c paint.Color, thickness float64) {
	cols := int(r.W / charWidth)
	if cols <= 0 {
		cols = 1
	}
	fmt.Fprintln(b.out, colorize(c, b.indent(r.X)+"┌"+strings.Repeat("─", cols)+"┐"))
}

// dump paints list through a fresh termBackend, scroll-clipped to
// [scrollTop, scrollTop+viewportHeight] via paint.Execute, and returns the
// accumulated text.
func dump(list paint.DisplayList, scrollTop, viewportHeight float64) string {
	b := newTermBackend()
	paint.Execute(list, b, scrollTop, viewportHeight)
	return b.out.String()
}
