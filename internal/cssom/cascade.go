package cssom

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dpotapov/tinybrowser/internal/dom"
)

// inheritedDefaults are the root defaults for inheritable properties.
var inheritedDefaults = map[string]string{
	"font-size":   "16px",
	"font-style":  "normal",
	"font-weight": "normal",
	"color":       "black",
}

// nonInheritedDefaults are filled on every node regardless of inheritance, so
// every node ends up with non-empty values for background-color and
// border-radius.
var nonInheritedDefaults = map[string]string{
	"background-color": "transparent",
	"border-radius":    "0px",
}

var inheritableProps = []string{"font-size", "font-style", "font-weight", "color"}

// DefaultComputedStyle returns a fresh copy of the root UA defaults, used
// to seed a node created detached via createElement before it is ever
// attached to a styled tree.
func DefaultComputedStyle() map[string]string {
	style := make(map[string]string, len(inheritedDefaults)+len(nonInheritedDefaults))
	for k, v := range inheritedDefaults {
		style[k] = v
	}
	for k, v := range nonInheritedDefaults {
		style[k] = v
	}
	return style
}

// Resolve computes computed_style for every node in the tree rooted at
// root, given an author stylesheet (UA defaults plus link-sourced rules)
// already parsed into rules. Rules are applied in ascending specificity
// order using a stable sort, so rules of equal specificity apply in
// source order.
func Resolve(root *dom.Node, rules []Rule) {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Selector.Priority() < sorted[j].Selector.Priority()
	})

	resolveNode(root, nil, sorted)
}

func resolveNode(n *dom.Node, parent *dom.Node, rules []Rule) {
	style := make(map[string]string, len(inheritedDefaults)+len(nonInheritedDefaults))

	// Start with inherited properties copied from parent, or defaults at
	// root.
	for _, k := range inheritableProps {
		if parent != nil {
			style[k] = parent.ComputedStyle[k]
		} else {
			style[k] = inheritedDefaults[k]
		}
	}
	for k, v := range nonInheritedDefaults {
		style[k] = v
	}

	if n.Kind == dom.ElementKind {
		for _, r := range rules {
			if r.Selector.Matches(n) {
				for k, v := range r.Body {
					style[k] = v
				}
			}
		}

		if inline, ok := n.GetAttribute("style"); ok && inline != "" {
			for k, v := range parseInlineStyle(inline) {
				style[k] = v
			}
		}
	}

	if fs, ok := style["font-size"]; ok && strings.HasSuffix(fs, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(fs, "%"), 64)
		if err == nil {
			parentPx := 16.0
			if parent != nil {
				parentPx = parsePx(parent.ComputedStyle["font-size"])
			}
			style["font-size"] = formatPx(parentPx * pct / 100)
		}
	}

	n.ComputedStyle = style

	for _, c := range n.Children {
		resolveNode(c, n, rules)
	}
}

// parseInlineStyle parses the inline style="k:v; k2:v2" attribute using the
// same permissive grammar as stylesheet rule bodies.
func parseInlineStyle(s string) map[string]string {
	p := &Parser{s: s}
	return p.parseBody()
}

func parsePx(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "px"), 64)
	if err != nil {
		return 16
	}
	return v
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
