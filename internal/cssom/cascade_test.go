package cssom

import (
	"testing"

	"github.com/dpotapov/tinybrowser/internal/dom"
)

func buildTree() (*dom.Node, *dom.Node, *dom.Node) {
	html := dom.NewElement("html")
	body := dom.NewElement("body")
	html.AppendChild(body)
	p := dom.NewElement("p")
	body.AppendChild(p)
	return html, body, p
}

func TestEveryNodeGetsDefaults(t *testing.T) {
	html, _, p := buildTree()
	Resolve(html, nil)

	for _, node := range []*dom.Node{html, p} {
		for _, k := range []string{"font-size", "font-style", "font-weight", "color", "background-color", "border-radius"} {
			if v := node.ComputedStyle[k]; v == "" {
				t.Fatalf("node %q missing default for %q", node.Tag, k)
			}
		}
	}
}

func TestInheritanceFromParent(t *testing.T) {
	html, _, p := buildTree()
	rules := ParseStylesheet("body { color: blue; }")
	Resolve(html, rules)

	if p.ComputedStyle["color"] != "blue" {
		t.Fatalf("p should inherit color from body, got %q", p.ComputedStyle["color"])
	}
}

func TestSpecificitySortStable(t *testing.T) {
	html, _, p := buildTree()
	rules := ParseStylesheet(`
		p { color: red; }
		body p { color: green; }
	`)
	Resolve(html, rules)
	if p.ComputedStyle["color"] != "green" {
		t.Fatalf("higher-priority descendant selector should win, got %q", p.ComputedStyle["color"])
	}
}

func TestInlineStyleOverlay(t *testing.T) {
	html, _, p := buildTree()
	p.SetAttribute("style", "color: purple;")
	rules := ParseStylesheet("p { color: red; }")
	Resolve(html, rules)
	if p.ComputedStyle["color"] != "purple" {
		t.Fatalf("inline style should win over author rules, got %q", p.ComputedStyle["color"])
	}
}

func TestPercentFontSizeNested3Deep(t *testing.T) {
	// A chain of 50% font-sizes nested 3 deep computes as the product of
	// fractions times the root's 16px default.
	html := dom.NewElement("html")
	a := dom.NewElement("div")
	b := dom.NewElement("div")
	c := dom.NewElement("div")
	html.AppendChild(a)
	a.AppendChild(b)
	b.AppendChild(c)

	rules := ParseStylesheet("div { font-size: 50%; }")
	Resolve(html, rules)

	// html: 16px -> a: 50% of 16 = 8px -> b: 50% of 8 = 4px -> c: 50% of 4 = 2px
	if a.ComputedStyle["font-size"] != "8px" {
		t.Fatalf("a font-size = %q, want 8px", a.ComputedStyle["font-size"])
	}
	if b.ComputedStyle["font-size"] != "4px" {
		t.Fatalf("b font-size = %q, want 4px", b.ComputedStyle["font-size"])
	}
	if c.ComputedStyle["font-size"] != "2px" {
		t.Fatalf("c font-size = %q, want 2px", c.ComputedStyle["font-size"])
	}
}

func TestParseStylesheetSkipsSyntaxErrors(t *testing.T) {
	rules := ParseStylesheet(`
		p { color red; background-color: blue; }
		123bad { color: green; }
		span { color: pink; }
	`)
	var sawSpan, sawP bool
	var pBG string
	for _, r := range rules {
		if ts, ok := r.Selector.(TagSelector); ok {
			if ts.Tag == "span" {
				sawSpan = true
			}
			if ts.Tag == "p" {
				sawP = true
				pBG = r.Body["background-color"]
			}
		}
	}
	if !sawSpan {
		t.Fatal("parser should recover and continue past the bad selector")
	}
	if !sawP {
		t.Fatal("expected the p rule to parse")
	}
	if pBG != "blue" {
		t.Fatalf("p rule should still pick up background-color after the malformed declaration, got %q", pBG)
	}
}

func TestSelectorMatching(t *testing.T) {
	html, body, p := buildTree()
	_ = html

	tag := ParseSelector("p")
	if !tag.Matches(p) {
		t.Fatal("TagSelector(p) should match <p>")
	}
	if tag.Matches(body) {
		t.Fatal("TagSelector(p) should not match <body>")
	}

	desc := ParseSelector("body p")
	if !desc.Matches(p) {
		t.Fatal("DescendantSelector(body, p) should match nested <p>")
	}

	if ParseSelector("") != nil {
		t.Fatal("empty selector text should fail to parse")
	}
}

func TestDescendantPrioritySumsParts(t *testing.T) {
	sel := ParseSelector("html body p")
	if sel.Priority() != 3 {
		t.Fatalf("priority = %d, want 3", sel.Priority())
	}
}
