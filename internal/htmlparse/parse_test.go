package htmlparse

import (
	"testing"

	"github.com/dpotapov/tinybrowser/internal/dom"
)

func tagsOf(n *dom.Node) []string {
	var out []string
	dom.Walk(n, func(m *dom.Node) {
		if m.Kind == dom.ElementKind {
			out = append(out, m.Tag)
		}
	})
	return out
}

func findFirst(n *dom.Node, tag string) *dom.Node {
	var found *dom.Node
	dom.Walk(n, func(m *dom.Node) {
		if found == nil && m.Kind == dom.ElementKind && m.Tag == tag {
			found = m
		}
	})
	return found
}

// "Hello<p>World" should parse to
// html → head (empty) → body → "Hello" → p → "World".
func TestImplicitTagInsertion(t *testing.T) {
	root := Parse("Hello<p>World")

	if root.Tag != "html" {
		t.Fatalf("root tag = %q, want html", root.Tag)
	}
	if len(root.Children) != 2 {
		t.Fatalf("html should have 2 children (head, body), got %d", len(root.Children))
	}
	head, body := root.Children[0], root.Children[1]
	if head.Tag != "head" || len(head.Children) != 0 {
		t.Fatalf("head = %+v, want empty head", head)
	}
	if body.Tag != "body" {
		t.Fatalf("body tag = %q", body.Tag)
	}
	if len(body.Children) != 2 {
		t.Fatalf("body should have 2 children (text, p), got %d: %+v", len(body.Children), body.Children)
	}
	if body.Children[0].Kind != dom.TextKind || body.Children[0].Text != "Hello" {
		t.Fatalf("first body child = %+v, want text %q", body.Children[0], "Hello")
	}
	p := body.Children[1]
	if p.Tag != "p" || len(p.Children) != 1 || p.Children[0].Text != "World" {
		t.Fatalf("p = %+v", p)
	}
}

func TestHeadTagsRouteToHead(t *testing.T) {
	root := Parse("<title>Hi</title><p>body text")
	head := findFirst(root, "head")
	if head == nil || len(head.Children) != 1 || head.Children[0].Tag != "title" {
		t.Fatalf("expected <title> inside <head>, got %+v", head)
	}
	body := findFirst(root, "body")
	if body == nil {
		t.Fatal("expected implicit <body>")
	}
}

func TestSelfClosingTagsDoNotPush(t *testing.T) {
	root := Parse("<p>one<br>two</p>")
	p := findFirst(root, "p")
	if p == nil {
		t.Fatal("expected <p>")
	}
	// br must be a sibling of the text nodes, not a wrapper around "two".
	var gotTags []string
	for _, c := range p.Children {
		if c.Kind == dom.ElementKind {
			gotTags = append(gotTags, c.Tag)
		}
	}
	if len(gotTags) != 1 || gotTags[0] != "br" {
		t.Fatalf("expected exactly one <br> child of <p>, got %v", gotTags)
	}
}

func TestAttributeParsing(t *testing.T) {
	root := Parse(`<input name=guest value="Your name">`)
	input := findFirst(root, "input")
	if input == nil {
		t.Fatal("expected <input>")
	}
	if v, ok := input.GetAttribute("name"); !ok || v != "guest" {
		t.Fatalf("name attr = %q, %v", v, ok)
	}
	if v, ok := input.GetAttribute("value"); !ok || v != "Your name" {
		t.Fatalf("value attr = %q, %v", v, ok)
	}
}

func TestAttributeQuoteStrippingLengthRule(t *testing.T) {
	// A matching quote pair is stripped only when the value's length
	// exceeds 2, so an empty quoted value ("" — length 2) is NOT stripped
	// and keeps its literal quote characters. See DESIGN.md for why this
	// quirk is kept as-is.
	root := Parse(`<input value="">`)
	input := findFirst(root, "input")
	v, ok := input.GetAttribute("value")
	if !ok || v != `""` {
		t.Fatalf("value attr = %q, %v, want the literal two quote characters", v, ok)
	}

	root2 := Parse(`<input value="x">`)
	input2 := findFirst(root2, "input")
	v2, _ := input2.GetAttribute("value")
	if v2 != "x" {
		t.Fatalf("value attr = %q, want stripped \"x\"", v2)
	}
}

func TestCloseTagIgnoredAtRoot(t *testing.T) {
	root := Parse("</html></body>hi")
	// Should not panic and should still produce a usable tree.
	body := findFirst(root, "body")
	if body == nil {
		t.Fatal("expected implicit body")
	}
}

func TestCommentsAndDoctypeDropped(t *testing.T) {
	root := Parse("<!doctype html><!-- a comment --><p>hi</p>")
	p := findFirst(root, "p")
	if p == nil {
		t.Fatal("expected <p>")
	}
	for _, tag := range tagsOf(root) {
		if tag == "!doctype html" || tag == "!-- a comment --" {
			t.Fatalf("doctype/comment leaked into tree: %v", tagsOf(root))
		}
	}
}

func TestParseSignTheBookForm(t *testing.T) {
	// Grounded on original_source/test_server.py's guestbook fixture.
	body := `<!doctype html><p>Pavel was here</p>` +
		`<form action=/add method=post>` +
		`<p><input name=guest value=Your+name></p>` +
		`<p><button>Sign the book!</button></p>` +
		`</form>`
	root := Parse(body)

	form := findFirst(root, "form")
	if form == nil {
		t.Fatal("expected <form>")
	}
	if v, _ := form.GetAttribute("action"); v != "/add" {
		t.Fatalf("form action = %q", v)
	}
	if v, _ := form.GetAttribute("method"); v != "post" {
		t.Fatalf("form method = %q", v)
	}
	input := findFirst(root, "input")
	if v, _ := input.GetAttribute("name"); v != "guest" {
		t.Fatalf("input name = %q", v)
	}
	button := findFirst(root, "button")
	if button == nil || len(button.Children) != 1 || button.Children[0].Text != "Sign the book!" {
		t.Fatalf("button = %+v", button)
	}
}
