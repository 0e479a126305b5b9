package dom

import (
	"html"
	"sort"
	"strings"
)

// selfClosingTags mirrors the HTML parser's self-closing tag set:
// serialization must not emit a matching close tag for these.
var selfClosingTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// InnerHTML serializes n's children (not n itself).
func InnerHTML(n *Node) string {
	var b strings.Builder
	for _, c := range n.Children {
		writeNode(&b, c)
	}
	return b.String()
}

// OuterHTML serializes n including its own tag.
func OuterHTML(n *Node) string {
	var b strings.Builder
	writeNode(&b, n)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	if n.Kind == TextKind {
		b.WriteString(html.EscapeString(n.Text))
		return
	}

	b.WriteByte('<')
	b.WriteString(n.Tag)
	keys := make([]string, 0, len(n.Attributes))
	for k := range n.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(n.Attributes[k]))
		b.WriteByte('"')
	}
	b.WriteByte('>')

	if selfClosingTags[n.Tag] {
		return
	}

	for _, c := range n.Children {
		writeNode(b, c)
	}

	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteByte('>')
}
