// Package htmlparse implements a permissive HTML parser: a char-by-char
// scanner driving a stack of unfinished elements, with implicit
// html/head/body insertion and self-closing tag handling.
//
// The tokenizer is hand-rolled rather than built on golang.org/x/net/html
// (see DESIGN.md for why): x/net/html enforces real HTML5 quoting rules
// that conflict with this parser's deliberately non-conformant
// attribute-value stripping rule, which must be reproduced exactly.
package htmlparse

import (
	"html"
	"strings"

	"github.com/dpotapov/tinybrowser/internal/dom"
)

// selfClosingTags never push onto the stack; they attach to the top.
var selfClosingTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// headTags is the set used by implicit tag insertion step 2 to choose
// between inserting <head> or <body>.
var headTags = map[string]bool{
	"base": true, "basefont": true, "bgsound": true, "noscript": true,
	"link": true, "meta": true, "title": true, "style": true, "script": true,
}

// Parser holds the stack of unfinished elements while scanning one
// document. Use Parse for the common case of parsing a whole string.
type Parser struct {
	unfinished []*dom.Node
}

// Parse scans body and returns the single document root (always <html>).
func Parse(body string) *dom.Node {
	p := &Parser{}
	return p.parse(body)
}

func (p *Parser) parse(body string) *dom.Node {
	var text strings.Builder
	inTag := false

	flushText := func() {
		if text.Len() == 0 {
			return
		}
		s := text.String()
		text.Reset()
		if strings.TrimSpace(s) == "" {
			// Whitespace-only text nodes never appear in the tree.
			return
		}
		// Character references are decoded so that text escaped by the dom
		// serializer parses back to the original string.
		p.addText(html.UnescapeString(s))
	}

	for _, c := range body {
		switch {
		case c == '<':
			inTag = true
			flushText()
		case c == '>':
			inTag = false
			p.addTag(text.String())
			text.Reset()
		default:
			text.WriteRune(c)
		}
	}
	if !inTag {
		flushText()
	}
	return p.finish()
}

// addText appends a text node to the current top of the stack, inserting
// implicit wrapper tags first if necessary.
func (p *Parser) addText(text string) {
	p.implicitTags("")
	parent := p.top()
	if parent == nil {
		return
	}
	parent.AppendChild(dom.NewText(text))
}

// addTag parses one tag body (the text between '<' and '>', leading '<' and
// trailing '>' excluded) and applies it to the stack.
func (p *Parser) addTag(tagText string) {
	if tagText == "" || strings.HasPrefix(tagText, "!") {
		// Leading '!' (doctype/comments) is dropped.
		return
	}

	tag, attrs := parseTagAndAttrs(tagText)
	if tag == "" {
		return
	}

	if strings.HasPrefix(tag, "/") {
		p.implicitTags(tag)
		p.closeTag()
		return
	}

	p.implicitTags(tag)

	node := dom.NewElement(tag)
	for k, v := range attrs {
		node.SetAttribute(k, v)
	}

	if selfClosingTags[node.Tag] {
		parent := p.top()
		if parent != nil {
			parent.AppendChild(node)
		}
		return
	}

	p.unfinished = append(p.unfinished, node)
}

// closeTag pops the stack and attaches the popped node to the new top,
// unless the stack has only the root (ignored).
func (p *Parser) closeTag() {
	if len(p.unfinished) <= 1 {
		return
	}
	node := p.unfinished[len(p.unfinished)-1]
	p.unfinished = p.unfinished[:len(p.unfinished)-1]
	parent := p.top()
	parent.AppendChild(node)
}

// top returns the innermost unfinished element, or nil if the stack is
// empty.
func (p *Parser) top() *dom.Node {
	if len(p.unfinished) == 0 {
		return nil
	}
	return p.unfinished[len(p.unfinished)-1]
}

// implicitTags runs a three-step loop before every tag emission, inserting
// whichever of <html>/<head>/<body> the stack is still missing. tag is the
// about-to-be-emitted tag name, with a leading "/" for close tags ("" when
// called before adding a text node). When <body> is inserted and <html>
// has no <head> child yet, an empty <head> is attached first, so the root
// always carries head before body.
func (p *Parser) implicitTags(tag string) {
	for {
		names := p.openTagNames()

		switch {
		case len(names) == 0 && tag != "html":
			p.unfinished = append(p.unfinished, dom.NewElement("html"))

		case len(names) == 1 && names[0] == "html" &&
			tag != "head" && tag != "body" && tag != "/html":
			if headTags[strings.TrimPrefix(tag, "/")] {
				p.unfinished = append(p.unfinished, dom.NewElement("head"))
			} else {
				root := p.unfinished[0]
				hasHead := false
				for _, c := range root.Children {
					if c.Kind == dom.ElementKind && c.Tag == "head" {
						hasHead = true
					}
				}
				if !hasHead {
					root.AppendChild(dom.NewElement("head"))
				}
				p.unfinished = append(p.unfinished, dom.NewElement("body"))
			}

		case len(names) == 2 && names[0] == "html" && names[1] == "head" &&
			tag != "/head" && !headTags[tag]:
			p.closeTag()

		default:
			return
		}
	}
}

func (p *Parser) openTagNames() []string {
	names := make([]string, len(p.unfinished))
	for i, n := range p.unfinished {
		names[i] = n.Tag
	}
	return names
}

// finish pops the remaining stack, attaching each popped node to its
// parent, and returns the single root.
func (p *Parser) finish() *dom.Node {
	if len(p.unfinished) == 0 {
		p.unfinished = append(p.unfinished, dom.NewElement("html"))
	}
	for len(p.unfinished) > 1 {
		p.closeTag()
	}
	return p.unfinished[0]
}

// parseTagAndAttrs splits "tag attr1 attr2=val ..." into a lowercased tag
// name and a lowercased-key attribute map: split on whitespace, then split
// each piece on '=', stripping a single matching '/"' pair around the value
// only if its length exceeds 2. That last clause is intentionally
// non-conformant (it leaves a bare `""` attribute value as the two literal
// quote characters); see DESIGN.md for why it's kept as-is.
func parseTagAndAttrs(tagText string) (tag string, attrs map[string]string) {
	fields := splitWhitespace(tagText)
	if len(fields) == 0 {
		return "", nil
	}

	tag = strings.ToLower(fields[0])
	if len(fields) == 1 {
		return tag, nil
	}

	attrs = make(map[string]string, len(fields)-1)
	for _, f := range fields[1:] {
		if f == "" {
			continue
		}
		eq := strings.IndexByte(f, '=')
		if eq < 0 {
			attrs[strings.ToLower(f)] = ""
			continue
		}
		key := strings.ToLower(f[:eq])
		val := f[eq+1:]
		if len(val) > 2 {
			first, last := val[0], val[len(val)-1]
			if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
				val = val[1 : len(val)-1]
			}
		}
		attrs[key] = val
	}
	return tag, attrs
}

// splitWhitespace splits on runs of ASCII whitespace, dropping empty
// fields (equivalent to strings.Fields but kept local to make the
// split-on-whitespace-then-split-on-'=' steps explicit).
func splitWhitespace(s string) []string {
	return strings.Fields(s)
}
