// Package cssom implements a small CSS subset: tag and descendant
// selectors with a specificity-ordered cascade, inheritance, and
// inline-style overlay.
package cssom

import "github.com/dpotapov/tinybrowser/internal/dom"

// Selector is matched against an Element node. Only two kinds exist:
// TagSelector and DescendantSelector.
type Selector interface {
	Matches(n *dom.Node) bool
	Priority() int
}

// TagSelector matches nodes whose tag equals Tag; priority 1.
type TagSelector struct {
	Tag string
}

func (s TagSelector) Matches(n *dom.Node) bool {
	return n.Kind == dom.ElementKind && n.Tag == s.Tag
}

func (s TagSelector) Priority() int { return 1 }

// DescendantSelector matches a node that matches Descendant and has some
// ancestor matching Ancestor; priority is the sum of both parts' priorities.
type DescendantSelector struct {
	Ancestor   Selector
	Descendant Selector
}

func (s DescendantSelector) Matches(n *dom.Node) bool {
	if !s.Descendant.Matches(n) {
		return false
	}
	for a := n.Parent; a != nil; a = a.Parent {
		if s.Ancestor.Matches(a) {
			return true
		}
	}
	return false
}

func (s DescendantSelector) Priority() int {
	return s.Ancestor.Priority() + s.Descendant.Priority()
}
