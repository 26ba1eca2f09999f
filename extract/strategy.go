// Package extract turns a rendered growlog DOM into typed events.
//
// Every field is read through an ordered list of strategies, each a pure
// function from a node to an optional value. The first strategy that
// yields a non-empty value wins, so one logical field can be read from
// every markup variant the page has been observed in.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Strategy pulls one value out of a node. ok is false when the strategy
// does not apply to this markup variant.
type Strategy func(s *goquery.Selection) (value string, ok bool)

// First runs strategies in order and returns the first non-empty value.
func First(s *goquery.Selection, strategies ...Strategy) (string, bool) {
	if s == nil {
		return "", false
	}
	for _, st := range strategies {
		if v, ok := st(s); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Text reads the cleaned text of the first descendant matching selector.
func Text(selector string) Strategy {
	m := cascadia.MustCompile(selector)
	return func(s *goquery.Selection) (string, bool) {
		found := s.FindMatcher(m).First()
		if found.Length() == 0 {
			return "", false
		}
		v := clean(found.Text())
		return v, v != ""
	}
}

// Attr reads an attribute of the first descendant matching selector.
func Attr(selector, attr string) Strategy {
	m := cascadia.MustCompile(selector)
	return func(s *goquery.Selection) (string, bool) {
		v, ok := s.FindMatcher(m).First().Attr(attr)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
}

// SelfAttr reads an attribute of the node itself.
func SelfAttr(attr string) Strategy {
	return func(s *goquery.Selection) (string, bool) {
		v, ok := s.Attr(attr)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
}

// Joined concatenates the text of every descendant matching selector.
func Joined(selector, sep string) Strategy {
	m := cascadia.MustCompile(selector)
	return func(s *goquery.Selection) (string, bool) {
		parts := texts(s.FindMatcher(m))
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, sep), true
	}
}

// Default always yields v. It terminates lists where a fallback exists.
func Default(v string) Strategy {
	return func(*goquery.Selection) (string, bool) {
		return v, true
	}
}

// Nodes selects a group of nodes under a root.
type Nodes func(root *goquery.Selection) *goquery.Selection

// FirstNodes returns a Nodes that tries selectors in order and keeps the
// first one that matches anything.
func FirstNodes(selectors ...string) Nodes {
	matchers := make([]cascadia.Selector, len(selectors))
	for i, sel := range selectors {
		matchers[i] = cascadia.MustCompile(sel)
	}
	return func(root *goquery.Selection) *goquery.Selection {
		var found *goquery.Selection
		for _, m := range matchers {
			found = root.FindMatcher(m)
			if found.Length() > 0 {
				return found
			}
		}
		if found == nil {
			return root.Slice(0, 0)
		}
		return found
	}
}

// texts collects the non-empty cleaned text of every node in s.
func texts(s *goquery.Selection) []string {
	var out []string
	s.Each(func(_ int, n *goquery.Selection) {
		if v := clean(n.Text()); v != "" {
			out = append(out, v)
		}
	})
	return out
}

// clean collapses runs of whitespace and trims the result.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
