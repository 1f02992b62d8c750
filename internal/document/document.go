package document

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Raw is the HTML source of one fetched page. It is never modified after
// fetching.
type Raw struct {
	URL  string
	HTML string
}

// Tree is a parsed Raw document. Fragments selected from it share its
// lifetime and must be treated as read-only.
type Tree struct {
	raw Raw
	doc *goquery.Document
}

// Fragment is one node matched by a selector.
type Fragment struct {
	sel *goquery.Selection
}

// Parse builds a navigable tree from raw HTML.
func Parse(raw Raw) (*Tree, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Tree{raw: raw, doc: doc}, nil
}

// Raw returns the document the tree was parsed from.
func (t *Tree) Raw() Raw { return t.raw }

// Title returns the trimmed <title> text, if any.
func (t *Tree) Title() string {
	return strings.TrimSpace(t.doc.Find("title").First().Text())
}

// SelectChecked returns matches for a CSS selector in document order. It
// fails only when the selector does not compile. Zero matches yields an
// empty, non-nil slice.
func (t *Tree) SelectChecked(selector string) ([]Fragment, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compile selector %q: %w", selector, err)
	}
	sel := t.doc.FindMatcher(m)
	out := make([]Fragment, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, Fragment{sel: s})
	})
	return out, nil
}

// Select is SelectChecked with invalid selectors treated as matching nothing.
func (t *Tree) Select(selector string) []Fragment {
	out, err := t.SelectChecked(selector)
	if err != nil {
		return []Fragment{}
	}
	return out
}

// OuterHTML serializes the fragment including its own tag.
func (f Fragment) OuterHTML() (string, error) {
	return goquery.OuterHtml(f.sel)
}

// InnerHTML serializes the fragment's children.
func (f Fragment) InnerHTML() (string, error) {
	return f.sel.Html()
}

// Text returns the concatenated text content of the fragment.
func (f Fragment) Text() string {
	return f.sel.Text()
}

// Attr returns the named attribute of the fragment's element.
func (f Fragment) Attr(name string) (string, bool) {
	return f.sel.Attr(name)
}

// Serialize renders every fragment with OuterHTML, keeping order.
func Serialize(frags []Fragment) ([]string, error) {
	out := make([]string, 0, len(frags))
	for i, f := range frags {
		s, err := f.OuterHTML()
		if err != nil {
			return nil, fmt.Errorf("serialize fragment %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}
