package review

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Extractor converts one serialized fragment into review text.
// Implementations must be pure so batches can run in parallel.
type Extractor interface {
	Extract(fragmentHTML string) (string, error)
}

// SplitExtractor applies the two-marker substring split.
type SplitExtractor struct {
	Markers Markers
}

func (e SplitExtractor) Extract(fragmentHTML string) (string, error) {
	return Extract(fragmentHTML, e.Markers)
}

// Default selectors for TreeExtractor, equivalent to DefaultMarkers on
// well-formed markup.
const (
	DefaultHeadSelector = "span"
	DefaultTailSelector = `div[class^="review-link"]`
)

// TreeExtractor finds the first element matching HeadSelector and collects
// the siblings that follow it, stopping before the first sibling matching
// TailSelector. Collected nodes are rendered back to HTML so the output lines
// up with SplitExtractor for the same fragment. Only siblings of the head
// element are walked, so a head nested inside another element (a span in an
// <h3>, say) yields "" where SplitExtractor would return text.
type TreeExtractor struct {
	HeadSelector string
	TailSelector string
}

// Validate compiles both selectors, applying the defaults for empty ones.
func (e TreeExtractor) Validate() error {
	_, _, err := e.matchers()
	return err
}

func (e TreeExtractor) matchers() (head, tail cascadia.Selector, err error) {
	headSel := e.HeadSelector
	if headSel == "" {
		headSel = DefaultHeadSelector
	}
	tailSel := e.TailSelector
	if tailSel == "" {
		tailSel = DefaultTailSelector
	}
	if head, err = cascadia.Compile(headSel); err != nil {
		return nil, nil, fmt.Errorf("head selector %q: %w", headSel, err)
	}
	if tail, err = cascadia.Compile(tailSel); err != nil {
		return nil, nil, fmt.Errorf("tail selector %q: %w", tailSel, err)
	}
	return head, tail, nil
}

func (e TreeExtractor) Extract(fragmentHTML string) (string, error) {
	headM, tailM, err := e.matchers()
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragmentHTML))
	if err != nil {
		return "", fmt.Errorf("parse fragment: %w", err)
	}
	head := doc.FindMatcher(headM).First()
	if head.Length() == 0 {
		marker := e.HeadSelector
		if marker == "" {
			marker = DefaultHeadSelector
		}
		return "", &MarkerNotFoundError{Marker: marker}
	}

	tails := make(map[*html.Node]bool)
	for _, n := range doc.FindMatcher(tailM).Nodes {
		tails[n] = true
	}

	var b strings.Builder
	for n := head.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
		if tails[n] {
			break
		}
		if err := html.Render(&b, n); err != nil {
			return "", fmt.Errorf("render node: %w", err)
		}
	}
	return b.String(), nil
}
