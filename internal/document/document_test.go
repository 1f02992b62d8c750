package document

import (
	"strings"
	"testing"
)

const page = `<!doctype html>
<html>
  <head><title> Reviews </title></head>
  <body>
    <div id="list">
      <div class="review"><span class="review-title">A</span>First<div class="review-link">x</div></div>
      <div class="review"><span class="review-title">B</span>Second<div class="review-link">y</div></div>
    </div>
    <div class="review">Third</div>
  </body>
</html>`

func TestSelect_DocumentOrder(t *testing.T) {
	tree, err := Parse(Raw{URL: "http://example.test", HTML: page})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tree.Title() != "Reviews" {
		t.Fatalf("unexpected title %q", tree.Title())
	}
	frags := tree.Select(".review")
	if len(frags) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(frags))
	}
	want := []string{"AFirstx", "BSecondy", "Third"}
	for i, f := range frags {
		if f.Text() != want[i] {
			t.Fatalf("fragment %d: expected %q, got %q", i, want[i], f.Text())
		}
	}
}

func TestSelect_DescendantAndID(t *testing.T) {
	tree, err := Parse(Raw{HTML: page})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n := len(tree.Select("#list .review")); n != 2 {
		t.Fatalf("expected 2 nested reviews, got %d", n)
	}
	if n := len(tree.Select("span")); n != 2 {
		t.Fatalf("expected 2 spans, got %d", n)
	}
}

func TestSelect_Restartable(t *testing.T) {
	tree, err := Parse(Raw{HTML: page})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a, err := Serialize(tree.Select(".review"))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	b, err := Serialize(tree.Select(".review"))
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if strings.Join(a, "|") != strings.Join(b, "|") {
		t.Fatalf("re-querying changed results")
	}
}

func TestSelect_NoMatchIsEmpty(t *testing.T) {
	tree, err := Parse(Raw{HTML: page})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	frags := tree.Select(".missing")
	if frags == nil || len(frags) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", frags)
	}
}

func TestSelectChecked_InvalidSelector(t *testing.T) {
	tree, err := Parse(Raw{HTML: page})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := tree.SelectChecked("div[["); err == nil {
		t.Fatalf("expected selector compile error")
	}
	if got := tree.Select("div[["); len(got) != 0 {
		t.Fatalf("expected no matches for invalid selector")
	}
}

func TestOuterHTML_KeepsMarkers(t *testing.T) {
	tree, err := Parse(Raw{HTML: page})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s, err := tree.Select("#list .review")[0].OuterHTML()
	if err != nil {
		t.Fatalf("outer html: %v", err)
	}
	if !strings.Contains(s, `</span>First<div class="review-link">`) {
		t.Fatalf("unexpected serialization %q", s)
	}
	if v, ok := tree.Select("#list")[0].Attr("id"); !ok || v != "list" {
		t.Fatalf("expected id attribute")
	}
}
