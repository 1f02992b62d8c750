package review

import (
	"errors"
	"fmt"
	"strings"
)

// Markers delimit the region of interest inside a serialized fragment.
// Head is required. An empty Tail means the fragment has no trailing
// boilerplate and everything after Head is kept.
type Markers struct {
	Head string `yaml:"head" json:"head"`
	Tail string `yaml:"tail" json:"tail"`
}

// DefaultMarkers match the common review card layout: a title span followed
// by the review body and a hidden "review-link" container.
var DefaultMarkers = Markers{
	Head: "</span>",
	Tail: `<div class="review-link`,
}

// ErrMarkerNotFound is matched (via errors.Is) by every MarkerNotFoundError.
var ErrMarkerNotFound = errors.New("marker not found")

// ErrEmptyMarker is returned when the head marker is empty.
var ErrEmptyMarker = errors.New("empty head marker")

// MarkerNotFoundError reports that the head marker (or head selector for the
// tree extractor) does not occur in a fragment. It is a per-item failure.
type MarkerNotFoundError struct {
	Marker string
}

func (e *MarkerNotFoundError) Error() string {
	return fmt.Sprintf("marker %q not found", e.Marker)
}

func (e *MarkerNotFoundError) Is(target error) bool {
	return target == ErrMarkerNotFound
}

// Extract returns the text strictly between the first occurrence of m.Head
// and the first occurrence of m.Tail. Whitespace is preserved as-is.
//
// If the tail marker is absent the whole remainder after the head is
// returned. If the first tail occurrence starts before the head marker ends
// (tail precedes or overlaps head) the result is the empty string.
func Extract(fragmentHTML string, m Markers) (string, error) {
	if m.Head == "" {
		return "", ErrEmptyMarker
	}
	i := strings.Index(fragmentHTML, m.Head)
	if i < 0 {
		return "", &MarkerNotFoundError{Marker: m.Head}
	}
	headEnd := i + len(m.Head)
	if m.Tail == "" {
		return fragmentHTML[headEnd:], nil
	}
	t := strings.Index(fragmentHTML, m.Tail)
	if t < 0 {
		return fragmentHTML[headEnd:], nil
	}
	if t < headEnd {
		return "", nil
	}
	return fragmentHTML[headEnd:t], nil
}
