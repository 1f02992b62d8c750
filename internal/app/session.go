package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goingest/internal/document"
	"github.com/hyperifyio/goingest/internal/fetch"
)

// pageGetter abstracts the fetch method used by sessions so tests can
// substitute a stub.
type pageGetter interface {
	Get(ctx context.Context, url string) (fetch.Page, error)
}

// Session owns one loaded document and its parse tree. Fragments returned
// from it are only valid while the session is in use.
type Session struct {
	raw       document.Raw
	tree      *document.Tree
	fromCache bool
}

// OpenURL fetches url and parses it. Fetch failures are returned unchanged
// so callers can match *fetch.TransportError.
func OpenURL(ctx context.Context, g pageGetter, url string) (*Session, error) {
	page, err := g.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("url", url).Int("bytes", len(page.Body)).Bool("cache", page.FromCache).Msg("fetched page")
	s, err := newSession(document.Raw{URL: url, HTML: page.Text})
	if err != nil {
		return nil, err
	}
	s.fromCache = page.FromCache
	return s, nil
}

// OpenFile reads a saved HTML page from disk, sniffing its charset.
func OpenFile(path string) (*Session, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	text, err := fetch.DecodeUTF8(b, "")
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return newSession(document.Raw{URL: "file://" + filepath.ToSlash(abs), HTML: text})
}

func newSession(raw document.Raw) (*Session, error) {
	tree, err := document.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &Session{raw: raw, tree: tree}, nil
}

// Source returns the raw document backing the session.
func (s *Session) Source() document.Raw { return s.raw }

// FromCache reports whether the page was served from the HTTP cache.
func (s *Session) FromCache() bool { return s.fromCache }

// Title returns the page title.
func (s *Session) Title() string { return s.tree.Title() }

// Fragments returns the serialized HTML of every node matching selector, in
// document order. No match is an empty slice.
func (s *Session) Fragments(selector string) ([]string, error) {
	frags, err := s.tree.SelectChecked(selector)
	if err != nil {
		return nil, err
	}
	return document.Serialize(frags)
}
