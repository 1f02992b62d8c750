package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHTTPCache_SaveLoad(t *testing.T) {
	t.Parallel()
	c := &HTTPCache{Dir: t.TempDir()}
	url := "https://example.com/reviews"
	if err := c.Save(context.Background(), url, "text/html", `"e1"`, "Mon, 02 Jan 2006 15:04:05 GMT", []byte("body")); err != nil {
		t.Fatalf("save: %v", err)
	}
	meta, err := c.LoadMeta(context.Background(), url)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if meta.URL != url || meta.ETag != `"e1"` || meta.ContentType != "text/html" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	body, err := c.LoadBody(context.Background(), url)
	if err != nil || string(body) != "body" {
		t.Fatalf("unexpected body %q %v", body, err)
	}
}

func TestHTTPCache_Unconfigured(t *testing.T) {
	t.Parallel()
	var c *HTTPCache
	if _, err := c.LoadBody(context.Background(), "x"); err == nil {
		t.Fatalf("expected error for nil cache")
	}
}

func TestHTTPCache_StrictPerms(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "http")
	c := &HTTPCache{Dir: dir, StrictPerms: true}
	url := "https://example.com/x"
	if err := c.Save(context.Background(), url, "text/html", "etag", "", []byte("hello")); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if got := info.Mode() & 0o777; got != 0o700 {
		t.Fatalf("dir mode = %o, want 0700", got)
	}
	finfo, err := os.Stat(filepath.Join(dir, Key(url)+".body"))
	if err != nil {
		t.Fatalf("stat body: %v", err)
	}
	if got := finfo.Mode() & 0o777; got != 0o600 {
		t.Fatalf("body mode = %o, want 0600", got)
	}
}

func TestPurgeByAge(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	for _, u := range []string{"https://a.test/1", "https://a.test/2"} {
		if err := c.Save(context.Background(), u, "text/html", "", "", []byte(u)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	removed, err := purgeByAge(dir, time.Minute, time.Now().UTC())
	if err != nil || removed != 0 {
		t.Fatalf("fresh entries must survive: removed=%d err=%v", removed, err)
	}
	removed, err = purgeByAge(dir, time.Minute, time.Now().UTC().Add(time.Hour))
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 removed, got %d (%v)", removed, err)
	}
	if _, err := c.LoadBody(context.Background(), "https://a.test/1"); err == nil {
		t.Fatalf("expected body removed")
	}
}

func TestPurgeByAge_DisabledAndMissingDir(t *testing.T) {
	t.Parallel()
	if n, err := PurgeByAge(t.TempDir(), 0); n != 0 || err != nil {
		t.Fatalf("disabled purge: %d %v", n, err)
	}
	if n, err := PurgeByAge(filepath.Join(t.TempDir(), "nope"), time.Hour); n != 0 || err != nil {
		t.Fatalf("missing dir: %d %v", n, err)
	}
}

func TestClearDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x.body"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ClearDir(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty dir, got %d entries (%v)", len(entries), err)
	}
	if err := ClearDir("  "); err == nil {
		t.Fatalf("expected error for blank dir")
	}
}
