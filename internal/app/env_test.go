package app

import (
    "os"
    "path/filepath"
    "testing"
    "time"
)

// LoadEnvFiles reads KEY=VALUE pairs and populates os.Environ.
func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
    t.Setenv("FOO", "")
    t.Setenv("BAR", "")

    dir := t.TempDir()
    envPath := filepath.Join(dir, ".env.test")
    content := "\n# sample dotenv file\nFOO=alpha\nBAR=\"beta gamma\"\n"
    if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
        t.Fatalf("write dotenv: %v", err)
    }

    if err := LoadEnvFiles(envPath); err != nil {
        t.Fatalf("LoadEnvFiles error: %v", err)
    }

    if got := os.Getenv("FOO"); got != "alpha" {
        t.Fatalf("FOO=%q, want alpha", got)
    }
    if got := os.Getenv("BAR"); got != "beta gamma" {
        t.Fatalf("BAR=%q, want beta gamma", got)
    }
}

// Later files override earlier ones when loading multiple dotenv files.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
    t.Setenv("K", "")
    dir := t.TempDir()
    a := filepath.Join(dir, ".env.a")
    b := filepath.Join(dir, ".env.b")
    if err := os.WriteFile(a, []byte("K=first\n"), 0o600); err != nil { t.Fatalf("write a: %v", err) }
    if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil { t.Fatalf("write b: %v", err) }

    if err := LoadEnvFiles(a, b); err != nil {
        t.Fatalf("LoadEnvFiles error: %v", err)
    }
    if got := os.Getenv("K"); got != "second" {
        t.Fatalf("override order failed: got %q, want second", got)
    }
}

func TestLoadEnvFiles_KeepsProcessEnvAndSkipsMissing(t *testing.T) {
    t.Setenv("KEEP", "process")
    dir := t.TempDir()
    p := filepath.Join(dir, ".env")
    if err := os.WriteFile(p, []byte("KEEP=file\n"), 0o600); err != nil { t.Fatalf("write: %v", err) }

    if err := LoadEnvFiles(filepath.Join(dir, "missing.env"), p); err != nil {
        t.Fatalf("LoadEnvFiles error: %v", err)
    }
    if got := os.Getenv("KEEP"); got != "process" {
        t.Fatalf("process env overwritten: %q", got)
    }
}

func TestApplyEnvOverrides_FromEnv(t *testing.T) {
    t.Setenv("GOINGEST_URL", "https://example.com/product")
    t.Setenv("GOINGEST_SELECTOR", "div.review")
    t.Setenv("GOINGEST_HEAD_MARKER", "<p>")
    t.Setenv("GOINGEST_TAIL_MARKER", "</p>")
    t.Setenv("GOINGEST_PLACEHOLDER", "")
    t.Setenv("GOINGEST_DSN", "file:test.db")
    t.Setenv("CACHE_DIR", "/tmp/goingest-cache")
    t.Setenv("CACHE_MAX_AGE", "2h")
    t.Setenv("GOINGEST_WORKERS", "4")
    t.Setenv("VERBOSE", "yes")

    cfg := DefaultConfig()
    ApplyEnvOverrides(&cfg)

    if cfg.URL != "https://example.com/product" || cfg.Selector != "div.review" {
        t.Fatalf("source not applied: %+v", cfg)
    }
    if cfg.HeadMarker != "<p>" || cfg.TailMarker != "</p>" {
        t.Fatalf("markers not applied: %q %q", cfg.HeadMarker, cfg.TailMarker)
    }
    if !cfg.UsePlaceholder || cfg.Placeholder != "" {
        t.Fatalf("empty placeholder should still enable the placeholder policy")
    }
    if cfg.DSN != "file:test.db" || cfg.Driver != DefaultDriver {
        t.Fatalf("sql settings: %q %q", cfg.Driver, cfg.DSN)
    }
    if cfg.CacheDir != "/tmp/goingest-cache" || cfg.CacheMaxAge != 2*time.Hour {
        t.Fatalf("cache settings: %q %v", cfg.CacheDir, cfg.CacheMaxAge)
    }
    if cfg.Workers != 4 || !cfg.Verbose {
        t.Fatalf("workers/verbose: %d %v", cfg.Workers, cfg.Verbose)
    }
}

func TestApplyEnvOverrides_IgnoresInvalidValues(t *testing.T) {
    t.Setenv("HTTP_TIMEOUT", "soon")
    t.Setenv("GOINGEST_WORKERS", "-3")
    t.Setenv("VERBOSE", "maybe")

    cfg := DefaultConfig()
    ApplyEnvOverrides(&cfg)
    if cfg.Timeout != DefaultTimeout || cfg.Workers != 1 || cfg.Verbose {
        t.Fatalf("invalid env values must be ignored: %+v", cfg)
    }
}

func TestApplyEnvOverrides_EmptyTailMarker(t *testing.T) {
    t.Setenv("GOINGEST_TAIL_MARKER", "")

    cfg := DefaultConfig()
    ApplyEnvOverrides(&cfg)
    if cfg.TailMarker != "" {
        t.Fatalf("set but empty GOINGEST_TAIL_MARKER must clear the tail, got %q", cfg.TailMarker)
    }
}
