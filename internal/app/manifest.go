package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"github.com/hyperifyio/goingest/internal/review"
)

// manifestEntry is a compact record of a single emitted review text.
type manifestEntry struct {
	Index  int    `json:"index"`
	SHA256 string `json:"sha256"`
	Chars  int    `json:"chars"`
}

// manifestMeta captures the run details needed to reproduce an extraction.
type manifestMeta struct {
	Source      string         `json:"source"`
	Title       string         `json:"title,omitempty"`
	Selector    string         `json:"selector"`
	Mode        string         `json:"mode"`
	Markers     review.Markers `json:"markers"`
	Fragments   int            `json:"fragments"`
	Outcomes    map[string]int `json:"outcomes"`
	FromCache   bool           `json:"from_cache"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// computeSHA256Hex returns a lowercase hex-encoded SHA-256 of the given text.
func computeSHA256Hex(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func buildManifestEntries(texts []string) []manifestEntry {
	out := make([]manifestEntry, 0, len(texts))
	for i, t := range texts {
		out = append(out, manifestEntry{Index: i + 1, SHA256: computeSHA256Hex(t), Chars: len([]rune(t))})
	}
	return out
}

func outcomeNames(counts map[review.Outcome]int) map[string]int {
	m := make(map[string]int, len(counts))
	for o, n := range counts {
		m[o.String()] = n
	}
	return m
}

// marshalManifestJSON encodes a machine-readable sidecar manifest.
func marshalManifestJSON(meta manifestMeta, entries []manifestEntry) ([]byte, error) {
	payload := struct {
		Meta    manifestMeta    `json:"meta"`
		Reviews []manifestEntry `json:"reviews"`
	}{Meta: meta, Reviews: entries}
	return json.MarshalIndent(payload, "", "  ")
}

// deriveManifestSidecarPath returns a sidecar JSON path next to the output file.
func deriveManifestSidecarPath(outputPath string) string {
	return outputPath + ".manifest.json"
}

func writeManifest(outputPath string, meta manifestMeta, texts []string) error {
	b, err := marshalManifestJSON(meta, buildManifestEntries(texts))
	if err != nil {
		return err
	}
	return os.WriteFile(deriveManifestSidecarPath(outputPath), b, 0o644)
}
