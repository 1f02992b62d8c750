package app

import (
	"time"

	"github.com/hyperifyio/goingest/internal/review"
)

// Config holds runtime configuration for all commands.
type Config struct {
	// Reviews source: exactly one of URL or InputFile.
	URL       string
	InputFile string
	Selector  string

	// Extraction
	Mode         string // "split" or "tree"
	HeadMarker   string
	TailMarker   string
	HeadSelector string
	TailSelector string
	Placeholder  string
	// UsePlaceholder emits Placeholder for fragments without the head marker
	// instead of omitting them.
	UsePlaceholder bool
	DropEmpty      bool
	PlainText      bool
	Workers        int

	// Output
	OutputFormat string
	OutputPath   string
	PDFPath      string
	Head         int

	// Fetch
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool

	// Delimited files
	CSVPath     string
	Delimiter   string
	Encoding    string
	Comment     string
	NoHeader    bool
	SkipRows    int
	TableFormat string

	// SQL
	Driver     string
	DSN        string
	Query      string
	InitScript string

	Verbose bool
}

// Defaults used for flags and for detecting unset values.
const (
	DefaultSelector     = ".review"
	DefaultMode         = "split"
	DefaultOutputFormat = "lines"
	DefaultTableFormat  = "table"
	DefaultTimeout      = 30 * time.Second
	DefaultDriver       = "sqlite"
)

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		Selector:     DefaultSelector,
		Mode:         DefaultMode,
		HeadMarker:   review.DefaultMarkers.Head,
		TailMarker:   review.DefaultMarkers.Tail,
		HeadSelector: review.DefaultHeadSelector,
		TailSelector: review.DefaultTailSelector,
		Workers:      1,
		OutputFormat: DefaultOutputFormat,
		TableFormat:  DefaultTableFormat,
		Timeout:      DefaultTimeout,
		MaxAttempts:  1,
		Encoding:     "auto",
		Delimiter:    "auto",
		Driver:       DefaultDriver,
	}
}

// Markers returns the split markers configured for extraction.
func (c Config) Markers() review.Markers {
	return review.Markers{Head: c.HeadMarker, Tail: c.TailMarker}
}
