package app

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    yaml "gopkg.in/yaml.v3"

    "github.com/hyperifyio/goingest/internal/review"
)

// ErrNoInput is returned when a command has nothing to read from.
var ErrNoInput = errors.New("no input configured")

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
    Reviews struct {
        URL          string `yaml:"url" json:"url"`
        File         string `yaml:"file" json:"file"`
        Selector     string `yaml:"selector" json:"selector"`
        Mode         string `yaml:"mode" json:"mode"`
        Markers      struct {
            Head string `yaml:"head" json:"head"`
            // Tail is a pointer so an explicit "" clears the default.
            Tail *string `yaml:"tail" json:"tail"`
        } `yaml:"markers" json:"markers"`
        HeadSelector string `yaml:"headSelector" json:"headSelector"`
        TailSelector string `yaml:"tailSelector" json:"tailSelector"`
        Placeholder  *string `yaml:"placeholder" json:"placeholder"`
        DropEmpty    bool   `yaml:"dropEmpty" json:"dropEmpty"`
        Plain        bool   `yaml:"plain" json:"plain"`
        Workers      int    `yaml:"workers" json:"workers"`
    } `yaml:"reviews" json:"reviews"`

    Output struct {
        Format string `yaml:"format" json:"format"`
        Path   string `yaml:"path" json:"path"`
        PDF    string `yaml:"pdf" json:"pdf"`
        Head   int    `yaml:"head" json:"head"`
        Table  string `yaml:"table" json:"table"`
    } `yaml:"output" json:"output"`

    Fetch struct {
        UserAgent   string        `yaml:"userAgent" json:"userAgent"`
        Timeout     time.Duration `yaml:"timeout" json:"timeout"`
        MaxAttempts int           `yaml:"maxAttempts" json:"maxAttempts"`
    } `yaml:"fetch" json:"fetch"`

    Cache struct {
        Dir         string        `yaml:"dir" json:"dir"`
        MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
        Clear       bool          `yaml:"clear" json:"clear"`
        StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
    } `yaml:"cache" json:"cache"`

    CSV struct {
        File      string `yaml:"file" json:"file"`
        Delimiter string `yaml:"delimiter" json:"delimiter"`
        Encoding  string `yaml:"encoding" json:"encoding"`
        Comment   string `yaml:"comment" json:"comment"`
        NoHeader  bool   `yaml:"noHeader" json:"noHeader"`
        SkipRows  int    `yaml:"skipRows" json:"skipRows"`
    } `yaml:"csv" json:"csv"`

    SQL struct {
        Driver string `yaml:"driver" json:"driver"`
        DSN    string `yaml:"dsn" json:"dsn"`
        Query  string `yaml:"query" json:"query"`
        Init   string `yaml:"init" json:"init"`
    } `yaml:"sql" json:"sql"`

    Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
    var fc FileConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    switch ext := filepath.Ext(path); ext {
    case ".yaml", ".yml":
        if err := yaml.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse yaml: %w", err)
        }
    case ".json":
        if err := json.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse json: %w", err)
        }
    default:
        // Try YAML then JSON
        if err := yaml.Unmarshal(b, &fc); err != nil {
            if jerr := json.Unmarshal(b, &fc); jerr != nil {
                return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
            }
        }
    }
    return fc, nil
}

// ApplyFileConfig overlays every value present in fc onto cfg. It runs before
// env and flags, which therefore take precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
    if cfg == nil { return }
    setStr := func(dst *string, v string) { if v != "" { *dst = v } }
    setInt := func(dst *int, v int) { if v > 0 { *dst = v } }
    setBool := func(dst *bool, v bool) { if v { *dst = true } }

    r := fc.Reviews
    setStr(&cfg.URL, r.URL)
    setStr(&cfg.InputFile, r.File)
    setStr(&cfg.Selector, r.Selector)
    setStr(&cfg.Mode, r.Mode)
    setStr(&cfg.HeadMarker, r.Markers.Head)
    if r.Markers.Tail != nil {
        cfg.TailMarker = *r.Markers.Tail
    }
    setStr(&cfg.HeadSelector, r.HeadSelector)
    setStr(&cfg.TailSelector, r.TailSelector)
    if r.Placeholder != nil {
        cfg.Placeholder = *r.Placeholder
        cfg.UsePlaceholder = true
    }
    setBool(&cfg.DropEmpty, r.DropEmpty)
    setBool(&cfg.PlainText, r.Plain)
    setInt(&cfg.Workers, r.Workers)

    setStr(&cfg.OutputFormat, fc.Output.Format)
    setStr(&cfg.OutputPath, fc.Output.Path)
    setStr(&cfg.PDFPath, fc.Output.PDF)
    setInt(&cfg.Head, fc.Output.Head)
    setStr(&cfg.TableFormat, fc.Output.Table)

    setStr(&cfg.UserAgent, fc.Fetch.UserAgent)
    if fc.Fetch.Timeout > 0 { cfg.Timeout = fc.Fetch.Timeout }
    setInt(&cfg.MaxAttempts, fc.Fetch.MaxAttempts)

    setStr(&cfg.CacheDir, fc.Cache.Dir)
    if fc.Cache.MaxAge > 0 { cfg.CacheMaxAge = fc.Cache.MaxAge }
    setBool(&cfg.CacheClear, fc.Cache.Clear)
    setBool(&cfg.CacheStrictPerms, fc.Cache.StrictPerms)

    setStr(&cfg.CSVPath, fc.CSV.File)
    setStr(&cfg.Delimiter, fc.CSV.Delimiter)
    setStr(&cfg.Encoding, fc.CSV.Encoding)
    setStr(&cfg.Comment, fc.CSV.Comment)
    setBool(&cfg.NoHeader, fc.CSV.NoHeader)
    setInt(&cfg.SkipRows, fc.CSV.SkipRows)

    setStr(&cfg.Driver, fc.SQL.Driver)
    setStr(&cfg.DSN, fc.SQL.DSN)
    setStr(&cfg.Query, fc.SQL.Query)
    setStr(&cfg.InitScript, fc.SQL.Init)

    setBool(&cfg.Verbose, fc.Verbose)
}

// ValidateConfig checks the settings a command needs. command is one of
// "reviews", "csv" or "sql".
func ValidateConfig(command string, cfg Config) error {
    if cfg.Workers < 0 || cfg.Head < 0 || cfg.SkipRows < 0 || cfg.MaxAttempts < 0 {
        return errors.New("config: negative limits are not allowed")
    }
    switch command {
    case "reviews":
        hasURL := strings.TrimSpace(cfg.URL) != ""
        hasFile := strings.TrimSpace(cfg.InputFile) != ""
        if !hasURL && !hasFile {
            return fmt.Errorf("config: reviews.url or reviews.file is required: %w", ErrNoInput)
        }
        if hasURL && hasFile {
            return errors.New("config: reviews.url and reviews.file are mutually exclusive")
        }
        if strings.TrimSpace(cfg.Selector) == "" {
            return errors.New("config: reviews.selector is required")
        }
        switch cfg.Mode {
        case "split":
            if cfg.HeadMarker == "" {
                return errors.New("config: reviews.markers.head is required in split mode")
            }
        case "tree":
            if strings.TrimSpace(cfg.HeadSelector) == "" {
                return errors.New("config: reviews.headSelector is required in tree mode")
            }
            tx := review.TreeExtractor{HeadSelector: cfg.HeadSelector, TailSelector: cfg.TailSelector}
            if err := tx.Validate(); err != nil {
                return fmt.Errorf("config: %w", err)
            }
        default:
            return fmt.Errorf("config: unknown mode %q (want split or tree)", cfg.Mode)
        }
    case "csv":
        if strings.TrimSpace(cfg.CSVPath) == "" {
            return fmt.Errorf("config: csv.file is required: %w", ErrNoInput)
        }
        if n := len([]rune(cfg.Comment)); n > 1 {
            return errors.New("config: csv.comment must be a single character")
        }
    case "sql":
        if strings.TrimSpace(cfg.Driver) == "" || strings.TrimSpace(cfg.DSN) == "" {
            return errors.New("config: sql.driver and sql.dsn are required")
        }
        if strings.TrimSpace(cfg.Query) == "" {
            return fmt.Errorf("config: sql.query is required: %w", ErrNoInput)
        }
    default:
        return fmt.Errorf("config: unknown command %q", command)
    }
    return nil
}
