package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goingest/internal/cache"
	"github.com/hyperifyio/goingest/internal/delimited"
	"github.com/hyperifyio/goingest/internal/fetch"
	"github.com/hyperifyio/goingest/internal/report"
	"github.com/hyperifyio/goingest/internal/review"
	"github.com/hyperifyio/goingest/internal/sqlquery"
	"github.com/hyperifyio/goingest/internal/table"
)

type App struct {
	cfg       Config
	httpCache *cache.HTTPCache
	fetcher   pageGetter
}

// ReviewRun is the outcome of one reviews extraction.
type ReviewRun struct {
	Source    string
	Title     string
	Fragments int
	Results   []review.Result
	Texts     []string
	FromCache bool
}

func New(ctx context.Context, cfg Config) (*App, error) {
	a := &App{cfg: cfg}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge)
			if err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("count", n).Msg("purged stale cache entries")
			}
		}
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}
	a.fetcher = &fetch.Client{
		HTTPClient:        newHTTPClient(),
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.MaxAttempts,
		PerRequestTimeout: cfg.Timeout,
		Cache:             a.httpCache,
		RedirectMaxHops:   5,
		BypassCache:       cfg.CacheClear,
	}
	return a, nil
}

func (a *App) Close() {
	// nothing yet
}

// Reviews loads the configured page, selects fragments and extracts their
// review texts according to the configured mode and policy.
func (a *App) Reviews(ctx context.Context) (ReviewRun, error) {
	var (
		s   *Session
		err error
	)
	if a.cfg.InputFile != "" {
		s, err = OpenFile(a.cfg.InputFile)
	} else {
		s, err = OpenURL(ctx, a.fetcher, a.cfg.URL)
	}
	if err != nil {
		return ReviewRun{}, err
	}

	frags, err := s.Fragments(a.cfg.Selector)
	if err != nil {
		return ReviewRun{}, fmt.Errorf("select %q: %w", a.cfg.Selector, err)
	}
	run := ReviewRun{Source: s.Source().URL, Title: s.Title(), Fragments: len(frags), FromCache: s.FromCache()}
	if len(frags) == 0 {
		log.Warn().Str("url", run.Source).Str("selector", a.cfg.Selector).Msg("no fragments matched")
		run.Texts = []string{}
		return run, nil
	}
	log.Debug().Str("selector", a.cfg.Selector).Int("count", len(frags)).Msg("fragments matched")

	ex, err := buildExtractor(a.cfg)
	if err != nil {
		return ReviewRun{}, err
	}
	if a.cfg.Workers > 1 {
		run.Results, err = review.ExtractAllParallel(ctx, ex, frags, a.cfg.Workers)
		if err != nil {
			return ReviewRun{}, err
		}
	} else {
		run.Results = review.ExtractAllWith(ex, frags)
	}
	for _, r := range run.Results {
		if !r.OK() {
			log.Debug().Err(r.Err).Int("index", r.Index).Str("outcome", r.Outcome.String()).Msg("fragment skipped")
		}
	}

	policy := review.Policy{DropEmpty: a.cfg.DropEmpty}
	if a.cfg.UsePlaceholder {
		policy.OnMissing = review.Placeholder
		policy.Placeholder = a.cfg.Placeholder
	}
	texts := review.Collect(run.Results, policy)
	if a.cfg.PlainText {
		for i, t := range texts {
			texts[i] = review.PlainText(t)
		}
	}
	if a.cfg.Head > 0 && len(texts) > a.cfg.Head {
		texts = texts[:a.cfg.Head]
	}
	run.Texts = texts
	return run, nil
}

func buildExtractor(cfg Config) (review.Extractor, error) {
	switch cfg.Mode {
	case "", "split":
		if cfg.HeadMarker == "" {
			return nil, review.ErrEmptyMarker
		}
		return review.SplitExtractor{Markers: cfg.Markers()}, nil
	case "tree":
		tx := review.TreeExtractor{HeadSelector: cfg.HeadSelector, TailSelector: cfg.TailSelector}
		if err := tx.Validate(); err != nil {
			return nil, err
		}
		return tx, nil
	}
	return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
}

// RunReviews extracts reviews and writes them to the configured output,
// stdout by default. A JSON manifest is written next to file outputs.
func (a *App) RunReviews(ctx context.Context, stdout io.Writer) error {
	format, err := report.ParseFormat(a.cfg.OutputFormat)
	if err != nil {
		return err
	}
	run, err := a.Reviews(ctx)
	if err != nil {
		return err
	}

	if a.cfg.OutputPath == "" {
		if err := report.Write(stdout, run.Texts, format); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	} else {
		if err := writeFile(a.cfg.OutputPath, func(w io.Writer) error { return report.Write(w, run.Texts, format) }); err != nil {
			return err
		}
		meta := manifestMeta{
			Source:      run.Source,
			Title:       run.Title,
			Selector:    a.cfg.Selector,
			Mode:        a.cfg.Mode,
			Markers:     a.cfg.Markers(),
			Fragments:   run.Fragments,
			Outcomes:    outcomeNames(review.Counts(run.Results)),
			FromCache:   run.FromCache,
			GeneratedAt: time.Now().UTC(),
		}
		if err := writeManifest(a.cfg.OutputPath, meta, run.Texts); err != nil {
			log.Warn().Err(err).Msg("manifest write failed")
		}
		log.Info().Str("out", a.cfg.OutputPath).Int("count", len(run.Texts)).Msg("wrote output")
	}

	if a.cfg.PDFPath != "" {
		title := strings.TrimSpace(run.Title)
		if title == "" {
			title = run.Source
		}
		if err := report.WritePDF(a.cfg.PDFPath, title, run.Texts); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("pdf", a.cfg.PDFPath).Msg("wrote PDF")
	}
	return nil
}

// RunCSV reads the configured delimited file and renders it as a table.
func (a *App) RunCSV(ctx context.Context, stdout io.Writer) error {
	format, err := table.ParseFormat(a.cfg.TableFormat)
	if err != nil {
		return err
	}
	delim, err := parseDelimiter(a.cfg.Delimiter)
	if err != nil {
		return err
	}
	var comment rune
	if a.cfg.Comment != "" {
		comment = []rune(a.cfg.Comment)[0]
	}
	t, err := delimited.ReadFile(a.cfg.CSVPath, delimited.Options{
		Delimiter: delim,
		Encoding:  a.cfg.Encoding,
		Comment:   comment,
		NoHeader:  a.cfg.NoHeader,
		SkipRows:  a.cfg.SkipRows,
	})
	if err != nil {
		return err
	}
	log.Debug().Str("file", a.cfg.CSVPath).Int("rows", t.Len()).Int("columns", len(t.Columns)).Msg("read delimited file")
	return a.renderTable(stdout, t.Head(a.cfg.Head), format)
}

// RunSQL executes the configured query and renders the result as a table.
func (a *App) RunSQL(ctx context.Context, stdout io.Writer) error {
	format, err := table.ParseFormat(a.cfg.TableFormat)
	if err != nil {
		return err
	}
	db, err := sqlquery.Open(ctx, a.cfg.Driver, a.cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if a.cfg.InitScript != "" {
		script, err := os.ReadFile(a.cfg.InitScript)
		if err != nil {
			return fmt.Errorf("read init script: %w", err)
		}
		if err := db.ExecScript(ctx, string(script)); err != nil {
			return fmt.Errorf("init script: %w", err)
		}
	}
	t, err := db.Query(ctx, a.cfg.Query)
	if err != nil {
		return err
	}
	return a.renderTable(stdout, t.Head(a.cfg.Head), format)
}

func (a *App) renderTable(stdout io.Writer, t table.Table, f table.Format) error {
	if a.cfg.OutputPath == "" {
		return t.Render(stdout, f)
	}
	if err := writeFile(a.cfg.OutputPath, func(w io.Writer) error { return t.Render(w, f) }); err != nil {
		return err
	}
	log.Info().Str("out", a.cfg.OutputPath).Int("rows", t.Len()).Msg("wrote table")
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}

// parseDelimiter maps the user-facing delimiter names to a rune. "auto" and
// the empty string return zero, which makes the reader sniff.
func parseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return 0, nil
	case "\\t", "\t", "tab", "tsv":
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return r[0], nil
}
