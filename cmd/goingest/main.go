package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/hyperifyio/goingest/internal/app"
)

const usage = `usage: goingest <command> [flags]

commands:
  reviews   extract review texts from an HTML page
  csv       read a delimited text file into a table
  sql       run a query and print the result as a table

Run "goingest <command> -h" for command flags.
`

// errUsage marks failures that should exit with status 2.
var errUsage = errors.New("usage")

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// runMain executes one command and returns the process exit code:
// 0 on success, 1 on runtime failure and 2 on usage or config errors.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return 2
	}
	command, rest := args[0], args[1:]

	cfg, err := loadConfig(command, rest, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		log.Error().Err(err).Msg("invalid configuration")
		return 2
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(ctx, command, cfg, stdout); err != nil {
		log.Error().Err(err).Str("command", command).Msg("run failed")
		return 1
	}
	return 0
}

// loadConfig layers defaults, the config file, the environment and flags,
// in increasing order of precedence.
func loadConfig(command string, args []string, stderr io.Writer) (app.Config, error) {
	switch command {
	case "reviews", "csv", "sql":
	default:
		fmt.Fprint(stderr, usage)
		return app.Config{}, fmt.Errorf("unknown command %q: %w", command, errUsage)
	}

	configPath := scanFlag(args, "config")
	envPath := scanFlag(args, "env")
	envFiles := []string{".env"}
	if envPath != "" {
		envFiles = append(envFiles, envPath)
	}
	if err := app.LoadEnvFiles(envFiles...); err != nil {
		return app.Config{}, err
	}

	cfg := app.DefaultConfig()
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return app.Config{}, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	fs := flag.NewFlagSet("goingest "+command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.String("config", configPath, "Path to a YAML or JSON config file")
	fs.String("env", envPath, "Path to an additional dotenv file")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.IntVar(&cfg.Head, "head", cfg.Head, "Emit at most N items (0 means all)")
	fs.StringVar(&cfg.OutputPath, "output", cfg.OutputPath, "Write output to this file instead of stdout")

	switch command {
	case "reviews":
		fs.StringVar(&cfg.URL, "url", cfg.URL, "Page URL to fetch")
		fs.StringVar(&cfg.InputFile, "file", cfg.InputFile, "Saved HTML page to read instead of fetching")
		fs.StringVar(&cfg.Selector, "selector", cfg.Selector, "CSS selector for review fragments")
		fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Extraction mode: split or tree")
		fs.StringVar(&cfg.HeadMarker, "head-marker", cfg.HeadMarker, "Text after which the review starts (split mode)")
		fs.StringVar(&cfg.TailMarker, "tail-marker", cfg.TailMarker, "Text before which the review ends; empty keeps the remainder (split mode)")
		fs.StringVar(&cfg.HeadSelector, "head-selector", cfg.HeadSelector, "Element after which the review starts (tree mode)")
		fs.StringVar(&cfg.TailSelector, "tail-selector", cfg.TailSelector, "Element before which the review ends (tree mode)")
		fs.Func("placeholder", "Emit this text for fragments without the head marker instead of skipping them", func(s string) error {
			cfg.Placeholder = s
			cfg.UsePlaceholder = true
			return nil
		})
		fs.BoolVar(&cfg.DropEmpty, "drop-empty", cfg.DropEmpty, "Drop empty extractions")
		fs.BoolVar(&cfg.PlainText, "plain", cfg.PlainText, "Strip leftover inline tags from extracted text")
		fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Parallel extraction workers")
		fs.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: lines, csv, markdown or json")
		fs.StringVar(&cfg.PDFPath, "pdf", cfg.PDFPath, "Also render the reviews to this PDF file")
		fs.StringVar(&cfg.UserAgent, "ua", cfg.UserAgent, "User-Agent header for page fetches")
		fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Fetch timeout per attempt")
		fs.IntVar(&cfg.MaxAttempts, "retries", cfg.MaxAttempts, "Fetch attempts including the first; retries only transient errors")
		fs.StringVar(&cfg.CacheDir, "cache.dir", cfg.CacheDir, "HTTP cache directory; empty disables caching")
		fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", cfg.CacheMaxAge, "Purge cache entries older than this (e.g. 24h); 0 disables")
		fs.BoolVar(&cfg.CacheClear, "cache.clear", cfg.CacheClear, "Clear cache directory before run")
		fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", cfg.CacheStrictPerms, "Restrict cache permissions (0700 dirs, 0600 files)")
	case "csv":
		fs.StringVar(&cfg.CSVPath, "file", cfg.CSVPath, "Delimited text file to read")
		fs.StringVar(&cfg.Delimiter, "delimiter", cfg.Delimiter, "Field delimiter: auto, ',', ';', tab or '|'")
		fs.StringVar(&cfg.Encoding, "encoding", cfg.Encoding, "Text encoding label (auto, utf-8, latin1, windows-1252, utf-16le, ...)")
		fs.StringVar(&cfg.Comment, "comment", cfg.Comment, "Ignore lines starting with this character")
		fs.BoolVar(&cfg.NoHeader, "no-header", cfg.NoHeader, "First row is data; generate col1..colN names")
		fs.IntVar(&cfg.SkipRows, "skip", cfg.SkipRows, "Skip this many lines before parsing")
		fs.StringVar(&cfg.TableFormat, "format", cfg.TableFormat, "Table format: table, csv or markdown")
	case "sql":
		fs.StringVar(&cfg.Driver, "driver", cfg.Driver, "database/sql driver name")
		fs.StringVar(&cfg.DSN, "dsn", cfg.DSN, "Data source name")
		fs.StringVar(&cfg.Query, "query", cfg.Query, "SQL query to run")
		fs.StringVar(&cfg.InitScript, "init", cfg.InitScript, "SQL script to execute before the query")
		fs.StringVar(&cfg.TableFormat, "format", cfg.TableFormat, "Table format: table, csv or markdown")
	}

	if err := fs.Parse(args); err != nil {
		return app.Config{}, err
	}
	if fs.NArg() > 0 {
		return app.Config{}, fmt.Errorf("unexpected arguments %q: %w", fs.Args(), errUsage)
	}
	if err := app.ValidateConfig(command, cfg); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

// scanFlag finds the value of -name or --name before full parsing so the
// config file can seed flag defaults.
func scanFlag(args []string, name string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			break
		}
		a = strings.TrimPrefix(strings.TrimPrefix(a, "-"), "-")
		if a == name && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(a, name+"=") {
			return strings.TrimPrefix(a, name+"=")
		}
	}
	return ""
}

func run(ctx context.Context, command string, cfg app.Config, stdout io.Writer) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	switch command {
	case "reviews":
		return a.RunReviews(ctx, stdout)
	case "csv":
		return a.RunCSV(ctx, stdout)
	case "sql":
		return a.RunSQL(ctx, stdout)
	}
	return fmt.Errorf("unknown command %q", command)
}
