// Package delimited reads CSV-like text files into tables, coping with the
// usual quirks of exported spreadsheets: legacy code pages, byte order marks,
// semicolon or tab separators and metadata rows above the header.
package delimited

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/hyperifyio/goingest/internal/table"
)

// ErrEmptyInput is returned when the input holds no records.
var ErrEmptyInput = errors.New("empty input")

// Options control how a file is decoded and split. The zero value sniffs
// everything and treats the first record as the header.
type Options struct {
	// Delimiter is the field separator. Zero sniffs one of , ; TAB |.
	Delimiter rune
	// Encoding is a WHATWG label such as "utf-8", "latin1", "windows-1252",
	// "utf-16le" or "shift_jis". Empty or "auto" honors a BOM and falls back
	// to windows-1252 when the bytes are not valid UTF-8.
	Encoding string
	// Comment, when non-zero, marks lines to ignore.
	Comment rune
	// NoHeader generates col1..colN names instead of reading a header row.
	NoHeader bool
	// SkipRows drops this many physical lines before parsing.
	SkipRows         int
	LazyQuotes       bool
	TrimLeadingSpace bool
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string, opts Options) (table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return table.Table{}, err
	}
	defer f.Close()
	t, err := Read(f, opts)
	if err != nil {
		return table.Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read decodes r to UTF-8 and parses it into a table.
func Read(r io.Reader, opts Options) (table.Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return table.Table{}, fmt.Errorf("read: %w", err)
	}
	log.Debug().Int("bytes", len(raw)).Bool("bom", HasBOM(raw)).Str("encoding", opts.Encoding).Msg("decoding delimited input")
	text, err := Decode(raw, opts.Encoding)
	if err != nil {
		return table.Table{}, err
	}
	text = skipLines(text, opts.SkipRows)
	if strings.TrimSpace(text) == "" {
		return table.Table{}, ErrEmptyInput
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = Sniff(text, opts.Comment)
		log.Debug().Str("delimiter", strconv.QuoteRune(delim)).Msg("sniffed delimiter")
	}
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = delim
	cr.Comment = opts.Comment
	cr.LazyQuotes = opts.LazyQuotes
	cr.TrimLeadingSpace = opts.TrimLeadingSpace
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return table.Table{}, fmt.Errorf("parse: %w", err)
	}
	if len(records) == 0 {
		return table.Table{}, ErrEmptyInput
	}

	var header []string
	if !opts.NoHeader {
		header, records = records[0], records[1:]
	}
	width := len(header)
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	return table.New(columnNames(header, width), records), nil
}

// Decode converts raw bytes to a UTF-8 string according to the encoding
// label (see Options.Encoding). A BOM always wins over the label.
func Decode(raw []byte, label string) (string, error) {
	var fallback encoding.Encoding
	switch l := strings.ToLower(strings.TrimSpace(label)); l {
	case "", "auto":
		if utf8.Valid(raw) {
			fallback = unicode.UTF8
		} else {
			fallback = charmap.Windows1252
		}
	default:
		enc, err := htmlindex.Get(l)
		if err != nil {
			return "", fmt.Errorf("unknown encoding %q: %w", label, err)
		}
		fallback = enc
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(fallback.NewDecoder()), raw)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return string(out), nil
}

// Sniff guesses the delimiter from the first non-comment line by counting
// candidate separators outside double quotes. Ties prefer the earlier
// candidate in the order , ; TAB |.
func Sniff(text string, comment rune) rune {
	candidates := []rune{',', ';', '\t', '|'}
	line := firstDataLine(text, comment)
	best, bestCount := ',', 0
	for _, c := range candidates {
		if n := countOutsideQuotes(line, c); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func firstDataLine(text string, comment rune) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if comment != 0 && strings.HasPrefix(trimmed, string(comment)) {
			continue
		}
		return line
	}
	return ""
}

func countOutsideQuotes(line string, sep rune) int {
	n := 0
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == sep && !inQuotes:
			n++
		}
	}
	return n
}

func skipLines(text string, n int) string {
	for i := 0; i < n && text != ""; i++ {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			return ""
		}
		text = text[idx+1:]
	}
	return text
}

// columnNames fills blanks with colN, suffixes duplicates and extends the
// header to width.
func columnNames(header []string, width int) []string {
	out := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = "col" + strconv.Itoa(i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = name + "_" + strconv.Itoa(n)
		}
		out[i] = name
	}
	return out
}

// HasBOM reports whether raw starts with a UTF-8 or UTF-16 byte order mark.
func HasBOM(raw []byte) bool {
	return bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(raw, []byte{0xFE, 0xFF})
}
