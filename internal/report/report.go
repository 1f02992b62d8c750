// Package report writes extracted review texts in a few simple formats.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format selects the output encoding for Write.
type Format string

const (
	// FormatLines writes one text per line. Backslashes and embedded line
	// breaks are escaped as \\, \n and \r; use csv or json to keep texts
	// byte for byte.
	FormatLines    Format = "lines"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lines", "text", "txt":
		return FormatLines, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Entry is one exported text together with its position in the output.
type Entry struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Entries numbers texts from 1.
func Entries(texts []string) []Entry {
	out := make([]Entry, len(texts))
	for i, t := range texts {
		out[i] = Entry{Index: i + 1, Text: t}
	}
	return out
}

var lineEscaper = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`)

// Write encodes texts to w in order.
func Write(w io.Writer, texts []string, f Format) error {
	switch f {
	case FormatLines, "":
		for _, t := range texts {
			if _, err := io.WriteString(w, lineEscaper.Replace(t)+"\n"); err != nil {
				return err
			}
		}
		return nil
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"index", "text"}); err != nil {
			return err
		}
		for _, e := range Entries(texts) {
			if err := cw.Write([]string{strconv.Itoa(e.Index), e.Text}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatMarkdown:
		for _, e := range Entries(texts) {
			line := strings.Join(strings.Fields(e.Text), " ")
			if _, err := fmt.Fprintf(w, "%d. %s\n", e.Index, line); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Entries(texts))
	}
	return fmt.Errorf("unknown output format %q", f)
}
