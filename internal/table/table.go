// Package table holds imported tabular data as string cells and renders it
// for the terminal or for export.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
)

// Table is a header plus rows of string cells. Rows always have
// len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Format selects a rendering.
type Format string

const (
	FormatPretty   Format = "table"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table", "pretty":
		return FormatPretty, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown table format %q", s)
}

// New builds a table, padding short rows and truncating long ones to the
// header width.
func New(columns []string, rows [][]string) Table {
	t := Table{Columns: append([]string(nil), columns...), Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, normalize(r, len(columns)))
	}
	return t
}

func normalize(r []string, width int) []string {
	out := make([]string, width)
	copy(out, r)
	return out
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Head returns a table with at most the first n rows. n <= 0 returns all rows.
func (t Table) Head(n int) Table {
	if n <= 0 || n >= len(t.Rows) {
		return t
	}
	return Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// Column returns the cells of the named column.
func (t Table) Column(name string) ([]string, bool) {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, true
}

// Render writes t to w in the given format.
func (t Table) Render(w io.Writer, f Format) error {
	if f == FormatCSV {
		return t.WriteCSV(w)
	}
	tw := prettytable.NewWriter()
	tw.SetOutputMirror(w)
	header := make(prettytable.Row, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	tw.AppendHeader(header)
	for _, r := range t.Rows {
		row := make(prettytable.Row, len(r))
		for i, v := range r {
			row[i] = v
		}
		tw.AppendRow(row)
	}
	switch f {
	case FormatMarkdown:
		tw.RenderMarkdown()
	case FormatPretty, "":
		tw.SetStyle(prettytable.StyleRounded)
		tw.Render()
	default:
		return fmt.Errorf("unknown table format %q", f)
	}
	return nil
}

// WriteCSV writes the header and rows as RFC 4180 CSV.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}
