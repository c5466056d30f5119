// Package output renders trace records and analysis reports. It supports
// text, JSON, and table formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tkrenek/fbmask/internal/parser"
	"github.com/tkrenek/fbmask/internal/pseudonym"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
	color  ColorMode
}

// New creates a new output Writer.
func New(w io.Writer, format Format, color ColorMode) *Writer {
	return &Writer{w: w, format: format, color: color}
}

// WriteRecords outputs a slice of trace records in the configured format.
func (wr *Writer) WriteRecords(records []parser.TraceRecord) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(records)
	case FormatTable:
		return wr.writeRecordTable(records)
	default:
		for _, rec := range records {
			if err := wr.WriteRecord(rec); err != nil {
				return err
			}
		}
		return nil
	}
}

// WriteRecord outputs one record as a rendered trace block. Used by the
// streaming paths (mask, follow) where records arrive one at a time.
func (wr *Writer) WriteRecord(rec parser.TraceRecord) error {
	block := rec.Render()
	if shouldColorize(wr.color, wr.w) {
		block = colorizeBlock(rec, block)
	}
	_, err := fmt.Fprintln(wr.w, block)
	return err
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (wr *Writer) writeRecordTable(records []parser.TraceRecord) error {
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tACTION\tUSER\tTX\tDURATION\tSTATEMENT")
	fmt.Fprintln(tw, "---------\t------\t----\t--\t--------\t---------")

	for _, rec := range records {
		stmt := firstLine(rec.SqlStatement)
		if len(stmt) > 60 {
			stmt = stmt[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dms\t%s\n",
			rec.Timestamp, rec.Action, rec.User, rec.RootTxID, rec.DurationMs, stmt)
	}

	return tw.Flush()
}

// WriteReport outputs the end-of-run analysis report.
func (wr *Writer) WriteReport(report pseudonym.Report) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(report)
	case FormatTable:
		return wr.writeReportTable(report)
	default:
		return wr.writeReportText(report)
	}
}

func (wr *Writer) writeReportText(report pseudonym.Report) error {
	sections := []struct {
		title   string
		entries []pseudonym.EntryCount
	}{
		{"String literals", report.Literals},
		{"WHERE clauses", report.WhereClauses},
		{"HAVING clauses", report.HavingClauses},
	}

	for _, sec := range sections {
		fmt.Fprintf(wr.w, "%s (%d distinct):\n", sec.title, len(sec.entries))
		if len(sec.entries) == 0 {
			fmt.Fprintln(wr.w, "  (none)")
		}
		for i, e := range sec.entries {
			fmt.Fprintf(wr.w, "  %2d. %6dx  %s\n", i+1, e.Count, e.Value)
		}
		fmt.Fprintln(wr.w)
	}
	return nil
}

func (wr *Writer) writeReportTable(report pseudonym.Report) error {
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tCOUNT\tVALUE")
	fmt.Fprintln(tw, "----\t-----\t-----")

	write := func(kind string, entries []pseudonym.EntryCount) {
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", kind, e.Count, e.Value)
		}
	}
	write("literal", report.Literals)
	write("where", report.WhereClauses)
	write("having", report.HavingClauses)

	return tw.Flush()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
