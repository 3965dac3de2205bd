package view

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// Format selects how listings are printed.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json, yaml or csv)", s)
	}
}

// Row is one printable line of a listing.
type Row interface {
	Headers() []string
	Cells() []string
}

// Write prints rows in format f. Table output styles cells; the other formats are plain data.
func Write[T Row](w io.Writer, f Format, rows []T) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		return gocsv.Marshal(rows, w)
	case FormatTable, "":
		var zero T
		_, err := io.WriteString(w, table(zero.Headers(), rows))
		return err
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}

func table[T Row](headers []string, rows []T) string {
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells = append(cells, r.Cells())
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range cells {
		for i, c := range row {
			if i < len(widths) && lipgloss.Width(c) > widths[i] {
				widths[i] = lipgloss.Width(c)
			}
		}
	}

	var b strings.Builder
	line := func(row []string, style func(int, string) string) {
		for i, c := range row {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				b.WriteString("  ")
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(c))
			b.WriteString(style(i, c) + pad)
		}
		b.WriteString("\n")
	}
	line(headers, func(_ int, s string) string { return headerStyle.Render(s) })
	for _, row := range cells {
		line(row, func(_ int, s string) string { return s })
	}
	if len(cells) == 0 {
		b.WriteString(dimStyle.Render("  (none)") + "\n")
	}
	return b.String()
}
