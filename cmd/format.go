package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/b-vitamins/bibliography/internal/biblio"
	"github.com/b-vitamins/bibliography/internal/search"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	scoreHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	scoreMid    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	scoreLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score > 70:
		return scoreHigh
	case score > 40:
		return scoreMid
	default:
		return scoreLow
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// renderResults writes scored search results in the requested format:
// table, keys, paths, bibtex, or json.
func renderResults(w io.Writer, results []search.Result, format string) error {
	switch format {
	case "", "table":
		t := newTable("Score", "Key", "Type", "Author", "Year", "Title")
		for _, res := range results {
			rec := res.Record
			t.Row(
				scoreStyle(res.Score).Render(fmt.Sprintf("%.0f", res.Score)),
				truncate(rec.Key, 25),
				rec.Type,
				truncate(rec.Field("author"), 20),
				truncate(rec.Field("year"), 4),
				truncate(rec.Field("title"), 50),
			)
		}
		fmt.Fprintln(w, t)
		return nil
	case "keys":
		for _, res := range results {
			fmt.Fprintln(w, res.Record.Key)
		}
		return nil
	case "paths":
		for _, res := range results {
			if path := res.Record.AttachmentPath(); path != "" {
				fmt.Fprintln(w, path)
			}
		}
		return nil
	case "bibtex":
		for _, res := range results {
			fmt.Fprintf(w, "%% Score: %.1f\n%s\n\n", res.Score, res.Record.BibTeX())
		}
		return nil
	case "json":
		type entry struct {
			Key        string            `json:"key"`
			Type       string            `json:"type"`
			Fields     map[string]string `json:"fields"`
			SourceFile string            `json:"source_file"`
			Score      float64           `json:"score"`
		}
		out := make([]entry, len(results))
		for i, res := range results {
			out[i] = entry{
				Key:        res.Record.Key,
				Type:       res.Record.Type,
				Fields:     res.Record.Fields,
				SourceFile: res.Record.SourceFile,
				Score:      res.Score,
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// renderRecords writes unscored records in the requested format: table,
// keys, paths, or bibtex.
func renderRecords(w io.Writer, records []biblio.Record, format string) error {
	switch format {
	case "", "table":
		t := newTable("Key", "Type", "Author", "Year", "File")
		for _, rec := range records {
			t.Row(
				truncate(rec.Key, 25),
				rec.Type,
				truncate(rec.Field("author"), 20),
				truncate(rec.Field("year"), 4),
				truncate(rec.AttachmentPath(), 60),
			)
		}
		fmt.Fprintln(w, t)
		return nil
	case "keys":
		for _, rec := range records {
			fmt.Fprintln(w, rec.Key)
		}
		return nil
	case "paths":
		for _, rec := range records {
			if path := rec.AttachmentPath(); path != "" {
				fmt.Fprintln(w, path)
			}
		}
		return nil
	case "bibtex":
		for _, rec := range records {
			fmt.Fprintf(w, "%s\n\n", rec.BibTeX())
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
