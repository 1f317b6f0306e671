package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mallardlabs/mallard/pkg/grid"
)

// renderGrid writes a result grid in the requested format. The grid's
// view (filters and sort applied) is what gets rendered.
func renderGrid(w io.Writer, g *grid.Grid, format string) error {
	switch format {
	case "json":
		return renderGridJSON(w, g)
	case "csv":
		return renderGridCSV(w, g)
	case "md", "markdown":
		return renderGridMarkdown(w, g)
	default:
		return renderGridTable(w, g)
	}
}

func renderGridTable(w io.Writer, g *grid.Grid) error {
	if g.RowCount() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headers := g.Headers()
	headerRow := make(table.Row, len(headers))
	for i, h := range headers {
		headerRow[i] = h.Name
	}
	t.AppendHeader(headerRow)

	for r := 0; r < g.RowCount(); r++ {
		row := make(table.Row, len(headers))
		for c := range headers {
			row[c] = g.Data(r, c)
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", g.RowCount())
	return nil
}

func renderGridJSON(w io.Writer, g *grid.Grid) error {
	headers := g.Headers()

	results := make([]map[string]any, 0, g.RowCount())
	for r := 0; r < g.RowCount(); r++ {
		row := make(map[string]any, len(headers))
		for c, h := range headers {
			val := g.Value(r, c)
			// Convert []byte to string for readability
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			row[h.Name] = val
		}
		results = append(results, row)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func renderGridCSV(w io.Writer, g *grid.Grid) error {
	headers := g.Headers()

	names := make([]string, len(headers))
	for i, h := range headers {
		names[i] = h.Name
	}
	_, _ = fmt.Fprintln(w, strings.Join(names, ","))

	for r := 0; r < g.RowCount(); r++ {
		values := make([]string, len(headers))
		for c := range headers {
			values[c] = escapeCSV(g.Data(r, c))
		}
		_, _ = fmt.Fprintln(w, strings.Join(values, ","))
	}
	return nil
}

func renderGridMarkdown(w io.Writer, g *grid.Grid) error {
	if g.RowCount() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	headers := g.Headers()
	names := make([]string, len(headers))
	for i, h := range headers {
		names[i] = h.Name
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(names, " | "))

	seps := make([]string, len(headers))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for r := 0; r < g.RowCount(); r++ {
		values := make([]string, len(headers))
		for c := range headers {
			values[c] = g.Data(r, c)
		}
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(values, " | "))
	}
	return nil
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
