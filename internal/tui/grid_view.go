package tui

import (
	"strconv"
	"strings"

	"github.com/mallardlabs/mallard/pkg/grid"
)

const (
	minColWidth = 4
	maxColWidth = 24
)

// gridView is the cursor and scroll state of the data pane.
type gridView struct {
	row    int
	col    int
	rowOff int
	colOff int
	width  int
	height int
}

func (gv *gridView) clamp(g *grid.Grid) {
	if g == nil {
		gv.row, gv.col = 0, 0
		return
	}
	if gv.row >= g.RowCount() {
		gv.row = g.RowCount() - 1
	}
	if gv.row < 0 {
		gv.row = 0
	}
	if gv.col >= g.ColumnCount() {
		gv.col = g.ColumnCount() - 1
	}
	if gv.col < 0 {
		gv.col = 0
	}
}

func (gv *gridView) moveRow(g *grid.Grid, delta int) {
	gv.row += delta
	gv.clamp(g)
}

func (gv *gridView) moveCol(g *grid.Grid, delta int) {
	gv.col += delta
	gv.clamp(g)
}

// pageSize is the number of data rows one page spans, excluding the two
// header lines.
func (gv *gridView) pageSize() int {
	n := gv.height - 2
	if n < 1 {
		n = 1
	}
	return n
}

func (gv *gridView) render(g *grid.Grid, focused bool) string {
	if g == nil || g.ColumnCount() == 0 {
		return mutedStyle.Render("(no table selected)")
	}

	widths := gv.columnWidths(g)
	visCols := gv.visibleColumns(g, widths)

	var b strings.Builder

	// Header: column name plus sort and filter markers.
	sortCol, sortDesc, sorted := g.SortKey()
	var headerCells []string
	var ruleCells []string
	for _, c := range visCols {
		label := g.Headers()[c].Name
		if sorted && c == sortCol {
			if sortDesc {
				label += " ▼"
			} else {
				label += " ▲"
			}
		}
		if g.Filter(c) != "" {
			label += " *"
		}
		headerCells = append(headerCells, pad(label, widths[c]))
		ruleCells = append(ruleCells, strings.Repeat("─", widths[c]))
	}
	b.WriteString(gridHeaderStyle.Render(strings.Join(headerCells, "  ")))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Join(ruleCells, "  ")))
	b.WriteString("\n")

	// Body.
	bodyHeight := gv.pageSize()
	gv.adjustRowScroll(g, bodyHeight)
	end := gv.rowOff + bodyHeight
	if end > g.RowCount() {
		end = g.RowCount()
	}
	lines := 0
	for r := gv.rowOff; r < end; r++ {
		var cells []string
		for _, c := range visCols {
			cell := pad(g.Data(r, c), widths[c])
			if focused && r == gv.row && c == gv.col {
				cell = cellCursorStyle.Render(cell)
			}
			cells = append(cells, cell)
		}
		b.WriteString(strings.Join(cells, "  "))
		b.WriteString("\n")
		lines++
	}
	for ; lines < bodyHeight; lines++ {
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// columnWidths sizes each column to its widest visible cell, within fixed
// bounds. Only on-screen rows are measured, so wide values far down a
// result cannot blow up the layout.
func (gv *gridView) columnWidths(g *grid.Grid) []int {
	widths := make([]int, g.ColumnCount())
	for c := range widths {
		w := len(g.Headers()[c].Name) + 2
		end := gv.rowOff + gv.pageSize()
		if end > g.RowCount() {
			end = g.RowCount()
		}
		for r := gv.rowOff; r < end; r++ {
			if l := len([]rune(g.Data(r, c))); l > w {
				w = l
			}
		}
		if w < minColWidth {
			w = minColWidth
		}
		if w > maxColWidth {
			w = maxColWidth
		}
		widths[c] = w
	}
	return widths
}

// visibleColumns picks the run of columns starting at the horizontal
// offset that fits the pane, always including the cursor column.
func (gv *gridView) visibleColumns(g *grid.Grid, widths []int) []int {
	if gv.colOff >= g.ColumnCount() {
		gv.colOff = g.ColumnCount() - 1
	}
	if gv.colOff < 0 {
		gv.colOff = 0
	}
	if gv.col < gv.colOff {
		gv.colOff = gv.col
	}
	for {
		used := 0
		var cols []int
		for c := gv.colOff; c < g.ColumnCount(); c++ {
			next := used + widths[c]
			if len(cols) > 0 {
				next += 2
			}
			if gv.width > 0 && next > gv.width && len(cols) > 0 {
				break
			}
			cols = append(cols, c)
			used = next
		}
		if len(cols) == 0 && g.ColumnCount() > gv.colOff {
			cols = []int{gv.colOff}
		}
		// Scroll right until the cursor column is inside the run.
		if gv.col > cols[len(cols)-1] && gv.colOff < g.ColumnCount()-1 {
			gv.colOff++
			continue
		}
		return cols
	}
}

func (gv *gridView) adjustRowScroll(g *grid.Grid, bodyHeight int) {
	if gv.row < gv.rowOff {
		gv.rowOff = gv.row
	}
	if gv.row >= gv.rowOff+bodyHeight {
		gv.rowOff = gv.row - bodyHeight + 1
	}
	if gv.rowOff < 0 {
		gv.rowOff = 0
	}
	if max := g.RowCount() - bodyHeight; max >= 0 && gv.rowOff > max {
		gv.rowOff = max
	}
}

func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(r))
}

// parseCell converts edit-prompt text into a typed value based on the
// column's declared type, so numeric and boolean columns are updated with
// native values rather than strings. The literal NULL clears the cell.
func parseCell(input, declType string) any {
	if strings.EqualFold(strings.TrimSpace(input), "NULL") {
		return nil
	}
	t := strings.ToUpper(declType)
	switch {
	case strings.Contains(t, "INT"):
		if n, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64); err == nil {
			return n
		}
	case strings.Contains(t, "DOUBLE"), strings.Contains(t, "FLOAT"),
		strings.Contains(t, "REAL"), strings.Contains(t, "DECIMAL"),
		strings.Contains(t, "NUMERIC"):
		if f, err := strconv.ParseFloat(strings.TrimSpace(input), 64); err == nil {
			return f
		}
	case strings.Contains(t, "BOOL"):
		if b, err := strconv.ParseBool(strings.TrimSpace(input)); err == nil {
			return b
		}
	}
	return input
}
