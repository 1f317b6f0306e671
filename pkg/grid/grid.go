// Package grid materializes one query result as a filterable, sortable,
// editable table.
//
// Rows are fetched once into a raw buffer; filtering and sorting derive a
// view from that buffer without re-issuing the source query. Edits write
// through to the backing table when the grid was loaded from one.
package grid

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

var (
	// ErrNoBackingTable rejects edits on grids built from an ad-hoc query
	// result rather than a named table.
	ErrNoBackingTable = errors.New("grid has no backing table")

	// ErrOutOfRange rejects cell access outside the current view.
	ErrOutOfRange = errors.New("cell index out of range")
)

// Header describes one result column.
type Header struct {
	Name string
	Type string
}

// Row is one materialized result row. View rows alias the raw rows, so a
// cell edit is visible through both.
type Row []any

// Grid holds one materialized result set and the filter/sort state that
// derives the presented view from it.
type Grid struct {
	db     *sql.DB
	logger *slog.Logger

	// table is the quoted qualified name edits write back to; empty for
	// ad-hoc results.
	table string

	headers  []Header
	rawRows  []Row
	filters  []string
	viewRows []Row

	sortColumn int
	sortDesc   bool
	// sorted flips on the first explicit Sort call; until then the view
	// keeps load order.
	sorted bool

	// Layout callbacks bracket every filter or sort recomputation; the
	// cell callback reports a single edited cell. All are optional.
	OnLayoutAboutToChange func()
	OnLayoutChanged       func()
	OnCellChanged         func(row, col int)
}

// New creates an empty grid bound to db.
func New(db *sql.DB, logger *slog.Logger) *Grid {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Grid{db: db, logger: logger, sortColumn: 0, sortDesc: false}
}

// Load materializes SELECT * over a table or view, with column descriptors
// from the engine catalog. The previous contents stay intact on error.
func (g *Grid) Load(ctx context.Context, schemaName, tableName string) error {
	qualified := quoteIdent(schemaName) + "." + quoteIdent(tableName)

	headers, err := g.fetchHeaders(ctx, schemaName, tableName)
	if err != nil {
		return fmt.Errorf("failed to read columns of %s: %w", qualified, err)
	}

	rows, err := g.db.QueryContext(ctx, "SELECT * FROM "+qualified)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", qualified, err)
	}
	defer func() { _ = rows.Close() }()

	raw, err := scanAll(rows)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", qualified, err)
	}

	g.install(qualified, headers, raw)
	g.logger.Debug("loaded table", "table", qualified, "rows", len(raw), "columns", len(headers))
	return nil
}

// FromRows materializes an already-executed query result. Header types come
// from the driver's column metadata. The grid has no backing table
// afterward, so edits are rejected.
func (g *Grid) FromRows(rows *sql.Rows) error {
	types, err := rows.ColumnTypes()
	if err != nil {
		return fmt.Errorf("failed to read result columns: %w", err)
	}
	headers := make([]Header, len(types))
	for i, ct := range types {
		headers[i] = Header{Name: ct.Name(), Type: ct.DatabaseTypeName()}
	}

	raw, err := scanAll(rows)
	if err != nil {
		return fmt.Errorf("failed to read result rows: %w", err)
	}

	g.install("", headers, raw)
	g.logger.Debug("loaded query result", "rows", len(raw), "columns", len(headers))
	return nil
}

// install swaps in a fresh materialization: filters cleared, sort state back
// to the default, view in load order.
func (g *Grid) install(table string, headers []Header, raw []Row) {
	g.layoutAboutToChange()
	g.table = table
	g.headers = headers
	g.rawRows = raw
	g.filters = make([]string, len(headers))
	g.sortColumn = 0
	g.sortDesc = false
	g.sorted = false
	g.viewRows = append([]Row(nil), raw...)
	g.layoutChanged()
}

func (g *Grid) fetchHeaders(ctx context.Context, schemaName, tableName string) ([]Header, error) {
	rows, err := g.db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA table_info(%s)", quoteString(schemaName+"."+tableName)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var headers []Header
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull bool
			dflt    sql.NullString
			pk      bool
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		headers = append(headers, Header{Name: name, Type: colType})
	}
	return headers, rows.Err()
}

// RowCount returns the number of rows in the current view.
func (g *Grid) RowCount() int { return len(g.viewRows) }

// ColumnCount returns the number of result columns.
func (g *Grid) ColumnCount() int { return len(g.headers) }

// TotalRowCount returns the unfiltered row count, for "N of M rows"
// style reporting next to RowCount.
func (g *Grid) TotalRowCount() int { return len(g.rawRows) }

// Headers returns the result column descriptors in result order.
func (g *Grid) Headers() []Header { return g.headers }

// Table returns the quoted qualified backing table, "" for ad-hoc results.
func (g *Grid) Table() string { return g.table }

// Editable reports whether edits can be written back.
func (g *Grid) Editable() bool { return g.table != "" }

// Data returns the display string for a cell in the current view.
func (g *Grid) Data(row, col int) string {
	if row < 0 || row >= len(g.viewRows) {
		return ""
	}
	r := g.viewRows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return cellString(r[col])
}

// Value returns the raw cell value in the current view.
func (g *Grid) Value(row, col int) any {
	if row < 0 || row >= len(g.viewRows) {
		return nil
	}
	r := g.viewRows[row]
	if col < 0 || col >= len(r) {
		return nil
	}
	return r[col]
}

// HeaderData returns the two-line column label, name over type.
func (g *Grid) HeaderData(col int) string {
	if col < 0 || col >= len(g.headers) {
		return ""
	}
	h := g.headers[col]
	return fmt.Sprintf("%s\n(%s)", h.Name, h.Type)
}

// SetFilter lower-cases text and stores it as the substring filter for one
// column, then recomputes the view. Filters on different columns combine
// with AND; an empty string clears the column's filter.
func (g *Grid) SetFilter(col int, text string) {
	if col < 0 || col >= len(g.filters) {
		return
	}
	g.layoutAboutToChange()
	g.filters[col] = strings.ToLower(text)
	g.applyView()
	g.layoutChanged()
}

// Filter returns the active filter for one column.
func (g *Grid) Filter(col int) string {
	if col < 0 || col >= len(g.filters) {
		return ""
	}
	return g.filters[col]
}

// ClearAllFilters resets every column filter and recomputes the view.
func (g *Grid) ClearAllFilters() {
	g.layoutAboutToChange()
	for i := range g.filters {
		g.filters[i] = ""
	}
	g.applyView()
	g.layoutChanged()
}

// Sort records the sort key and stably re-sorts the current view by that
// column's native ordering. Filters are unaffected; ties keep their
// relative order across repeated calls.
func (g *Grid) Sort(col int, descending bool) {
	if col < 0 || col >= len(g.headers) {
		return
	}
	g.layoutAboutToChange()
	g.sortColumn = col
	g.sortDesc = descending
	g.sorted = true
	g.sortView()
	g.layoutChanged()
}

// SortKey returns the current sort column and direction, and whether an
// explicit sort has been applied.
func (g *Grid) SortKey() (col int, descending, applied bool) {
	return g.sortColumn, g.sortDesc, g.sorted
}

// applyView rebuilds the view from the raw buffer: filter, then re-apply
// the current sort if one is active.
func (g *Grid) applyView() {
	view := make([]Row, 0, len(g.rawRows))
	for _, row := range g.rawRows {
		if g.matches(row) {
			view = append(view, row)
		}
	}
	g.viewRows = view
	if g.sorted {
		g.sortView()
	}
}

func (g *Grid) matches(row Row) bool {
	for col, filter := range g.filters {
		if filter == "" {
			continue
		}
		if col >= len(row) {
			return false
		}
		if !strings.Contains(strings.ToLower(cellString(row[col])), filter) {
			return false
		}
	}
	return true
}

func (g *Grid) sortView() {
	col := g.sortColumn
	desc := g.sortDesc
	sort.SliceStable(g.viewRows, func(i, j int) bool {
		a := g.viewRows[i]
		b := g.viewRows[j]
		var av, bv any
		if col < len(a) {
			av = a[col]
		}
		if col < len(b) {
			bv = b[col]
		}
		c := compareValues(av, bv)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// SetData writes value into a view cell and issues a single-row UPDATE
// against the backing table, keyed by the row's first column. The key is
// captured before the in-memory write, so an edit to the key column itself
// still targets the old row; later edits on that row will use the new key.
// On update failure the in-memory cell keeps the new value.
func (g *Grid) SetData(ctx context.Context, row, col int, value any) error {
	if g.table == "" {
		return ErrNoBackingTable
	}
	if row < 0 || row >= len(g.viewRows) {
		return ErrOutOfRange
	}
	if col < 0 || col >= len(g.headers) {
		return ErrOutOfRange
	}
	target := g.viewRows[row]
	if len(target) == 0 || col >= len(target) {
		return ErrOutOfRange
	}

	key := target[0]
	target[col] = value

	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?",
		g.table, quoteIdent(g.headers[col].Name), quoteIdent(g.headers[0].Name))
	if _, err := g.db.ExecContext(ctx, query, value, key); err != nil {
		return fmt.Errorf("failed to update %s: %w", g.table, err)
	}

	g.logger.Debug("updated cell", "table", g.table, "column", g.headers[col].Name, "key", key)
	if g.OnCellChanged != nil {
		g.OnCellChanged(row, col)
	}
	return nil
}

func (g *Grid) layoutAboutToChange() {
	if g.OnLayoutAboutToChange != nil {
		g.OnLayoutAboutToChange()
	}
}

func (g *Grid) layoutChanged() {
	if g.OnLayoutChanged != nil {
		g.OnLayoutChanged()
	}
}
