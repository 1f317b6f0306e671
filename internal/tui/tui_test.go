package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mallardlabs/mallard/internal/session"
	"github.com/mallardlabs/mallard/internal/testutil"
	"github.com/mallardlabs/mallard/pkg/catalog"
)

func openBrowser(t *testing.T, initialTable string) (*Model, *session.Session) {
	t.Helper()

	s, err := session.Open(context.Background(), session.Config{}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	m, err := New(context.Background(), s, testutil.NewTestLogger(t), Options{InitialTable: initialTable})
	require.NoError(t, err)
	return m, s
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewLoadsFirstTable(t *testing.T) {
	m, _ := openBrowser(t, "")

	require.NotNil(t, m.grid)
	assert.Equal(t, "test", m.loadedTable)
	assert.Equal(t, "main", m.loadedSchema)
	assert.Equal(t, 2, m.grid.TotalRowCount())
	assert.Equal(t, focusGrid, m.focused)
}

func TestNewSelectsRequestedTable(t *testing.T) {
	s, err := session.Open(context.Background(), session.Config{}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Exec(context.Background(), "CREATE TABLE zebra (stripes INTEGER)")
	require.NoError(t, err)

	m, err := New(context.Background(), s, testutil.NewTestLogger(t), Options{InitialTable: "zebra"})
	require.NoError(t, err)

	assert.Equal(t, "zebra", m.loadedTable)

	// The tree cursor sits on the selected table.
	h := m.tv.current(m.tree)
	assert.Equal(t, "zebra", m.tree.Data(h))
}

func TestNewFallsBackWhenTableMissing(t *testing.T) {
	m, _ := openBrowser(t, "no_such_table")

	assert.Equal(t, "test", m.loadedTable)
	assert.Contains(t, m.status, "no_such_table")
}

func TestTreeExpansionSurvivesFilterRebuild(t *testing.T) {
	m, _ := openBrowser(t, "")

	// Open the test table's columns.
	require.True(t, m.tv.selectPath(m.tree, "main", "Tables", "test"))
	m.tv.toggle(m.tree)

	columnsVisible := func() bool {
		for _, h := range m.tv.visible(m.tree) {
			if m.tree.Kind(h) == catalog.KindColumn {
				return true
			}
		}
		return false
	}
	require.True(t, columnsVisible())

	// A filter rebuild invalidates every handle, but expansion is keyed by
	// name path and carries over.
	require.NoError(t, m.tree.UpdateFilter(context.Background(), "te"))
	assert.True(t, columnsVisible())

	// Filtering everything away leaves schema and category nodes behind.
	require.NoError(t, m.tree.UpdateFilter(context.Background(), "zzzzzz"))
	assert.False(t, columnsVisible())
	kinds := map[catalog.NodeKind]bool{}
	for _, h := range m.tv.visible(m.tree) {
		kinds[m.tree.Kind(h)] = true
	}
	assert.True(t, kinds[catalog.KindSchema])
	assert.True(t, kinds[catalog.KindCategory])
	assert.False(t, kinds[catalog.KindTable])
}

func TestTreeCollapseJumpsToParent(t *testing.T) {
	m, _ := openBrowser(t, "")

	require.True(t, m.tv.selectPath(m.tree, "main", "Tables", "test"))
	tableIdx := m.tv.cursor

	// Collapsed leaf: left moves to the parent category.
	m.tv.collapse(m.tree)
	assert.Less(t, m.tv.cursor, tableIdx)
	h := m.tv.current(m.tree)
	assert.Equal(t, "Tables", m.tree.Data(h))
	assert.Equal(t, catalog.KindCategory, m.tree.Kind(h))

	// Expanded category: left closes it instead of moving.
	m.tv.collapse(m.tree)
	assert.Equal(t, "Tables", m.tree.Data(m.tv.current(m.tree)))
	assert.False(t, m.tv.expanded[pathKey(m.tree.Path(m.tv.current(m.tree)))])
}

func TestSelectPathExpandsAncestors(t *testing.T) {
	m, _ := openBrowser(t, "")

	tv := newTreeView()
	require.True(t, tv.selectPath(m.tree, "main", "Tables", "test"))
	assert.Equal(t, "test", m.tree.Data(tv.current(m.tree)))
	assert.True(t, tv.expanded[pathKey([]string{"main"})])
	assert.True(t, tv.expanded[pathKey([]string{"main", "Tables"})])
}

func TestColumnSelectionOpensFilterPrompt(t *testing.T) {
	m, _ := openBrowser(t, "")

	require.True(t, m.tv.selectPath(m.tree, "main", "Tables", "test", "name (VARCHAR)"))
	m.openSelection()

	assert.Equal(t, "test", m.loadedTable)
	assert.Equal(t, focusGrid, m.focused)
	assert.Equal(t, 1, m.gv.col)
	assert.Equal(t, inputColumnFilter, m.mode)
	assert.Equal(t, "filter name: ", m.input.Prompt)

	// Committing the prompt applies the filter to the focused column.
	m.stopInput()
	m.commitInput(inputColumnFilter, "jane")
	assert.Equal(t, 1, m.grid.RowCount())
	assert.Equal(t, "Jane", m.grid.Data(0, 1))
}

func TestGridCursorClampsToView(t *testing.T) {
	m, _ := openBrowser(t, "")

	m.gv.moveRow(m.grid, 100)
	assert.Equal(t, m.grid.RowCount()-1, m.gv.row)
	m.gv.moveRow(m.grid, -100)
	assert.Equal(t, 0, m.gv.row)

	m.gv.moveCol(m.grid, 100)
	assert.Equal(t, m.grid.ColumnCount()-1, m.gv.col)
	m.gv.moveCol(m.grid, -100)
	assert.Equal(t, 0, m.gv.col)
}

func TestColumnFilterKeepsCursorInRange(t *testing.T) {
	m, _ := openBrowser(t, "")

	m.gv.row = m.grid.RowCount() - 1
	m.inputCol = 1
	m.commitInput(inputColumnFilter, "john")

	assert.Equal(t, 1, m.grid.RowCount())
	assert.Equal(t, 0, m.gv.row)
	assert.Equal(t, "John", m.grid.Data(0, 1))
}

func TestSortToggleReversesDirection(t *testing.T) {
	m, _ := openBrowser(t, "")

	m.gv.col = 0
	m.toggleSort()
	col, desc, applied := m.grid.SortKey()
	assert.True(t, applied)
	assert.Equal(t, 0, col)
	assert.False(t, desc)

	m.toggleSort()
	_, desc, _ = m.grid.SortKey()
	assert.True(t, desc)
	assert.Equal(t, "2", m.grid.Data(0, 0))
}

func TestEditCommitWritesThrough(t *testing.T) {
	m, s := openBrowser(t, "")

	m.gv.row, m.gv.col = 0, 1
	m.inputCol = 1
	m.commitEdit("Johnny")

	assert.Equal(t, "Johnny", m.grid.Data(0, 1))

	var name string
	err := s.DB().QueryRowContext(context.Background(),
		"SELECT name FROM test WHERE id = 1").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "Johnny", name)
}

func TestSQLPromptReplacesGrid(t *testing.T) {
	m, _ := openBrowser(t, "")

	var recorded string
	m.opts.OnStatement = func(sql string, _ time.Time, rowCount int64, err error) {
		recorded = sql
		assert.NoError(t, err)
		assert.Equal(t, int64(1), rowCount)
	}

	m.runSQL("SELECT 41 + 1 AS answer")

	assert.Equal(t, "SELECT 41 + 1 AS answer", recorded)
	assert.False(t, m.grid.Editable())
	assert.Equal(t, "answer", m.grid.Headers()[0].Name)
	assert.Equal(t, "42", m.grid.Data(0, 0))
	assert.Empty(t, m.loadedTable)
}

func TestKeySequenceSwitchesFocusAndQuits(t *testing.T) {
	m, _ := openBrowser(t, "")
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	require.Equal(t, focusGrid, m.focused)
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, focusTree, m.focused)

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		input    string
		declType string
		want     any
	}{
		{"42", "INTEGER", int64(42)},
		{"42", "BIGINT", int64(42)},
		{"not a number", "INTEGER", "not a number"},
		{"3.5", "DOUBLE", 3.5},
		{"true", "BOOLEAN", true},
		{"hello", "VARCHAR", "hello"},
		{"NULL", "VARCHAR", nil},
		{" null ", "INTEGER", nil},
		{"99", "VARCHAR", "99"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseCell(tt.input, tt.declType),
			"parseCell(%q, %q)", tt.input, tt.declType)
	}
}

func TestViewRendersAllRegions(t *testing.T) {
	m, _ := openBrowser(t, "")
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	out := m.View()
	assert.Contains(t, out, ":memory:")
	assert.Contains(t, out, "test")
	assert.Contains(t, out, "John")
	assert.Contains(t, out, "rows")
}
