package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mallardlabs/mallard/internal/session"
	"github.com/mallardlabs/mallard/internal/testutil"
	"github.com/mallardlabs/mallard/pkg/grid"
)

// queryTestGrid runs one statement against a fresh seeded in-memory
// database and returns its result grid.
func queryTestGrid(t *testing.T, query string) *grid.Grid {
	t.Helper()

	s, err := session.Open(context.Background(), session.Config{}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	g, err := s.Query(context.Background(), query)
	require.NoError(t, err)
	return g
}

func TestRenderGridTable(t *testing.T) {
	g := queryTestGrid(t, "SELECT id, name FROM test ORDER BY id")

	buf := new(bytes.Buffer)
	require.NoError(t, renderGrid(buf, g, "table"))

	output := buf.String()
	assert.Contains(t, output, "John")
	assert.Contains(t, output, "Jane")
	assert.Contains(t, output, "(2 rows)")
}

func TestRenderGridJSON(t *testing.T) {
	g := queryTestGrid(t, "SELECT id, name FROM test ORDER BY id")

	buf := new(bytes.Buffer)
	require.NoError(t, renderGrid(buf, g, "json"))

	output := buf.String()
	assert.Contains(t, output, `"name"`)
	assert.Contains(t, output, `"John"`)
	assert.Contains(t, output, `"id"`)
}

func TestRenderGridCSV(t *testing.T) {
	g := queryTestGrid(t, "SELECT id, name FROM test ORDER BY id")

	buf := new(bytes.Buffer)
	require.NoError(t, renderGrid(buf, g, "csv"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3) // header + 2 rows

	assert.Equal(t, "id,name", lines[0])
	assert.Equal(t, "1,John", lines[1])
	assert.Equal(t, "2,Jane", lines[2])
}

func TestRenderGridMarkdown(t *testing.T) {
	g := queryTestGrid(t, "SELECT id, name FROM test ORDER BY id")

	buf := new(bytes.Buffer)
	require.NoError(t, renderGrid(buf, g, "md"))

	output := buf.String()
	assert.Contains(t, output, "| id | name |")
	assert.Contains(t, output, "| --- | --- |")
	assert.Contains(t, output, "| 1 | John |")
}

func TestRenderGridEmptyResult(t *testing.T) {
	g := queryTestGrid(t, "SELECT id, name FROM test WHERE 1 = 0")

	buf := new(bytes.Buffer)
	require.NoError(t, renderGrid(buf, g, "table"))
	assert.Contains(t, buf.String(), "(0 rows)")
}

func TestRenderGridRespectsView(t *testing.T) {
	g := queryTestGrid(t, "SELECT id, name FROM test ORDER BY id")

	// Rendering follows the grid's filtered view, not the raw result.
	g.SetFilter(1, "jane")

	buf := new(bytes.Buffer)
	require.NoError(t, renderGrid(buf, g, "csv"))

	output := buf.String()
	assert.Contains(t, output, "Jane")
	assert.NotContains(t, output, "John")
}

func TestEscapeCSV(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{"with,comma", `"with,comma"`},
		{`with"quote`, `"with""quote"`},
		{"with\nnewline", `"with
newline"`},
		{`complex,"values"`, `"complex,""values"""`},
	}

	for _, tt := range tests {
		result := escapeCSV(tt.input)
		assert.Equal(t, tt.expected, result)
	}
}
