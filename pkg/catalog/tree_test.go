package catalog

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mallardlabs/mallard/internal/testutil"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustExec(t *testing.T, db *sql.DB, statements ...string) {
	t.Helper()
	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err, "statement: %s", stmt)
	}
}

func buildTree(t *testing.T, db *sql.DB) *Tree {
	t.Helper()
	tree := New(db, testutil.NewTestLogger(t))
	require.NoError(t, tree.Build(context.Background()))
	return tree
}

func TestTreeHierarchyShape(t *testing.T) {
	db := openTestDB(t)
	mustExec(t, db,
		`CREATE TABLE t (id INTEGER, name VARCHAR)`,
		`CREATE VIEW v AS SELECT id FROM t`,
	)

	tree := buildTree(t, db)

	// Every schema node carries both category nodes, in order.
	root := tree.Root()
	require.Positive(t, tree.RowCount(root), "at least one schema expected")
	for i := 0; i < tree.RowCount(root); i++ {
		schema := tree.Index(i, root)
		assert.Equal(t, KindSchema, tree.Kind(schema))
		require.Equal(t, 2, tree.RowCount(schema), "schema %s", tree.Data(schema))
		assert.Equal(t, "Tables", tree.Data(tree.Index(0, schema)))
		assert.Equal(t, "Views", tree.Data(tree.Index(1, schema)))
	}

	tableNode, ok := tree.FindPath("main", "Tables", "t")
	require.True(t, ok, "table t under main/Tables")
	assert.Equal(t, KindTable, tree.Kind(tableNode))
	require.Equal(t, 2, tree.ChildCount(tableNode))
	assert.Equal(t, "id (INTEGER)", tree.Data(tree.Index(0, tableNode)))
	assert.Equal(t, "name (VARCHAR)", tree.Data(tree.Index(1, tableNode)))

	viewNode, ok := tree.FindPath("main", "Views", "v")
	require.True(t, ok, "view v under main/Views")
	assert.Equal(t, KindView, tree.Kind(viewNode))
	assert.Equal(t, 1, tree.ChildCount(viewNode))
}

func TestTreeItemInfo(t *testing.T) {
	db := openTestDB(t)
	mustExec(t, db, `CREATE TABLE t (id INTEGER, name VARCHAR)`)

	tree := buildTree(t, db)
	tableNode, ok := tree.FindPath("main", "Tables", "t")
	require.True(t, ok)

	tests := []struct {
		name   string
		handle Handle
		want   Info
	}{
		{
			name:   "column node walks to schema and table",
			handle: tree.Index(0, tableNode),
			want:   Info{Kind: KindColumn, Schema: "main", Table: "t", Column: "id"},
		},
		{
			name:   "table node walks to schema",
			handle: tableNode,
			want:   Info{Kind: KindTable, Schema: "main", Table: "t"},
		},
		{
			name:   "category node reports its own name",
			handle: tree.Parent(tableNode),
			want:   Info{Kind: KindCategory, Schema: "Tables"},
		},
		{
			name:   "schema node reports its own name",
			handle: tree.Parent(tree.Parent(tableNode)),
			want:   Info{Kind: KindSchema, Schema: "main"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tree.ItemInfo(tt.handle))
		})
	}
}

func TestTreeQualifiedName(t *testing.T) {
	db := openTestDB(t)
	mustExec(t, db, `CREATE TABLE t (id INTEGER)`)

	tree := buildTree(t, db)
	tableNode, ok := tree.FindPath("main", "Tables", "t")
	require.True(t, ok)

	assert.Equal(t, `"main"."t"`, tree.ItemInfo(tableNode).QualifiedName())
	assert.Empty(t, tree.ItemInfo(tree.Parent(tableNode)).QualifiedName())
}

func TestTreeUpdateFilter(t *testing.T) {
	db := openTestDB(t)
	mustExec(t, db,
		`CREATE TABLE abc_1 (x INTEGER)`,
		`CREATE TABLE abcd (x INTEGER)`,
		`CREATE TABLE xyz (x INTEGER)`,
	)

	tree := buildTree(t, db)
	require.NoError(t, tree.UpdateFilter(context.Background(), "abc"))

	tablesNode, ok := tree.FindPath("main", "Tables")
	require.True(t, ok)
	var names []string
	for i := 0; i < tree.RowCount(tablesNode); i++ {
		names = append(names, tree.Data(tree.Index(i, tablesNode)))
	}
	assert.Equal(t, []string{"abc_1", "abcd"}, names, "substring match keeps abc_1 and abcd")

	// Scaffolding survives even for schemas the filter empties out.
	root := tree.Root()
	for i := 0; i < tree.RowCount(root); i++ {
		schema := tree.Index(i, root)
		assert.Equal(t, 2, tree.RowCount(schema), "schema %s keeps its categories", tree.Data(schema))
	}

	// An empty filter restores the full listing.
	require.NoError(t, tree.UpdateFilter(context.Background(), ""))
	tablesNode, ok = tree.FindPath("main", "Tables")
	require.True(t, ok)
	assert.Equal(t, 3, tree.RowCount(tablesNode))
}

func TestTreeResetCallback(t *testing.T) {
	db := openTestDB(t)
	mustExec(t, db, `CREATE TABLE t (id INTEGER)`)

	tree := New(db, testutil.NewTestLogger(t))
	resets := 0
	tree.OnReset = func() { resets++ }

	require.NoError(t, tree.Build(context.Background()))
	require.NoError(t, tree.UpdateFilter(context.Background(), "t"))
	require.NoError(t, tree.Refresh(context.Background()))
	assert.Equal(t, 3, resets, "every successful rebuild fires one reset")
}

func TestTreeHandlesInvalidatedByRebuild(t *testing.T) {
	db := openTestDB(t)
	mustExec(t, db, `CREATE TABLE keepme (id INTEGER)`)

	tree := buildTree(t, db)
	before, ok := tree.FindPath("main", "Tables", "keepme")
	require.True(t, ok)

	mustExec(t, db, `CREATE TABLE aaa_first (id INTEGER)`)
	require.NoError(t, tree.Refresh(context.Background()))

	// The old handle may now address a different node; the name path is the
	// stable key.
	after, ok := tree.FindPath("main", "Tables", "keepme")
	require.True(t, ok)
	assert.Equal(t, "keepme", tree.Data(after))
	assert.Equal(t, []string{"main", "Tables", "keepme"}, tree.Path(after))
	_ = before
}

func TestTreeBrokenViewDegradesToZeroColumns(t *testing.T) {
	db := openTestDB(t)
	mustExec(t, db,
		`CREATE TABLE base (x INTEGER)`,
		`CREATE VIEW broken AS SELECT * FROM base`,
		`DROP TABLE base`,
	)

	tree := buildTree(t, db)

	viewNode, ok := tree.FindPath("main", "Views", "broken")
	require.True(t, ok, "undescribable view still listed")
	assert.Equal(t, 0, tree.ChildCount(viewNode))
}

func TestTreeBuildErrorLeavesOldTree(t *testing.T) {
	db := openTestDB(t)
	mustExec(t, db, `CREATE TABLE t (id INTEGER)`)

	tree := buildTree(t, db)
	_, ok := tree.FindPath("main", "Tables", "t")
	require.True(t, ok)

	require.NoError(t, db.Close())
	err := tree.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list schemas")

	// The previous tree is still navigable.
	_, ok = tree.FindPath("main", "Tables", "t")
	assert.True(t, ok)
}

func TestTreeNavigationBeforeBuild(t *testing.T) {
	tree := New(nil, nil)

	assert.Equal(t, InvalidHandle, tree.Root())
	assert.Equal(t, 0, tree.RowCount(InvalidHandle))
	assert.Equal(t, InvalidHandle, tree.Index(0, InvalidHandle))
	assert.Empty(t, tree.Data(InvalidHandle))
	_, ok := tree.FindPath("main")
	assert.False(t, ok)
}
