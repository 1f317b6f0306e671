package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// Tree builds and exposes the catalog hierarchy:
// root -> schema -> {Tables, Views} -> table/view -> column.
//
// Build, Refresh and UpdateFilter replace the whole arena atomically: on
// error the previous tree stays intact, on success every previously issued
// handle is stale.
type Tree struct {
	db     *sql.DB
	logger *slog.Logger

	nodes  arena
	root   Handle
	filter string

	// OnReset is called after every successful rebuild, in place of an
	// incremental structural diff.
	OnReset func()
}

// Info identifies what a node refers to in the database. Schema, category
// and root nodes report their own name in Schema with empty qualifiers.
type Info struct {
	Kind   NodeKind
	Schema string
	Table  string
	Column string
}

// QualifiedName returns the quoted schema.table form, or "" when the info
// does not name a table or view.
func (i Info) QualifiedName() string {
	if i.Table == "" {
		return ""
	}
	return quoteIdent(i.Schema) + "." + quoteIdent(i.Table)
}

// New creates a tree over db. Call Build before navigating.
func New(db *sql.DB, logger *slog.Logger) *Tree {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tree{db: db, logger: logger, root: InvalidHandle}
}

// Build fetches the catalog and constructs the tree with the current filter.
func (t *Tree) Build(ctx context.Context) error {
	return t.rebuild(ctx, t.filter)
}

// Refresh rebuilds the tree with the current filter, e.g. after DDL.
func (t *Tree) Refresh(ctx context.Context) error {
	return t.rebuild(ctx, t.filter)
}

// UpdateFilter rebuilds the tree restricted to table and view names
// containing filter. An empty filter removes the restriction. Matching uses
// the engine's LIKE semantics, so case sensitivity is the engine's.
func (t *Tree) UpdateFilter(ctx context.Context, filter string) error {
	return t.rebuild(ctx, filter)
}

// Filter returns the active table-name filter.
func (t *Tree) Filter() string { return t.filter }

func (t *Tree) rebuild(ctx context.Context, filter string) error {
	nodes := make(arena, 0, len(t.nodes))
	root := nodes.add(InvalidHandle, Node{Name: "Database", Kind: KindRoot})

	schemas, err := t.fetchSchemas(ctx)
	if err != nil {
		return fmt.Errorf("failed to list schemas: %w", err)
	}

	for _, schemaName := range schemas {
		schema := nodes.add(root, Node{Name: schemaName, Kind: KindSchema})
		tables := nodes.add(schema, Node{Name: "Tables", Kind: KindCategory})
		views := nodes.add(schema, Node{Name: "Views", Kind: KindCategory})

		objects, err := t.fetchObjects(ctx, schemaName, filter)
		if err != nil {
			return fmt.Errorf("failed to list tables in %s: %w", schemaName, err)
		}

		for _, obj := range objects {
			parent := views
			kind := KindView
			if obj.objType == "BASE TABLE" {
				parent = tables
				kind = KindTable
			}
			item := nodes.add(parent, Node{Name: obj.name, Kind: kind})

			cols, err := t.fetchColumns(ctx, schemaName, obj.name)
			if err != nil {
				// A single undescribable object must not abort the build.
				t.logger.Warn("failed to describe columns",
					"schema", schemaName, "table", obj.name, "error", err)
				continue
			}
			for _, col := range cols {
				nodes.add(item, Node{
					Name:    fmt.Sprintf("%s (%s)", col.name, col.colType),
					Kind:    KindColumn,
					colName: col.name,
					colType: col.colType,
				})
			}
		}
	}

	t.nodes = nodes
	t.root = root
	t.filter = filter
	if t.OnReset != nil {
		t.OnReset()
	}
	return nil
}

func (t *Tree) fetchSchemas(ctx context.Context) ([]string, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT DISTINCT schema_name FROM information_schema.schemata ORDER BY schema_name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		schemas = append(schemas, name)
	}
	return schemas, rows.Err()
}

type catalogObject struct {
	name    string
	objType string
}

func (t *Tree) fetchObjects(ctx context.Context, schemaName, filter string) ([]catalogObject, error) {
	query := `SELECT table_name, table_type FROM information_schema.tables WHERE table_schema = ?`
	args := []any{schemaName}
	if filter != "" {
		query += ` AND table_name LIKE ?`
		args = append(args, "%"+filter+"%")
	}
	query += ` ORDER BY table_type, table_name`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var objects []catalogObject
	for rows.Next() {
		var obj catalogObject
		if err := rows.Scan(&obj.name, &obj.objType); err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, rows.Err()
}

type columnDescriptor struct {
	name    string
	colType string
}

func (t *Tree) fetchColumns(ctx context.Context, schemaName, tableName string) ([]columnDescriptor, error) {
	query := fmt.Sprintf(`SELECT column_name, column_type FROM (DESCRIBE %s.%s)`,
		quoteIdent(schemaName), quoteIdent(tableName))
	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var cols []columnDescriptor
	for rows.Next() {
		var col columnDescriptor
		if err := rows.Scan(&col.name, &col.colType); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// Root returns the root handle, or InvalidHandle before the first Build.
func (t *Tree) Root() Handle { return t.root }

// RowCount returns the number of children under a node. InvalidHandle
// addresses the root, mirroring the hierarchical-model convention.
func (t *Tree) RowCount(h Handle) int {
	if h == InvalidHandle {
		h = t.root
	}
	if !t.nodes.valid(h) {
		return 0
	}
	return t.nodes.childCount(h)
}

// ColumnCount is always 1: the tree presents a single display column.
func (t *Tree) ColumnCount() int { return 1 }

// Data returns a node's display name.
func (t *Tree) Data(h Handle) string {
	if !t.nodes.valid(h) {
		return ""
	}
	return t.nodes.node(h).Name
}

// Kind returns a node's kind tag.
func (t *Tree) Kind(h Handle) NodeKind {
	if !t.nodes.valid(h) {
		return KindRoot
	}
	return t.nodes.node(h).Kind
}

// Index returns the handle of the row-th child of parent. InvalidHandle
// addresses the root; out-of-range rows yield InvalidHandle.
func (t *Tree) Index(row int, parent Handle) Handle {
	if parent == InvalidHandle {
		parent = t.root
	}
	if !t.nodes.valid(parent) {
		return InvalidHandle
	}
	children := t.nodes.node(parent).children
	if row < 0 || row >= len(children) {
		return InvalidHandle
	}
	return children[row]
}

// Parent returns a node's parent handle, InvalidHandle for the root.
func (t *Tree) Parent(h Handle) Handle {
	if !t.nodes.valid(h) {
		return InvalidHandle
	}
	return t.nodes.node(h).parent
}

// Row returns a node's index within its parent's children, 0 for the root.
func (t *Tree) Row(h Handle) int {
	if !t.nodes.valid(h) {
		return 0
	}
	return t.nodes.row(h)
}

// ChildCount returns the number of children under a node.
func (t *Tree) ChildCount(h Handle) int {
	if !t.nodes.valid(h) {
		return 0
	}
	return t.nodes.childCount(h)
}

// ItemInfo resolves a node to its addressable identity by walking parent
// links: a column node walks column -> table -> schema, a table or view
// walks to its schema, and every other kind reports its own name.
func (t *Tree) ItemInfo(h Handle) Info {
	if !t.nodes.valid(h) {
		return Info{}
	}
	n := t.nodes.node(h)
	switch n.Kind {
	case KindColumn:
		table := t.nodes.node(n.parent)
		category := t.nodes.node(table.parent)
		schema := t.nodes.node(category.parent)
		return Info{Kind: n.Kind, Schema: schema.Name, Table: table.Name, Column: n.colName}
	case KindTable, KindView:
		category := t.nodes.node(n.parent)
		schema := t.nodes.node(category.parent)
		return Info{Kind: n.Kind, Schema: schema.Name, Table: n.Name}
	default:
		return Info{Kind: n.Kind, Schema: n.Name}
	}
}

// FindPath resolves a display-name path from the root, e.g.
// FindPath("main", "Tables", "users"). It is the rebuild-safe way to
// re-locate a node, since handles do not survive a rebuild.
func (t *Tree) FindPath(parts ...string) (Handle, bool) {
	if !t.nodes.valid(t.root) {
		return InvalidHandle, false
	}
	h := t.root
	for _, part := range parts {
		found := InvalidHandle
		for _, child := range t.nodes.node(h).children {
			if t.nodes.node(child).Name == part {
				found = child
				break
			}
		}
		if found == InvalidHandle {
			return InvalidHandle, false
		}
		h = found
	}
	return h, true
}

// Path returns the display-name path from the root down to a node,
// excluding the root itself.
func (t *Tree) Path(h Handle) []string {
	if !t.nodes.valid(h) {
		return nil
	}
	var parts []string
	for h != t.root && h != InvalidHandle {
		parts = append(parts, t.nodes.node(h).Name)
		h = t.nodes.node(h).parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return parts
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
