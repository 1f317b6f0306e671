// Package schema performs one-shot introspection of a database's tables,
// columns, keys and constraints, and renders the result as DDL, JSON or
// YAML.
package schema

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

// Column describes one table column.
type Column struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	Nullable   bool   `json:"nullable" yaml:"nullable"`
	Default    string `json:"default,omitempty" yaml:"default,omitempty"`
	PrimaryKey bool   `json:"is_primary_key" yaml:"is_primary_key"`
}

// Reference names the table and column a foreign key points at.
type Reference struct {
	Table  string `json:"table" yaml:"table"`
	Column string `json:"column" yaml:"column"`
}

// ForeignKey describes one outgoing foreign-key edge.
type ForeignKey struct {
	Column     string    `json:"column" yaml:"column"`
	References Reference `json:"references" yaml:"references"`
}

// Table describes one table or view with its columns and keys.
type Table struct {
	Name        string       `json:"name" yaml:"name"`
	Columns     []Column     `json:"columns" yaml:"columns"`
	PrimaryKeys []string     `json:"primary_keys" yaml:"primary_keys"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
}

// Database is the full export mapping, tables in catalog listing order.
type Database struct {
	Tables []Table `json:"tables" yaml:"tables"`
}

// Table returns the entry for name, if present.
func (d *Database) Table(name string) (*Table, bool) {
	for i := range d.Tables {
		if d.Tables[i].Name == name {
			return &d.Tables[i], true
		}
	}
	return nil, false
}

// JSON renders the export mapping as indented JSON.
func (d *Database) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// YAML renders the export mapping as YAML.
func (d *Database) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}

// Introspect enumerates the current schema's tables and views and gathers
// columns, primary keys and foreign keys for each. A single object that
// cannot be described is logged and kept with zero columns; it does not
// abort the run.
func Introspect(ctx context.Context, db *sql.DB, logger *slog.Logger) (*Database, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	names, err := listTables(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	out := &Database{Tables: make([]Table, 0, len(names))}
	for _, name := range names {
		table, err := introspectTable(ctx, db, name)
		if err != nil {
			logger.Warn("failed to describe table", "table", name, "error", err)
			out.Tables = append(out.Tables, Table{Name: name})
			continue
		}
		out.Tables = append(out.Tables, table)
	}
	return out, nil
}

// IntrospectTable gathers one table's columns and keys.
func IntrospectTable(ctx context.Context, db *sql.DB, name string) (Table, error) {
	return introspectTable(ctx, db, name)
}

func listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func introspectTable(ctx context.Context, db *sql.DB, name string) (Table, error) {
	table := Table{Name: name}

	cols, err := fetchColumns(ctx, db, name)
	if err != nil {
		return Table{}, err
	}
	table.Columns = cols

	pks, err := fetchPrimaryKeys(ctx, db, name)
	if err != nil {
		return Table{}, err
	}
	table.PrimaryKeys = pks
	for i := range table.Columns {
		for _, pk := range pks {
			if table.Columns[i].Name == pk {
				table.Columns[i].PrimaryKey = true
			}
		}
	}

	table.ForeignKeys = fetchForeignKeys(ctx, db, name)
	return table, nil
}

func fetchColumns(ctx context.Context, db *sql.DB, name string) ([]Column, error) {
	query := fmt.Sprintf(`SELECT column_name, column_type, "null", "default" FROM (DESCRIBE %s)`,
		quoteIdent(name))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var cols []Column
	for rows.Next() {
		var (
			colName  string
			colType  string
			nullable string
			dflt     sql.NullString
		)
		if err := rows.Scan(&colName, &colType, &nullable, &dflt); err != nil {
			return nil, err
		}
		cols = append(cols, Column{
			Name:     colName,
			Type:     colType,
			Nullable: nullable != "NO",
			Default:  dflt.String,
		})
	}
	return cols, rows.Err()
}

func fetchPrimaryKeys(ctx context.Context, db *sql.DB, name string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA table_info(%s)", quoteString(name)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var pks []string
	for rows.Next() {
		var (
			cid     int
			colName string
			colType string
			notNull bool
			dflt    sql.NullString
			pk      bool
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		if pk {
			pks = append(pks, colName)
		}
	}
	return pks, rows.Err()
}

// fetchForeignKeys reads PRAGMA foreign_key_list. Engines without that
// pragma, and objects without foreign keys, yield an empty list; this is
// optional information and never fails the introspection.
func fetchForeignKeys(ctx context.Context, db *sql.DB, name string) []ForeignKey {
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteString(name)))
	if err != nil {
		return nil
	}
	defer func() { _ = rows.Close() }()

	var fks []ForeignKey
	for rows.Next() {
		var (
			id, seq                   int
			refTable, from, to        string
			onUpdate, onDelete, match sql.NullString
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return fks
		}
		fks = append(fks, ForeignKey{
			Column:     from,
			References: Reference{Table: refTable, Column: to},
		})
	}
	_ = rows.Err()
	return fks
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteString(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
