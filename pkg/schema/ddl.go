package schema

import (
	"fmt"
	"strings"
)

// DDL renders CREATE TABLE statements for every table, separated by a
// blank line. Tables come out referenced-first so the script replays on
// an empty database without forward references.
func (d *Database) DDL() string {
	var b strings.Builder
	for i, t := range dependencyOrder(d.Tables) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t.DDL())
		b.WriteString("\n")
	}
	return b.String()
}

// DDL renders one CREATE TABLE statement. Column constraints keep their
// introspected order; primary and foreign keys are emitted as table-level
// clauses after the columns.
func (t *Table) DDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", quoteIdent(t.Name))

	lines := make([]string, 0, len(t.Columns)+1+len(t.ForeignKeys))
	for _, c := range t.Columns {
		line := fmt.Sprintf("    %s %s", quoteIdent(c.Name), c.Type)
		if !c.Nullable {
			line += " NOT NULL"
		}
		if c.Default != "" {
			line += " DEFAULT " + c.Default
		}
		lines = append(lines, line)
	}
	if len(t.PrimaryKeys) > 0 {
		quoted := make([]string, len(t.PrimaryKeys))
		for i, pk := range t.PrimaryKeys {
			quoted[i] = quoteIdent(pk)
		}
		lines = append(lines, fmt.Sprintf("    PRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, fmt.Sprintf("    FOREIGN KEY (%s) REFERENCES %s (%s)",
			quoteIdent(fk.Column), quoteIdent(fk.References.Table), quoteIdent(fk.References.Column)))
	}

	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n);")
	return b.String()
}
