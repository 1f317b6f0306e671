package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fkTo(column, table, refColumn string) ForeignKey {
	return ForeignKey{Column: column, References: Reference{Table: table, Column: refColumn}}
}

func tableNames(tables []Table) []string {
	out := make([]string, len(tables))
	for i := range tables {
		out[i] = tables[i].Name
	}
	return out
}

func TestDependencyOrderReferencedFirst(t *testing.T) {
	tables := []Table{
		{Name: "order_items", ForeignKeys: []ForeignKey{
			fkTo("order_id", "orders", "id"),
			fkTo("product_id", "products", "id"),
		}},
		{Name: "orders", ForeignKeys: []ForeignKey{fkTo("customer_id", "customers", "id")}},
		{Name: "customers"},
		{Name: "products"},
	}

	got := tableNames(dependencyOrder(tables))
	assert.Equal(t, []string{"customers", "orders", "products", "order_items"}, got)
}

func TestDependencyOrderKeepsCatalogOrderWithoutConstraints(t *testing.T) {
	tables := []Table{{Name: "zebra"}, {Name: "apple"}, {Name: "mango"}}
	assert.Equal(t, []string{"zebra", "apple", "mango"}, tableNames(dependencyOrder(tables)))
}

func TestDependencyOrderBreaksReferenceCycles(t *testing.T) {
	tables := []Table{
		{Name: "a", ForeignKeys: []ForeignKey{fkTo("b_id", "b", "id")}},
		{Name: "b", ForeignKeys: []ForeignKey{fkTo("a_id", "a", "id")}},
		{Name: "c"},
	}

	got := tableNames(dependencyOrder(tables))
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b", "a", "c"}, got)
}

func TestDependencyOrderIgnoresExternalAndSelfReferences(t *testing.T) {
	tables := []Table{
		{Name: "employees", ForeignKeys: []ForeignKey{
			fkTo("manager_id", "employees", "id"),
			fkTo("site_id", "sites", "id"),
		}},
		{Name: "badges", ForeignKeys: []ForeignKey{fkTo("employee_id", "employees", "id")}},
	}

	assert.Equal(t, []string{"employees", "badges"}, tableNames(dependencyOrder(tables)))
}

func TestDatabaseDDLEmitsReferencedTablesFirst(t *testing.T) {
	d := Database{Tables: []Table{
		{
			Name: "orders",
			Columns: []Column{
				{Name: "id", Type: "INTEGER"},
				{Name: "customer_id", Type: "INTEGER", Nullable: true},
			},
			PrimaryKeys: []string{"id"},
			ForeignKeys: []ForeignKey{fkTo("customer_id", "customers", "id")},
		},
		{
			Name:        "customers",
			Columns:     []Column{{Name: "id", Type: "INTEGER"}},
			PrimaryKeys: []string{"id"},
		},
	}}

	ddl := d.DDL()
	customersAt := strings.Index(ddl, `CREATE TABLE "customers"`)
	ordersAt := strings.Index(ddl, `CREATE TABLE "orders"`)
	require.GreaterOrEqual(t, customersAt, 0)
	require.GreaterOrEqual(t, ordersAt, 0)
	assert.Less(t, customersAt, ordersAt)
}
