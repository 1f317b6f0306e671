package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mallardlabs/mallard/pkg/catalog"
)

// TablesOptions contains options for the tables command.
type TablesOptions struct {
	Filter string
}

// objectInfo describes one table or view for the listing.
type objectInfo struct {
	Schema  string `json:"schema"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Columns int    `json:"columns"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	opts := &TablesOptions{}

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables and views",
		Long: `List every table and view in the connected database, grouped by schema,
with the number of columns each one has.

A filter matches object names case-insensitively as a substring.`,
		Example: `  # All tables and views
  mallard tables -d analytics.db

  # Only objects whose name contains "order"
  mallard tables --filter order

  # Machine-readable listing
  mallard tables --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTables(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "Only list objects whose name contains this substring")

	return cmd
}

func runTables(cmd *cobra.Command, opts *TablesOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	tree := cmdCtx.Session.NewTree()
	if opts.Filter != "" {
		err = tree.UpdateFilter(cmd.Context(), opts.Filter)
	} else {
		err = tree.Build(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	objects := collectObjects(tree)

	if cmdCtx.Cfg.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(objects)
	}

	if len(objects) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no tables)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"SCHEMA", "NAME", "TYPE", "COLUMNS"})
	for _, o := range objects {
		t.AppendRow(table.Row{o.Schema, o.Name, o.Type, o.Columns})
	}
	t.Render()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "(%d objects)\n", len(objects))

	return nil
}

// collectObjects flattens the catalog tree into schema-ordered table and
// view entries.
func collectObjects(tree *catalog.Tree) []objectInfo {
	objects := []objectInfo{}
	root := tree.Root()
	for si := 0; si < tree.ChildCount(root); si++ {
		sh := tree.Index(si, root)
		schemaName := tree.Data(sh)
		for ci := 0; ci < tree.ChildCount(sh); ci++ {
			ch := tree.Index(ci, sh)
			for oi := 0; oi < tree.ChildCount(ch); oi++ {
				oh := tree.Index(oi, ch)
				objects = append(objects, objectInfo{
					Schema:  schemaName,
					Name:    tree.Data(oh),
					Type:    tree.Kind(oh).String(),
					Columns: tree.ChildCount(oh),
				})
			}
		}
	}
	return objects
}
