package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mallardlabs/mallard/pkg/schema"
)

// SchemaOptions contains options for the schema command.
type SchemaOptions struct {
	Format string
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	opts := &SchemaOptions{}

	cmd := &cobra.Command{
		Use:   "schema [table]",
		Short: "Show database schema as DDL, JSON, or YAML",
		Long: `Show the schema of the connected database, or of a single table.

The default output is SQL DDL (CREATE TABLE statements). JSON and YAML
encodings carry the same structure: tables, columns with types and
nullability, primary keys, and foreign keys where the engine reports them.`,
		Example: `  # Whole database as CREATE TABLE statements
  mallard schema -d analytics.db

  # One table only
  mallard schema users -d analytics.db

  # Machine-readable exports
  mallard schema --format json
  mallard schema --format yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "ddl", "Output format: ddl, json, yaml")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"ddl", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runSchema(cmd *cobra.Command, args []string, opts *SchemaOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	var db schema.Database
	if len(args) == 1 {
		table, err := schema.IntrospectTable(cmd.Context(), cmdCtx.Session.DB(), args[0])
		if err != nil {
			return fmt.Errorf("failed to introspect table %q: %w", args[0], err)
		}
		db = schema.Database{Tables: []schema.Table{table}}
	} else {
		introspected, err := schema.Introspect(cmd.Context(), cmdCtx.Session.DB(), cmdCtx.Logger)
		if err != nil {
			return fmt.Errorf("failed to introspect database: %w", err)
		}
		db = *introspected
	}

	return renderSchema(cmd.OutOrStdout(), db, opts.Format)
}

func renderSchema(w io.Writer, db schema.Database, format string) error {
	switch format {
	case "json":
		data, err := db.JSON()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, string(data))
		return nil
	case "yaml":
		data, err := db.YAML()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(w, string(data))
		return nil
	case "ddl":
		_, _ = fmt.Fprint(w, db.DDL())
		return nil
	default:
		return fmt.Errorf("unknown schema format: %s (valid: ddl, json, yaml)", format)
	}
}
