package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Input string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run SQL against the browsed database",
		Long: `Run ad-hoc SQL against the browsed DuckDB database.

Results render in the configured format, and every executed statement is
recorded in the query history.

When invoked without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Execute SQL directly
  mallard query "SELECT * FROM test" --database data.duckdb

  # Output as JSON
  mallard query "SELECT * FROM test" --format json

  # Read SQL from a file or a pipe
  mallard query --input report.sql
  echo "SELECT 42" | mallard query

  # Interactive mode
  mallard query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// Determine SQL source
	var sqlQuery string

	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(os.Stdin):
		// Read from stdin (piped input)
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	default:
		// No input, TTY detected - enter REPL mode
		return runQueryREPL(cmd, cmdCtx)
	}

	return executeAndRender(cmd, cmdCtx, sqlQuery)
}

// executeAndRender runs one statement, records it in history, and renders
// the result grid.
func executeAndRender(cmd *cobra.Command, cmdCtx *CommandContext, sqlQuery string) error {
	start := time.Now()
	g, err := cmdCtx.Session.Query(cmd.Context(), sqlQuery)
	if err != nil {
		cmdCtx.Record(sqlQuery, start, 0, err)
		return fmt.Errorf("query failed: %w", err)
	}
	cmdCtx.Record(sqlQuery, start, int64(g.TotalRowCount()), nil)

	return renderGrid(cmd.OutOrStdout(), g, cmdCtx.Cfg.Format)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
