package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mallardlabs/mallard/internal/tui"
)

// BrowseOptions contains options for the browse command.
type BrowseOptions struct {
	Table string
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	opts := &BrowseOptions{}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse a database interactively",
		Long: `Open the terminal browser: a catalog tree of schemas, tables, views and
columns on the left, and the selected table's data on the right.

The data pane supports per-column filters, sorting, and in-place cell
editing (written back to the database). A SQL prompt runs ad-hoc
statements against the same connection; those are recorded in history.`,
		Example: `  # Browse an in-memory scratch database
  mallard browse

  # Browse a database file, starting on a specific table
  mallard browse -d analytics.db --table orders

  # Browse without risking modifications
  mallard browse -d analytics.db --read-only`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBrowse(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Table, "table", "t", "", "Table to select on startup")

	return cmd
}

func runBrowse(cmd *cobra.Command, opts *BrowseOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	initialTable := opts.Table
	if initialTable == "" {
		initialTable = cmdCtx.Cfg.Table
	}

	model, err := tui.New(cmd.Context(), cmdCtx.Session, cmdCtx.Logger, tui.Options{
		InitialTable: initialTable,
		OnStatement:  cmdCtx.Record,
	})
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	return tui.Run(model)
}
