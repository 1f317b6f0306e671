package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mallardlabs/mallard/internal/history"
)

// HistoryOptions contains options for the history command.
type HistoryOptions struct {
	Limit int
	Clear bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent queries",
		Long: `Show queries recently executed through mallard, newest first.

Every statement run by the query command or the REPL is recorded with its
runtime, row count, and error if it failed. History lives in a separate
state database and never touches the browsed database.`,
		Example: `  # Last 50 queries
  mallard history

  # Last 10 queries
  mallard history --limit 10

  # Machine-readable listing
  mallard history --format json

  # Forget everything
  mallard history --clear`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", history.DefaultLimit, "Maximum number of entries to show")
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "Delete all recorded history")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx := NewCommandContextWithoutSession(cmd)

	statePath, err := resolveStatePath(cmdCtx.Cfg)
	if err != nil {
		return fmt.Errorf("failed to resolve state path: %w", err)
	}
	store, err := history.Open(statePath)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer func() { _ = store.Close() }()

	if opts.Clear {
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
		return nil
	}

	entries, err := store.Recent(opts.Limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if cmdCtx.Cfg.Format == "json" {
		return renderHistoryJSON(cmd, entries)
	}

	if len(entries) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no history)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"TIME", "DURATION", "ROWS", "STATUS", "SQL"})
	for _, e := range entries {
		status := "ok"
		if e.Error != "" {
			status = "error"
		}
		t.AppendRow(table.Row{
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Duration.Round(time.Millisecond).String(),
			e.RowCount,
			status,
			summarizeSQL(e.SQL),
		})
	}
	t.Render()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "(%d entries)\n", len(entries))

	return nil
}

func renderHistoryJSON(cmd *cobra.Command, entries []history.Entry) error {
	type entryJSON struct {
		ID         string `json:"id"`
		SQL        string `json:"sql"`
		StartedAt  string `json:"started_at"`
		DurationMS int64  `json:"duration_ms"`
		RowCount   int64  `json:"row_count"`
		Error      string `json:"error,omitempty"`
	}

	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON{
			ID:         e.ID,
			SQL:        e.SQL,
			StartedAt:  e.StartedAt.UTC().Format(time.RFC3339),
			DurationMS: e.Duration.Milliseconds(),
			RowCount:   e.RowCount,
			Error:      e.Error,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// summarizeSQL collapses a statement onto one line and truncates it for
// table display.
func summarizeSQL(sql string) string {
	const maxLen = 60
	flat := strings.Join(strings.Fields(sql), " ")
	if len(flat) > maxLen {
		return flat[:maxLen-3] + "..."
	}
	return flat
}
