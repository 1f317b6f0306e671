package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/mallardlabs/mallard/internal/session"
	"github.com/mallardlabs/mallard/pkg/schema"
)

const (
	replPrompt         = "mallard> "
	replContinuePrompt = "    ...> "
)

func runQueryREPL(cmd *cobra.Command, cmdCtx *CommandContext) error {
	// Setup readline history next to the state database
	historyFile := ""
	if statePath, err := resolveStatePath(cmdCtx.Cfg); err == nil {
		historyFile = filepath.Join(filepath.Dir(statePath), "repl_history")
	}

	// Configure readline
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newTableCompleter(cmd, cmdCtx.Session),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	// Print welcome message
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Mallard SQL REPL (database: %s)\n", cmdCtx.Session.DisplayPath())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	// REPL loop
	var multiLineBuffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			multiLineBuffer.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Handle dot-commands
		if strings.HasPrefix(line, ".") {
			if handled := handleDotCommand(cmd, cmdCtx, rl, line); handled {
				if line == ".quit" || line == ".exit" {
					break
				}
				continue
			}
		}

		// Accumulate multi-line SQL until semicolon
		multiLineBuffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			multiLineBuffer.WriteString(" ")
			rl.SetPrompt(replContinuePrompt)
			continue
		}
		rl.SetPrompt(replPrompt)

		// Execute query
		query := strings.TrimSuffix(multiLineBuffer.String(), ";")
		multiLineBuffer.Reset()

		if err := executeAndRender(cmd, cmdCtx, query); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

func handleDotCommand(cmd *cobra.Command, cmdCtx *CommandContext, rl *readline.Instance, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(cmd.OutOrStdout())
		return true

	case ".tables":
		if err := listObjects(cmd, cmdCtx, false); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return true

	case ".views":
		if err := listObjects(cmd, cmdCtx, true); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return true

	case ".schema":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .schema <table>")
			return true
		}
		if err := printTableDDL(cmd, cmdCtx, parts[1]); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return true

	case ".open":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Usage: .open <path>")
			return true
		}
		if err := openDatabase(cmd, cmdCtx, rl, parts[1]); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return true

	case ".clear":
		fmt.Print("\033[H\033[2J")
		return true

	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", command)
		return true
	}
}

// listObjects renders the database's tables, or views only.
func listObjects(cmd *cobra.Command, cmdCtx *CommandContext, viewsOnly bool) error {
	query := `SELECT table_schema, table_name, table_type
		FROM information_schema.tables`
	if viewsOnly {
		query += ` WHERE table_type = 'VIEW'`
	}
	query += ` ORDER BY table_schema, table_type, table_name`

	g, err := cmdCtx.Session.Query(cmd.Context(), query)
	if err != nil {
		return err
	}
	return renderGrid(cmd.OutOrStdout(), g, cmdCtx.Cfg.Format)
}

// printTableDDL shows one table as a CREATE TABLE statement.
func printTableDDL(cmd *cobra.Command, cmdCtx *CommandContext, name string) error {
	table, err := schema.IntrospectTable(cmd.Context(), cmdCtx.Session.DB(), name)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), table.DDL())
	return nil
}

// openDatabase switches the session to another database file and refreshes
// tab completion for its tables.
func openDatabase(cmd *cobra.Command, cmdCtx *CommandContext, rl *readline.Instance, path string) error {
	if path == ":memory:" {
		path = ""
	}
	err := cmdCtx.Session.Switch(cmd.Context(), sessionConfig(cmdCtx.Cfg, path))
	if err != nil {
		return err
	}

	rl.Config.AutoComplete = newTableCompleter(cmd, cmdCtx.Session)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Opened %s\n", cmdCtx.Session.DisplayPath())
	return nil
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .tables         List all tables and views
  .views          List views only
  .schema <name>  Show CREATE TABLE for a table or view
  .open <path>    Switch to another database file
  .clear          Clear the screen
  .quit / .exit   Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for table names
`
	_, _ = fmt.Fprintln(w, help)
}

// newTableCompleter creates a readline completer for table names.
func newTableCompleter(cmd *cobra.Command, sess *session.Session) *readline.PrefixCompleter {
	rows, err := sess.DB().QueryContext(cmd.Context(),
		`SELECT table_name FROM information_schema.tables ORDER BY table_name`)
	if err != nil {
		return readline.NewPrefixCompleter()
	}
	defer func() { _ = rows.Close() }()

	var items []readline.PrefixCompleterInterface
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			items = append(items, readline.PcItem(name))
		}
	}
	// Ignore rows.Err() as this is for autocomplete, not critical
	_ = rows.Err()

	// Add dot-commands
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".views"),
		readline.PcItem(".schema"),
		readline.PcItem(".open"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
