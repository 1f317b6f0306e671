package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// identPattern matches the bare identifiers INSTALL, LOAD and SET accept.
// Extension and setting names never need quoting, so anything else is
// rejected instead of escaped.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// execer is the part of *sql.DB the startup statements need. Tests
// substitute a mock connection.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// applyStartupOptions installs and loads the configured extensions, then
// applies the configured settings in a stable order. Runs once per open,
// before the connection is handed to any model.
func applyStartupOptions(ctx context.Context, db execer, cfg Config, logger *slog.Logger) error {
	for _, ext := range cfg.Extensions {
		if !identPattern.MatchString(ext) {
			return fmt.Errorf("invalid extension name %q", ext)
		}
		if _, err := db.ExecContext(ctx, "INSTALL "+ext); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if _, err := db.ExecContext(ctx, "LOAD "+ext); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
		logger.Debug("loaded extension", "extension", ext)
	}

	names := make([]string, 0, len(cfg.Settings))
	for name := range cfg.Settings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !identPattern.MatchString(name) {
			return fmt.Errorf("invalid setting name %q", name)
		}
		value := strings.ReplaceAll(cfg.Settings[name], "'", "''")
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET %s = '%s'", name, value)); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", name, err)
		}
		logger.Debug("applied setting", "name", name, "value", cfg.Settings[name])
	}
	return nil
}
