package commands

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mallardlabs/mallard/internal/config"
	"github.com/mallardlabs/mallard/internal/history"
	"github.com/mallardlabs/mallard/internal/session"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Session *session.Session
	History *history.Store
}

// NewCommandContext opens the browsed database and the history store.
// Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	sess, err := session.Open(cmd.Context(), sessionConfig(cfg, cfg.Database), logger)
	if err != nil {
		return nil, nil, err
	}

	// History is convenience, not correctness. A store that cannot be
	// opened downgrades to no recording.
	store := openHistory(cfg, logger)

	cleanup := func() {
		if store != nil {
			_ = store.Close()
		}
		_ = sess.Close()
	}

	return &CommandContext{
		Cfg:     cfg,
		Logger:  logger,
		Session: sess,
		History: store,
	}, cleanup, nil
}

// NewCommandContextWithoutSession creates a CommandContext without opening
// the browsed database. Useful for commands that only need the history
// store or configuration.
func NewCommandContextWithoutSession(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
	}
}

// OpenHistory opens the history store for contexts created without one.
func (c *CommandContext) OpenHistory() *history.Store {
	if c.History == nil {
		c.History = openHistory(c.Cfg, c.Logger)
	}
	return c.History
}

// Record appends one executed statement to the query history and trims
// the store to the configured limit. Safe to call without a store.
func (c *CommandContext) Record(sql string, startedAt time.Time, rowCount int64, execErr error) {
	if c.History == nil {
		return
	}

	entry := history.Entry{
		SQL:       sql,
		StartedAt: startedAt.UTC(),
		Duration:  time.Since(startedAt),
		RowCount:  rowCount,
	}
	if execErr != nil {
		entry.Error = execErr.Error()
	}

	if _, err := c.History.Append(entry); err != nil {
		c.Logger.Warn("failed to record query history", "error", err)
		return
	}
	if err := c.History.Prune(c.Cfg.HistoryLimit); err != nil {
		c.Logger.Warn("failed to prune query history", "error", err)
	}
}

// Helper functions shared across commands

// sessionConfig maps the CLI configuration onto a session opening the
// database at path.
func sessionConfig(cfg *config.Config, path string) session.Config {
	return session.Config{
		Path:       path,
		ReadOnly:   cfg.ReadOnly,
		Extensions: cfg.Extensions,
		Settings:   cfg.Settings,
	}
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to
// environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	// Fallback: read from environment with defaults
	return &config.Config{
		Database:     os.Getenv("MALLARD_DATABASE"),
		ReadOnly:     os.Getenv("MALLARD_READ_ONLY") == "true",
		StatePath:    os.Getenv("MALLARD_STATE_PATH"),
		HistoryLimit: config.DefaultHistoryLimit,
		Verbose:      os.Getenv("MALLARD_VERBOSE") == "true",
		Output:       getEnvOrDefault("MALLARD_OUTPUT", config.DefaultOutput),
		Format:       getEnvOrDefault("MALLARD_FORMAT", config.DefaultFormat),
		Table:        os.Getenv("MALLARD_TABLE"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// resolveStatePath returns the history database path from config or the
// per-user default.
func resolveStatePath(cfg *config.Config) (string, error) {
	if cfg.StatePath != "" {
		return cfg.StatePath, nil
	}
	return history.DefaultPath()
}

func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	path, err := resolveStatePath(cfg)
	if err != nil {
		logger.Warn("history disabled", "error", err)
		return nil
	}
	store, err := history.Open(path)
	if err != nil {
		logger.Warn("history disabled", "path", path, "error", err)
		return nil
	}
	return store
}
