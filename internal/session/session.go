// Package session owns the lifetime of the browsed DuckDB connection:
// opening (with optional read-only mode, extensions and settings), seeding
// a fresh database with sample data, switching to another file, and
// handing out the catalog and grid models bound to the live connection.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/mallardlabs/mallard/pkg/catalog"
	"github.com/mallardlabs/mallard/pkg/grid"
)

// Config controls how a session opens its database.
type Config struct {
	// Path is the database file. Empty or ":memory:" opens an in-memory
	// database.
	Path string

	// ReadOnly opens the file without write access and disables seeding.
	ReadOnly bool

	// Extensions are installed and loaded when the session opens, e.g.
	// "httpfs", "spatial", "json".
	Extensions []string

	// Settings are applied with SET when the session opens, e.g.
	// memory_limit or threads.
	Settings map[string]string
}

func (c Config) inMemory() bool {
	return c.Path == "" || c.Path == ":memory:"
}

func (c Config) dsn() string {
	if c.inMemory() {
		return ""
	}
	if c.ReadOnly {
		return c.Path + "?access_mode=read_only"
	}
	return c.Path
}

// Session is a live connection to one DuckDB database.
type Session struct {
	db     *sql.DB
	config Config
	logger *slog.Logger
}

// Open connects to the configured database and verifies the connection.
// A writable database with no user tables is seeded with a small sample
// table so the browser never starts on an empty screen.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := sql.Open("duckdb", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}
	if err := applyStartupOptions(ctx, db, cfg, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Session{db: db, config: cfg, logger: logger}
	if !cfg.ReadOnly {
		if err := s.seed(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// seed creates the sample table on a database that has no user tables
// yet. Databases that already hold data are left untouched.
func (s *Session) seed(ctx context.Context) error {
	var existing int
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM information_schema.tables WHERE table_schema = 'main'").Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to inspect database: %w", err)
	}
	if existing > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS test (id INTEGER PRIMARY KEY, name VARCHAR)")
	if err != nil {
		return fmt.Errorf("failed to create sample table: %w", err)
	}

	var rows int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM test").Scan(&rows); err != nil {
		return fmt.Errorf("failed to count sample rows: %w", err)
	}
	if rows == 0 {
		_, err = s.db.ExecContext(ctx, "INSERT INTO test VALUES (1, 'John'), (2, 'Jane')")
		if err != nil {
			return fmt.Errorf("failed to seed sample table: %w", err)
		}
		s.logger.Info("seeded fresh database", "path", s.DisplayPath())
	}
	return nil
}

// DB exposes the underlying connection pool.
func (s *Session) DB() *sql.DB { return s.db }

// Path returns the configured database path, empty for in-memory.
func (s *Session) Path() string {
	if s.config.inMemory() {
		return ""
	}
	return s.config.Path
}

// DisplayPath returns a human-readable database name for titles and logs.
func (s *Session) DisplayPath() string {
	if s.config.inMemory() {
		return ":memory:"
	}
	return s.config.Path
}

// ReadOnly reports whether the database was opened without write access.
func (s *Session) ReadOnly() bool { return s.config.ReadOnly }

// Close releases the connection.
func (s *Session) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Switch opens the database at cfg and replaces the current connection.
// The old connection is closed only after the new one is up, so a failed
// switch leaves the session on its previous database. Models created
// before the switch keep pointing at the old pool and must be rebuilt.
func (s *Session) Switch(ctx context.Context, cfg Config) error {
	next, err := Open(ctx, cfg, s.logger)
	if err != nil {
		return err
	}
	if s.db != nil {
		if cerr := s.db.Close(); cerr != nil {
			s.logger.Warn("failed to close previous database", "error", cerr)
		}
	}
	s.db = next.db
	s.config = next.config
	return nil
}

// NewTree returns a catalog tree bound to the current connection.
func (s *Session) NewTree() *catalog.Tree {
	return catalog.New(s.db, s.logger)
}

// NewGrid returns a result grid bound to the current connection.
func (s *Session) NewGrid() *grid.Grid {
	return grid.New(s.db, s.logger)
}

// Query runs an ad-hoc statement and materializes its result set into a
// read-only grid.
func (s *Session) Query(ctx context.Context, query string) (*grid.Grid, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	g := grid.New(s.db, s.logger)
	if err := g.FromRows(rows); err != nil {
		return nil, err
	}
	return g, nil
}

// Exec runs a statement that returns no rows and reports how many rows
// it touched.
func (s *Session) Exec(ctx context.Context, query string) (int64, error) {
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to execute statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
