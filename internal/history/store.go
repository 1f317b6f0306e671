// Package history records executed statements in a small SQLite state
// database, kept separate from the browsed DuckDB file, so past queries
// can be recalled across sessions.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultLimit bounds Recent when the caller passes no limit.
const DefaultLimit = 50

// Entry is one executed statement with its outcome.
type Entry struct {
	ID        string
	SQL       string
	StartedAt time.Time
	Duration  time.Duration
	RowCount  int64
	Error     string
}

// Store persists history entries in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the per-user history database location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".mallard", "history.db"), nil
}

// Open opens the history database at path, creating the parent directory
// and running pending migrations. Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the history database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Append records one executed statement. A missing ID or start time is
// filled in, and the completed entry is returned.
func (s *Store) Append(e Entry) (Entry, error) {
	if s.db == nil {
		return Entry{}, fmt.Errorf("history database not opened")
	}

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now().UTC()
	}

	var errMsg *string
	if e.Error != "" {
		errMsg = &e.Error
	}

	_, err := s.db.Exec(
		`INSERT INTO history (id, sql_text, started_at, duration_ms, row_count, error) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.SQL, e.StartedAt, e.Duration.Milliseconds(), e.RowCount, errMsg,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record history entry: %w", err)
	}
	return e, nil
}

// Recent returns the newest entries, newest first. A non-positive limit
// falls back to DefaultLimit.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("history database not opened")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.Query(
		`SELECT id, sql_text, started_at, duration_ms, row_count, error
		 FROM history ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			durationMS int64
			errMsg     sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.SQL, &e.StartedAt, &durationMS, &e.RowCount, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if errMsg.Valid {
			e.Error = errMsg.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune drops everything but the newest keep entries. Non-positive keep
// is a no-op.
func (s *Store) Prune(keep int) error {
	if s.db == nil {
		return fmt.Errorf("history database not opened")
	}
	if keep <= 0 {
		return nil
	}

	_, err := s.db.Exec(
		`DELETE FROM history WHERE id NOT IN
		 (SELECT id FROM history ORDER BY started_at DESC, rowid DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (s *Store) Clear() error {
	if s.db == nil {
		return fmt.Errorf("history database not opened")
	}

	if _, err := s.db.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
