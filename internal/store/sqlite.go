// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Persists session history as JSON with a version stamp for conflict detection

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/harmonie-ai/harmonie/internal/transcript"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the sessions table if it doesn't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			user_id    TEXT PRIMARY KEY,
			user_name  TEXT NOT NULL DEFAULT '',
			history    TEXT NOT NULL DEFAULT '[]',
			version    INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Load returns the stored session for userID, or ErrNotFound.
// A row whose history column does not parse as JSON yields a StoreError
// of kind Corrupt together with a session carrying the row's identity
// and version; the caller decides whether to start the user over.
func (s *SQLiteStore) Load(ctx context.Context, userID string) (*Session, error) {
	var (
		session   Session
		history   string
		createdAt string
		updatedAt string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, user_name, history, version, created_at, updated_at
		FROM sessions WHERE user_id = ?`, userID,
	).Scan(&session.UserID, &session.UserName, &history, &session.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Kind: KindUnavailable, Err: fmt.Errorf("loading session %s: %w", userID, err)}
	}

	session.CreatedAt = parseTime(createdAt)
	session.UpdatedAt = parseTime(updatedAt)

	if err := json.Unmarshal([]byte(history), &session.History); err != nil {
		// Return the row's identity and version with the error so the
		// caller can overwrite the unreadable record instead of fighting
		// the version guard forever.
		session.History = []transcript.Part{}
		return &session, &StoreError{Kind: KindCorrupt, Err: fmt.Errorf("parsing history for %s: %w", userID, err)}
	}
	if session.History == nil {
		session.History = []transcript.Part{}
	}
	return &session, nil
}

// Save overwrites the stored session, guarded by the version stamp.
// A session with Version 0 must not already exist; a session with
// Version n only overwrites a row still at version n. Any mismatch
// returns ErrVersionConflict. On success session.Version is advanced.
func (s *SQLiteStore) Save(ctx context.Context, session *Session) error {
	history, err := json.Marshal(session.History)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	if session.Version == 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO sessions (user_id, user_name, history, version, created_at, updated_at)
			VALUES (?, ?, ?, 1, ?, ?)`,
			session.UserID, session.UserName, string(history), now, now)
		if err != nil {
			if isConstraintViolation(err) {
				return ErrVersionConflict
			}
			return &StoreError{Kind: KindUnavailable, Err: fmt.Errorf("inserting session %s: %w", session.UserID, err)}
		}
		session.Version = 1
		return nil
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET user_name = ?, history = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?`,
		session.UserName, string(history), now, session.UserID, session.Version)
	if err != nil {
		return &StoreError{Kind: KindUnavailable, Err: fmt.Errorf("updating session %s: %w", session.UserID, err)}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &StoreError{Kind: KindUnavailable, Err: fmt.Errorf("checking update result: %w", err)}
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	session.Version++
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isConstraintViolation reports whether err is a primary-key conflict.
// modernc.org/sqlite surfaces these as generic errors, so match on the
// SQLite error text.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "constraint failed")
}

// parseTime parses a stored RFC3339 timestamp, tolerating older rows
// with no fractional seconds.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
