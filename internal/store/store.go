// ABOUTME: Store interface and session types for per-user transcript persistence
// ABOUTME: Defines the Session struct, sentinel errors, and StoreError kinds

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harmonie-ai/harmonie/internal/transcript"
)

// ErrNotFound is returned by Load when no session exists for the user.
// Absence is a valid state meaning "new user", not a storage failure.
var ErrNotFound = errors.New("session not found")

// ErrVersionConflict is returned by Save when the session's version stamp
// no longer matches the stored row: another turn saved in between.
// Callers reload and reapply their change.
var ErrVersionConflict = errors.New("session version conflict")

// ErrorKind classifies genuine storage failures.
type ErrorKind string

const (
	// KindUnavailable means the persistence layer could not be reached
	// or the operation failed at the driver level.
	KindUnavailable ErrorKind = "unavailable"
	// KindCorrupt means a stored record exists but cannot be parsed.
	KindCorrupt ErrorKind = "corrupt"
)

// StoreError wraps a storage failure with its kind.
type StoreError struct {
	Kind ErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsCorrupt reports whether err is a StoreError of kind Corrupt.
func IsCorrupt(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr) && storeErr.Kind == KindCorrupt
}

// Session is the durable per-user conversational state. The history holds
// whole exchanges oldest first and never includes the system instruction,
// which is injected fresh on every turn.
type Session struct {
	UserID   string
	UserName string
	History  []transcript.Part

	// Version is the optimistic-concurrency stamp. Zero means the session
	// has never been saved; Save rejects writes whose version does not
	// match the stored row.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession returns an empty session for a user seen for the first time.
func NewSession(userID, userName string) *Session {
	return &Session{UserID: userID, UserName: userName}
}

// Store persists conversation sessions keyed by user identity.
// Implementations must be safe for concurrent use; atomicity is per call,
// not across a Load/Save pair.
type Store interface {
	// Load returns the session for userID, or ErrNotFound if none exists.
	// On a Corrupt StoreError implementations should return the row's
	// identity and version (with empty history) alongside the error, so
	// callers can overwrite the unreadable record.
	Load(ctx context.Context, userID string) (*Session, error)

	// Save fully overwrites the stored session for session.UserID. It is
	// not a merge: callers must load-modify-save as a unit. Returns
	// ErrVersionConflict if the stored version differs from
	// session.Version; on success the session's Version is advanced to
	// the newly stored value.
	Save(ctx context.Context, session *Session) error

	// Close releases the underlying resources.
	Close() error
}
