package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonie-ai/harmonie/internal/transcript"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestStore_Load_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Load(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	session := NewSession("u1", "Ann")
	session.History = []transcript.Part{
		{Role: transcript.RoleUser, Text: "Hello"},
		{Role: transcript.RoleModel, Text: "Hi, Ann!"},
	}

	require.NoError(t, store.Save(ctx, session))
	assert.Equal(t, int64(1), session.Version)

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", loaded.UserID)
	assert.Equal(t, "Ann", loaded.UserName)
	assert.Equal(t, session.History, loaded.History)
	assert.Equal(t, int64(1), loaded.Version)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestStore_Save_Overwrites(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	session := NewSession("u1", "Ann")
	session.History = []transcript.Part{
		{Role: transcript.RoleUser, Text: "Hello"},
		{Role: transcript.RoleModel, Text: "Hi!"},
	}
	require.NoError(t, store.Save(ctx, session))

	session.History = append(session.History,
		transcript.Part{Role: transcript.RoleUser, Text: "How are you?"},
		transcript.Part{Role: transcript.RoleModel, Text: "Great!"},
	)
	require.NoError(t, store.Save(ctx, session))

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, loaded.History, 4)
	assert.Equal(t, "Hello", loaded.History[0].Text)
	assert.Equal(t, int64(2), loaded.Version)
}

func TestStore_Save_VersionConflict(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	session := NewSession("u1", "Ann")
	require.NoError(t, store.Save(ctx, session))

	// Two turns load the same session concurrently.
	first, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	second, err := store.Load(ctx, "u1")
	require.NoError(t, err)

	first.History = transcript.Exchange("q1", "a1")
	require.NoError(t, store.Save(ctx, first))

	second.History = transcript.Exchange("q2", "a2")
	err = store.Save(ctx, second)
	assert.ErrorIs(t, err, ErrVersionConflict)

	// The first turn's exchange survived.
	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, loaded.History, 2)
	assert.Equal(t, "q1", loaded.History[0].Text)
}

func TestStore_Save_ConflictOnConcurrentCreate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := NewSession("u1", "Ann")
	second := NewSession("u1", "Ann")

	require.NoError(t, store.Save(ctx, first))
	assert.ErrorIs(t, store.Save(ctx, second), ErrVersionConflict)
}

func TestStore_Load_CorruptHistory(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, user_name, history, version, created_at, updated_at)
		VALUES ('u1', 'Ann', 'not json', 1, '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`)
	require.NoError(t, err)

	session, err := store.Load(ctx, "u1")
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))

	// The row's identity and version come back so callers can overwrite it.
	require.NotNil(t, session)
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, int64(1), session.Version)
	assert.Empty(t, session.History)

	session.History = transcript.Exchange("fresh start", "welcome back")
	require.NoError(t, store.Save(ctx, session))

	reloaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, reloaded.History, 2)
}

func TestStore_EmptyHistoryLoadsAsEmptySlice(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	session := NewSession("u1", "Ann")
	require.NoError(t, store.Save(ctx, session))

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, loaded.History)
	assert.Empty(t, loaded.History)
}
