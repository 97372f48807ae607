// ABOUTME: Tests for SQLite memory store implementation
// ABOUTME: Covers schema creation, append/recent ordering, limits, and clearing

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "memory.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file was not created in nested directory")
}

func TestNewSQLiteStore_InMemory(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Append(context.Background(), "conv", RoleUser, "hi")
	require.NoError(t, err)

	msgs, err := s.Recent(context.Background(), "conv", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSQLiteStore_AppendAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Append(ctx, "conv-1", RoleUser, "what is 2+2?")
	require.NoError(t, err)
	assert.Len(t, first.ID, 26, "expected a ULID")
	assert.False(t, first.CreatedAt.IsZero())

	_, err = s.Append(ctx, "conv-1", RoleAssistant, "4")
	require.NoError(t, err)
	_, err = s.Append(ctx, "conv-2", RoleUser, "other conversation")
	require.NoError(t, err)

	msgs, err := s.Recent(ctx, "conv-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "what is 2+2?", msgs[0].Content)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, "conv-1", msgs[1].ConversationID)
}

func TestSQLiteStore_RecentLimitKeepsNewestInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, "conv", RoleUser, fmt.Sprintf("msg-%d", i))
		require.NoError(t, err)
	}

	msgs, err := s.Recent(ctx, "conv", 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "msg-2", msgs[0].Content)
	assert.Equal(t, "msg-3", msgs[1].Content)
	assert.Equal(t, "msg-4", msgs[2].Content)

	all, err := s.Recent(ctx, "conv", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestSQLiteStore_RecentUnknownConversation(t *testing.T) {
	s := newTestStore(t)

	msgs, err := s.Recent(context.Background(), "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSQLiteStore_AppendValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, "", RoleUser, "x")
	assert.ErrorIs(t, err, ErrEmptyConversationID)

	_, err = s.Append(ctx, "conv", "robot", "x")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestSQLiteStore_Clear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"a", "b"} {
		_, err := s.Append(ctx, "conv", RoleUser, content)
		require.NoError(t, err)
	}
	_, err := s.Append(ctx, "keep", RoleUser, "c")
	require.NoError(t, err)

	n, err := s.Clear(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	msgs, err := s.Recent(ctx, "conv", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	kept, err := s.Recent(ctx, "keep", 0)
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	n, err = s.Clear(ctx, "conv")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_ConcurrentAppends(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Append(ctx, "conv", RoleUser, fmt.Sprintf("m%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	msgs, err := s.Recent(ctx, "conv", 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 20)
}
