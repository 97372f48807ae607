// ABOUTME: Mock MemoryStore implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MockStore is an in-memory MemoryStore implementation for testing.
type MockStore struct {
	mu       sync.RWMutex
	messages map[string][]*MemoryMessage // keyed by conversation ID
}

var _ MemoryStore = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		messages: make(map[string][]*MemoryMessage),
	}
}

// Append stores a message at the end of the conversation.
func (m *MockStore) Append(ctx context.Context, conversationID, role, content string) (*MemoryMessage, error) {
	if err := validateAppend(conversationID, role); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	msg := &MemoryMessage{
		ID:             ulid.Make().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	m.messages[conversationID] = append(m.messages[conversationID], msg)

	// Return a copy to avoid external modification
	out := *msg
	return &out, nil
}

// Recent returns the newest limit messages, oldest first.
func (m *MockStore) Recent(ctx context.Context, conversationID string, limit int) ([]*MemoryMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.messages[conversationID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}

	result := make([]*MemoryMessage, 0, len(all))
	for _, msg := range all {
		out := *msg
		result = append(result, &out)
	}
	return result, nil
}

// Clear removes every message of a conversation.
func (m *MockStore) Clear(ctx context.Context, conversationID string) (int64, error) {
	if conversationID == "" {
		return 0, ErrEmptyConversationID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.messages[conversationID]))
	delete(m.messages, conversationID)
	return n, nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
