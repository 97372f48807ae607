// ABOUTME: Conversation memory interface and data types
// ABOUTME: Memory is an append-only message log keyed by conversation id

package store

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyConversationID is returned when a conversation id is blank
var ErrEmptyConversationID = errors.New("conversation id is required")

// ErrInvalidRole is returned when a message role is not user, assistant, or system
var ErrInvalidRole = errors.New("invalid message role")

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// MemoryMessage is one remembered turn of a conversation
type MemoryMessage struct {
	ID             string // ULID, sortable by creation time
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// MemoryStore persists conversation history.
// Recent returns the newest limit messages in chronological order (oldest first).
// A limit of 0 or less returns the whole conversation.
type MemoryStore interface {
	Append(ctx context.Context, conversationID, role, content string) (*MemoryMessage, error)
	Recent(ctx context.Context, conversationID string, limit int) ([]*MemoryMessage, error)
	Clear(ctx context.Context, conversationID string) (int64, error)
	Close() error
}

func validateAppend(conversationID, role string) error {
	if conversationID == "" {
		return ErrEmptyConversationID
	}
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return nil
	default:
		return ErrInvalidRole
	}
}
