// ABOUTME: Chat service: history window from memory, model call, think filtering, persistence
// ABOUTME: The user turn is remembered before the model runs; the visible reply after it finishes

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/mcp-gateway/internal/store"
	"github.com/2389/mcp-gateway/internal/think"
)

// ErrEmptyMessage is returned when the user message is blank.
var ErrEmptyMessage = errors.New("message must not be empty")

// Defaults for the history window and conversation key.
const (
	DefaultHistorySize     = 10
	DefaultMinHistory      = 1
	DefaultMaxHistory      = 50
	DefaultConversationID  = "test"
	DefaultBlockedResponse = "Sorry, the message contains restricted content."
	streamEventBufferSize  = 16
)

// Config configures a Service. Zero history bounds take the package defaults.
type Config struct {
	Store  store.MemoryStore
	Model  Model
	Logger *slog.Logger

	DefaultHistory int
	MinHistory     int
	MaxHistory     int

	// BlockedWords short-circuits any message containing one of them.
	BlockedWords    []string
	BlockedResponse string
}

// Service runs chat turns against a model with conversation memory.
type Service struct {
	store  store.MemoryStore
	model  Model
	logger *slog.Logger

	defaultHistory int
	minHistory     int
	maxHistory     int

	blockedWords    []string
	blockedResponse string
}

// New creates a chat Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:           cfg.Store,
		model:           cfg.Model,
		logger:          logger.With("component", "conversation"),
		defaultHistory:  cfg.DefaultHistory,
		minHistory:      cfg.MinHistory,
		maxHistory:      cfg.MaxHistory,
		blockedWords:    cfg.BlockedWords,
		blockedResponse: cfg.BlockedResponse,
	}
	if s.defaultHistory <= 0 {
		s.defaultHistory = DefaultHistorySize
	}
	if s.minHistory <= 0 {
		s.minHistory = DefaultMinHistory
	}
	if s.maxHistory <= 0 {
		s.maxHistory = DefaultMaxHistory
	}
	if s.blockedResponse == "" {
		s.blockedResponse = DefaultBlockedResponse
	}
	return s
}

// ChatRequest is one user turn.
type ChatRequest struct {
	ConversationID string
	Message        string
	// HistorySize is the number of remembered messages sent to the model; nil means default.
	HistorySize *int
}

// HistorySize clamps a requested window: nil or below the minimum gives the
// default, above the maximum gives the maximum.
func (s *Service) HistorySize(requested *int) int {
	switch {
	case requested == nil:
		return s.defaultHistory
	case *requested < s.minHistory:
		return s.defaultHistory
	case *requested > s.maxHistory:
		return s.maxHistory
	default:
		return *requested
	}
}

// Chat runs one turn and returns the complete reply with thinking removed.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (string, error) {
	convID, err := s.validate(&req)
	if err != nil {
		return "", err
	}
	if s.blocked(req.Message) {
		s.logger.Info("message blocked", "conversation_id", convID)
		return s.blockedResponse, nil
	}

	modelReq, err := s.prepare(ctx, convID, req)
	if err != nil {
		return "", err
	}

	raw, err := s.model.Complete(ctx, modelReq)
	if err != nil {
		return "", fmt.Errorf("model completion: %w", err)
	}
	reply := think.Strip(raw)

	if _, err := s.store.Append(ctx, convID, store.RoleAssistant, reply); err != nil {
		return "", fmt.Errorf("remembering reply: %w", err)
	}

	s.logger.Debug("chat turn complete", "conversation_id", convID, "reply_len", len(reply))
	return reply, nil
}

// ChatStream runs one turn and streams visible content snapshots. Each event
// carries the full visible reply so far; the last one is marked Final. The
// channel closes early without a Final event if ctx is cancelled, and nothing
// is remembered for the reply in that case.
func (s *Service) ChatStream(ctx context.Context, req ChatRequest) (<-chan think.Event, error) {
	convID, err := s.validate(&req)
	if err != nil {
		return nil, err
	}
	if s.blocked(req.Message) {
		s.logger.Info("message blocked", "conversation_id", convID)
		out := make(chan think.Event, 1)
		out <- think.Event{Content: s.blockedResponse, Final: true}
		close(out)
		return out, nil
	}

	modelReq, err := s.prepare(ctx, convID, req)
	if err != nil {
		return nil, err
	}

	chunks, err := s.model.Stream(ctx, modelReq)
	if err != nil {
		return nil, fmt.Errorf("model stream: %w", err)
	}

	return s.persistReply(ctx, convID, think.Filter(ctx, chunks)), nil
}

// persistReply forwards filtered events and remembers the final visible reply.
func (s *Service) persistReply(ctx context.Context, convID string, in <-chan think.Event) <-chan think.Event {
	out := make(chan think.Event, streamEventBufferSize)

	go func() {
		defer close(out)

		for ev := range in {
			if ev.Final {
				reply := strings.TrimSpace(ev.Content)
				if _, err := s.store.Append(context.WithoutCancel(ctx), convID, store.RoleAssistant, reply); err != nil {
					s.logger.Error("failed to remember streamed reply",
						"conversation_id", convID,
						"error", err)
				}
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				s.logger.Debug("context cancelled during reply streaming", "conversation_id", convID)
				// The filter stops on cancel; drain so it can close.
				for range in {
				}
				return
			}
		}
	}()

	return out
}

// ClearMemory forgets a conversation and reports how many messages were removed.
func (s *Service) ClearMemory(ctx context.Context, conversationID string) (int64, error) {
	if strings.TrimSpace(conversationID) == "" {
		return 0, store.ErrEmptyConversationID
	}
	return s.store.Clear(ctx, conversationID)
}

func (s *Service) validate(req *ChatRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", ErrEmptyMessage
	}
	if req.ConversationID == "" {
		return DefaultConversationID, nil
	}
	return req.ConversationID, nil
}

func (s *Service) blocked(message string) bool {
	for _, word := range s.blockedWords {
		if word != "" && strings.Contains(message, word) {
			return true
		}
	}
	return false
}

// prepare loads the history window, remembers the user turn, and builds the model request.
func (s *Service) prepare(ctx context.Context, convID string, req ChatRequest) (*ModelRequest, error) {
	size := s.HistorySize(req.HistorySize)

	history, err := s.store.Recent(ctx, convID, size)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	if _, err := s.store.Append(ctx, convID, store.RoleUser, req.Message); err != nil {
		return nil, fmt.Errorf("remembering message: %w", err)
	}

	modelReq := &ModelRequest{Messages: make([]ModelMessage, 0, len(history)+1)}
	for _, m := range history {
		modelReq.Messages = append(modelReq.Messages, ModelMessage{Role: m.Role, Content: m.Content})
	}
	modelReq.Messages = append(modelReq.Messages, ModelMessage{Role: store.RoleUser, Content: req.Message})

	s.logger.Debug("chat turn prepared",
		"conversation_id", convID,
		"history_size", size,
		"history_loaded", len(history))
	return modelReq, nil
}
