// ABOUTME: HTTP API handlers for the chat service, including SSE streaming.
// ABOUTME: Provides /api/chat/sync, /api/chat/stream, /api/chat/memory/clear, and /api/chat/tools.

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"

	"github.com/2389/mcp-gateway/internal/conversation"
	"github.com/2389/mcp-gateway/internal/store"
)

// SSE event types sent by /api/chat/stream.
const (
	sseEventContent = "content"
	sseEventDone    = "done"
	sseEventError   = "error"
)

// requestIDHeader carries the id assigned to each chat request.
const requestIDHeader = "X-Request-Id"

// ClearMemoryResponse is the JSON response for POST /api/chat/memory/clear.
type ClearMemoryResponse struct {
	UserID  string `json:"userId"`
	Cleared int64  `json:"cleared"`
}

// ToolInfoResponse is one entry of GET /api/chat/tools.
type ToolInfoResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (g *Gateway) registerChatRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/chat/sync", g.handleChatSync)
	mux.HandleFunc("/api/chat/stream", g.handleChatStream)
	mux.HandleFunc("/api/chat/memory/clear", g.handleClearMemory)
	mux.HandleFunc("/api/chat/tools", g.handleListTools)
}

// parseChatRequest reads message, historySize and userId from the query string.
func parseChatRequest(r *http.Request) (conversation.ChatRequest, error) {
	q := r.URL.Query()
	req := conversation.ChatRequest{
		ConversationID: q.Get("userId"),
		Message:        q.Get("message"),
	}
	if raw := q.Get("historySize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.New("historySize must be an integer")
		}
		req.HistorySize = &n
	}
	return req, nil
}

// handleChatSync runs one chat turn and returns the reply as plain text.
func (g *Gateway) handleChatSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseChatRequest(r)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	requestID := uuid.New().String()
	reply, err := g.conversation.Chat(r.Context(), req)
	if errors.Is(err, conversation.ErrEmptyMessage) {
		g.sendJSONError(w, http.StatusBadRequest, "message is required")
		return
	}
	if err != nil {
		g.logger.Error("chat failed", "request_id", requestID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(requestIDHeader, requestID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(reply))
}

// handleChatStream runs one chat turn and streams visible-content snapshots over SSE.
// Each "content" event carries the full non-empty visible reply so far; a "done" event
// carrying the request id ends a completed stream.
func (g *Gateway) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseChatRequest(r)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	requestID := uuid.New().String()
	logger := g.logger.With("request_id", requestID)

	// Start the turn before upgrading so validation failures are plain HTTP errors.
	events, err := g.conversation.ChatStream(r.Context(), req)
	if errors.Is(err, conversation.ErrEmptyMessage) {
		g.sendJSONError(w, http.StatusBadRequest, "message is required")
		return
	}
	if err != nil {
		logger.Error("chat stream failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set(requestIDHeader, requestID)
	w.Header().Set("X-Accel-Buffering", "no")
	sess, err := sse.Upgrade(w, r)
	if err != nil {
		logger.Error("failed to upgrade to SSE", "error", err)
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	completed := false
	for ev := range events {
		completed = ev.Final
		if ev.Content == "" && !ev.Final {
			continue
		}
		if err := g.sendSSE(sess, sseEventContent, ev.Content); err != nil {
			logger.Debug("client went away during chat stream", "error", err)
			return
		}
	}

	if !completed {
		// The channel closed without a final event: the request was cancelled.
		_ = g.sendSSE(sess, sseEventError, "request cancelled")
		return
	}
	if err := g.sendSSE(sess, sseEventDone, requestID); err != nil {
		logger.Debug("failed to send done event", "error", err)
	}
}

// sendSSE writes and flushes a single event.
func (g *Gateway) sendSSE(sess *sse.Session, eventType, data string) error {
	msg := &sse.Message{Type: sse.Type(eventType)}
	msg.AppendData(data)
	if err := sess.Send(msg); err != nil {
		return err
	}
	return sess.Flush()
}

// handleClearMemory forgets a user's conversation memory.
func (g *Gateway) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = conversation.DefaultConversationID
	}

	cleared, err := g.conversation.ClearMemory(r.Context(), userID)
	if errors.Is(err, store.ErrEmptyConversationID) {
		g.sendJSONError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if err != nil {
		g.logger.Error("failed to clear memory", "user_id", userID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.logger.Info("conversation memory cleared", "user_id", userID, "cleared", cleared)
	g.sendJSON(w, http.StatusOK, ClearMemoryResponse{UserID: userID, Cleared: cleared})
}

// handleListTools lists the registered tools.
func (g *Gateway) handleListTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	tools := g.registry.ListTools()
	resp := make([]ToolInfoResponse, 0, len(tools))
	for _, t := range tools {
		resp = append(resp, ToolInfoResponse{Name: t.Name, Description: t.Description})
	}
	g.sendJSON(w, http.StatusOK, resp)
}

func (g *Gateway) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	g.sendJSON(w, status, map[string]string{"error": message})
}
