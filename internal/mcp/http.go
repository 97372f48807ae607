// ABOUTME: HTTP transport: single and batch JSON-RPC endpoints plus health and info.
// ABOUTME: Handlers decode, dispatch, and encode; they keep no state between calls.

package mcp

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// RegisterRoutes mounts the JSON-RPC endpoints, /health, /info, and the
// WebSocket endpoint at wsPath (skipped when empty).
func (s *Server) RegisterRoutes(mux *http.ServeMux, wsPath string) {
	mux.HandleFunc("/rpc", s.handleSingle)
	mux.HandleFunc("/mcp", s.handleSingle)
	mux.HandleFunc("/rpc/batch", s.handleBatch)
	mux.HandleFunc("/mcp/batch", s.handleBatch)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/info", s.handleInfo)
	if wsPath != "" {
		mux.HandleFunc(wsPath, s.ServeWebSocket)
	}
}

// readBody reads a POST body of at most maxRequestBytes. On failure it writes
// the reply itself and returns false.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxRequestBytes+1))
	if err != nil {
		s.sendResponse(w, errorResponse(nil, NewError(JSONRPCParseError, "failed to read request body")))
		return nil, false
	}
	if int64(len(body)) > s.maxRequestBytes {
		s.sendResponse(w, errorResponse(nil, s.classify(errRequestTooLarge)))
		return nil, false
	}
	return body, true
}

var errRequestTooLarge = NewError(JSONRPCInvalidRequest, "request body too large")

// handleSingle processes one JSON-RPC request object.
func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	s.sendResponse(w, s.HandleMessage(r.Context(), body))
}

// handleBatch processes a JSON array of requests and answers with an array
// of the same length and order.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	// A literal null decodes into a nil slice, so require the array bracket.
	var batch []json.RawMessage
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		s.logger.Debug("batch body is not an array")
		s.sendResponse(w, errorResponse(nil, NewError(JSONRPCParseError, "Parse error")))
		return
	}
	if err := json.Unmarshal(trimmed, &batch); err != nil {
		s.logger.Debug("undecodable batch", "error", err)
		s.sendResponse(w, errorResponse(nil, NewError(JSONRPCParseError, "Parse error")))
		return
	}

	responses := s.HandleBatch(r.Context(), batch)

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, resp := range responses {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := marshalResponse(resp)
		if err != nil {
			s.logger.Error("failed to encode batch element", "index", i, "error", err)
			data = []byte("null")
		}
		buf.Write(data)
	}
	buf.WriteByte(']')

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("failed to write JSON-RPC batch response", "error", err)
	}
}

// marshalResponse encodes resp. If the result cannot be encoded, the response
// is replaced by an internal error that keeps the same id.
func marshalResponse(resp *Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err == nil {
		return data, nil
	}
	return json.Marshal(errorResponse(resp.ID, NewError(JSONRPCInternalError, "failed to encode result: "+err.Error())))
}

// sendResponse writes one JSON-RPC response.
func (s *Server) sendResponse(w http.ResponseWriter, resp *Response) {
	data, err := marshalResponse(resp)
	if err != nil {
		s.logger.Error("failed to encode JSON-RPC response", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write JSON-RPC response", "error", err)
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp int64  `json:"timestamp"`
}

// InfoCapabilities flags the capability families served.
type InfoCapabilities struct {
	Tools     bool `json:"tools"`
	Resources bool `json:"resources"`
	Prompts   bool `json:"prompts"`
}

// InfoResponse is the body of GET /info.
type InfoResponse struct {
	Name            string           `json:"name"`
	Version         string           `json:"version"`
	ProtocolVersion string           `json:"protocolVersion"`
	Capabilities    InfoCapabilities `json:"capabilities"`
	Description     string           `json:"description"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{
		Status:    "healthy",
		Service:   s.serverName,
		Version:   s.serverVersion,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, InfoResponse{
		Name:            s.serverName,
		Version:         s.serverVersion,
		ProtocolVersion: s.protocolVersion,
		Capabilities:    InfoCapabilities{Tools: true, Resources: true, Prompts: true},
		Description:     s.description,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
