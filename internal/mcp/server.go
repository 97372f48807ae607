// ABOUTME: MCP dispatcher mapping JSON-RPC methods onto the capability registry.
// ABOUTME: Transport-independent: every request yields exactly one Response, never a panic.

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/2389/mcp-gateway/internal/registry"
)

// Defaults applied by NewServer when Config leaves a field empty.
const (
	DefaultServerName       = "mcp-gateway"
	DefaultServerVersion    = "1.0.0"
	DefaultProtocolVersion  = "2024-11-05"
	DefaultBatchConcurrency = 8
	// MaxRequestBodySize is the default limit for request bodies and WebSocket frames (1MB).
	MaxRequestBodySize = 1 << 20
)

// methodHandler runs one MCP method body.
type methodHandler func(ctx context.Context, params json.RawMessage) (any, error)

// Config holds configuration for the MCP server.
type Config struct {
	Registry *registry.Registry
	Executor *registry.Executor // defaults to an executor over Registry
	Logger   *slog.Logger

	ServerName      string
	ServerVersion   string
	ProtocolVersion string
	Description     string

	// LegacyErrorCodes folds every failure except parse errors into -32603
	// with an "Internal error: " message prefix.
	LegacyErrorCodes bool

	BatchConcurrency int
	MaxRequestBytes  int64

	// WebSocket settings
	OriginPatterns []string      // defaults to any origin
	WriteTimeout   time.Duration // per reply frame; defaults to 10s
}

// Server dispatches MCP requests. It holds no per-request state and is safe
// for concurrent use; live WebSocket sessions are tracked so Close can end them.
type Server struct {
	registry *registry.Registry
	executor *registry.Executor
	logger   *slog.Logger
	methods  map[string]methodHandler

	serverName       string
	serverVersion    string
	protocolVersion  string
	description      string
	legacyErrorCodes bool
	batchConcurrency int
	maxRequestBytes  int64
	originPatterns   []string
	writeTimeout     time.Duration
	startedAt        time.Time

	sessions  *sessionStore
	closeOnce sync.Once
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mcp")

	executor := cfg.Executor
	if executor == nil {
		executor = registry.NewExecutor(registry.ExecutorConfig{Registry: cfg.Registry, Logger: logger})
	}

	s := &Server{
		registry:         cfg.Registry,
		executor:         executor,
		logger:           logger,
		serverName:       orDefault(cfg.ServerName, DefaultServerName),
		serverVersion:    orDefault(cfg.ServerVersion, DefaultServerVersion),
		protocolVersion:  orDefault(cfg.ProtocolVersion, DefaultProtocolVersion),
		description:      orDefault(cfg.Description, "Model Context Protocol gateway"),
		legacyErrorCodes: cfg.LegacyErrorCodes,
		batchConcurrency: cfg.BatchConcurrency,
		maxRequestBytes:  cfg.MaxRequestBytes,
		originPatterns:   cfg.OriginPatterns,
		writeTimeout:     cfg.WriteTimeout,
		startedAt:        time.Now(),
		sessions:         newSessionStore(),
	}
	if s.batchConcurrency <= 0 {
		s.batchConcurrency = DefaultBatchConcurrency
	}
	if s.maxRequestBytes <= 0 {
		s.maxRequestBytes = MaxRequestBodySize
	}
	if len(s.originPatterns) == 0 {
		s.originPatterns = []string{"*"}
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = 10 * time.Second
	}

	s.methods = map[string]methodHandler{
		MethodInitialize:    s.handleInitialize,
		MethodToolsList:     s.handleToolsList,
		MethodToolsCall:     s.handleToolsCall,
		MethodResourcesList: s.handleResourcesList,
		MethodResourcesRead: s.handleResourcesRead,
		MethodPromptsList:   s.handlePromptsList,
		MethodPromptsGet:    s.handlePromptsGet,
	}

	return s, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// HandleMessage decodes one raw request and dispatches it. A payload that
// cannot be decoded yields a parse error with a null id.
func (s *Server) HandleMessage(ctx context.Context, raw []byte) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		s.logger.Debug("undecodable request", "error", err)
		return errorResponse(nil, NewError(JSONRPCParseError, "Parse error"))
	}
	return s.Handle(ctx, &req)
}

// Handle dispatches a decoded request and returns its response. The response
// id is the request id verbatim, or null when the request had none.
func (s *Server) Handle(ctx context.Context, req *Request) (resp *Response) {
	id := req.ID
	if !validID(id) {
		return s.errorFor(nil, req.Method, fmt.Errorf("%w: id must be a string, number, or null", ErrInvalidRequest))
	}
	if req.JSONRPC != "" && req.JSONRPC != JSONRPCVersion {
		return s.errorFor(id, req.Method, fmt.Errorf("%w: jsonrpc must be %q", ErrInvalidRequest, JSONRPCVersion))
	}
	if req.Method == "" {
		return s.errorFor(id, req.Method, fmt.Errorf("%w: method is required", ErrInvalidRequest))
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		return s.errorFor(id, req.Method, fmt.Errorf("%w: %s", ErrUnknownMethod, req.Method))
	}

	s.logger.Debug("MCP request", "method", req.Method, "id", string(id))

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in MCP method",
				"method", req.Method,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			resp = s.errorFor(id, req.Method, fmt.Errorf("panic: %v", r))
		}
	}()

	result, err := handler(ctx, req.Params)
	if err != nil {
		return s.errorFor(id, req.Method, err)
	}
	return resultResponse(id, result)
}

// HandleBatch dispatches each element independently and returns responses in
// input order. Elements run concurrently up to the configured limit; one
// element's failure never affects its siblings.
func (s *Server) HandleBatch(ctx context.Context, batch []json.RawMessage) []*Response {
	responses := make([]*Response, len(batch))

	var g errgroup.Group
	g.SetLimit(s.batchConcurrency)
	for i, raw := range batch {
		g.Go(func() error {
			responses[i] = s.HandleMessage(ctx, raw)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Debug("MCP batch handled", "size", len(batch))
	return responses
}

// errorFor converts any failure into an error response.
func (s *Server) errorFor(id json.RawMessage, method string, err error) *Response {
	rpcErr := s.classify(err)
	s.logger.Warn("MCP request failed",
		"method", method,
		"id", string(id),
		"code", rpcErr.Code,
		"error", err,
	)
	return errorResponse(id, rpcErr)
}

// classify maps an error onto a JSON-RPC error code.
func (s *Server) classify(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		rpcErr = &Error{Code: rpcErr.Code, Message: rpcErr.Message, Data: rpcErr.Data}
	} else {
		rpcErr = &Error{Code: codeFor(err), Message: err.Error()}
	}

	if s.legacyErrorCodes && rpcErr.Code != JSONRPCParseError {
		rpcErr.Code = JSONRPCInternalError
		rpcErr.Message = "Internal error: " + upperFirst(rpcErr.Message)
	}
	return rpcErr
}

// upperFirst capitalizes the first letter, giving legacy clients the
// "Tool not found: x" form they match on.
func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func codeFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return JSONRPCInvalidRequest
	case errors.Is(err, ErrUnknownMethod):
		return JSONRPCMethodNotFound
	case errors.Is(err, ErrInvalidParams), errors.Is(err, registry.ErrInvalidArguments):
		return JSONRPCInvalidParams
	case errors.Is(err, registry.ErrToolNotFound),
		errors.Is(err, registry.ErrResourceNotFound),
		errors.Is(err, registry.ErrPromptNotFound):
		return MCPNotFound
	default:
		return JSONRPCInternalError
	}
}

// decodeParams unmarshals params into dst. Absent or null params are an error.
func decodeParams(params json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("%w: params are required", ErrInvalidParams)
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func (s *Server) handleInitialize(_ context.Context, _ json.RawMessage) (any, error) {
	return InitializeResult{
		ProtocolVersion: s.protocolVersion,
		Capabilities: ServerCapabilities{
			Tools:     ListChangedCapability{ListChanged: false},
			Resources: ResourcesCapability{Subscribe: false, ListChanged: false},
			Prompts:   ListChangedCapability{ListChanged: false},
		},
		ServerInfo: ServerInfo{Name: s.serverName, Version: s.serverVersion},
	}, nil
}

func (s *Server) handleToolsList(_ context.Context, _ json.RawMessage) (any, error) {
	return ListToolsResult{Tools: s.registry.ListTools()}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, error) {
	var p CallToolParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: tool name is required", ErrInvalidParams)
	}
	args := bytes.TrimSpace(p.Arguments)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		return nil, fmt.Errorf("%w: arguments are required", ErrInvalidParams)
	}
	if args[0] != '{' {
		return nil, fmt.Errorf("%w: arguments must be an object", ErrInvalidParams)
	}

	text, err := s.executor.Execute(ctx, p.Name, args)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("tools/call complete", "tool_name", p.Name)
	return CallToolResult{Content: []Content{{Type: "text", Text: text}}}, nil
}

func (s *Server) handleResourcesList(_ context.Context, _ json.RawMessage) (any, error) {
	return ListResourcesResult{Resources: s.registry.ListResources()}, nil
}

func (s *Server) handleResourcesRead(ctx context.Context, params json.RawMessage) (any, error) {
	var p ReadResourceParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.URI == "" {
		return nil, fmt.Errorf("%w: uri is required", ErrInvalidParams)
	}

	res, ok := s.registry.GetResource(p.URI)
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrResourceNotFound, p.URI)
	}

	text := "{}"
	if res.Read != nil {
		body, err := res.Read(ctx, p.URI)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p.URI, err)
		}
		text = body
	}

	return ReadResourceResult{Contents: []ResourceContents{{
		URI:      res.Definition.URI,
		MimeType: res.Definition.MimeType,
		Text:     text,
	}}}, nil
}

func (s *Server) handlePromptsList(_ context.Context, _ json.RawMessage) (any, error) {
	return ListPromptsResult{Prompts: s.registry.ListPrompts()}, nil
}

func (s *Server) handlePromptsGet(_ context.Context, params json.RawMessage) (any, error) {
	var p GetPromptParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: prompt name is required", ErrInvalidParams)
	}

	prompt, ok := s.registry.GetPrompt(p.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrPromptNotFound, p.Name)
	}

	args := make(map[string]string, len(p.Arguments))
	for k, v := range p.Arguments {
		switch val := v.(type) {
		case string:
			args[k] = val
		case nil:
		default:
			args[k] = fmt.Sprint(val)
		}
	}

	text, err := prompt.Render(args)
	if err != nil {
		return nil, err
	}

	return GetPromptResult{
		Description: prompt.Definition.Description,
		Messages: []PromptMessage{{
			Role:    "user",
			Content: Content{Type: "text", Text: text},
		}},
	}, nil
}
