// ABOUTME: Executes registered tools by name with a per-call timeout.
// ABOUTME: Unknown tools yield ErrToolNotFound instead of a crash.

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout is the default timeout for tool execution.
const DefaultTimeout = 30 * time.Second

// ExecutorConfig contains configuration options for the Executor.
type ExecutorConfig struct {
	Registry *Registry
	Logger   *slog.Logger
	Timeout  time.Duration
}

// Executor runs tool handlers. It holds no mutable state and is safe for concurrent use.
type Executor struct {
	registry *Registry
	logger   *slog.Logger
	timeout  time.Duration
}

// NewExecutor creates a new Executor with the given configuration.
func NewExecutor(cfg ExecutorConfig) *Executor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = &Registry{}
	}

	return &Executor{
		registry: reg,
		logger:   logger,
		timeout:  timeout,
	}
}

// Execute runs the named tool with the given JSON object arguments and returns its text result.
// Arguments reach the handler verbatim; callers validate their shape.
func (e *Executor) Execute(ctx context.Context, name string, args json.RawMessage) (string, error) {
	tool, ok := e.registry.GetTool(name)
	if !ok {
		e.logger.Debug("tool not found in registry", "tool_name", name)
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.logger.Debug("→ dispatching to builtin", "tool_name", name)

	result, err := tool.Handler(ctx, args)
	if err != nil {
		e.logger.Warn("builtin tool error",
			"tool_name", name,
			"error", err,
		)
		return "", err
	}

	e.logger.Debug("← builtin responded", "tool_name", name)
	return result, nil
}
