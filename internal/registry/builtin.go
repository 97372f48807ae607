// ABOUTME: Built-in capability types: tools, resources, and prompts executed in-process.
// ABOUTME: A BuiltinPack bundles them under a pack ID for registration.

package registry

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool describes a callable tool. InputSchema is advisory and never enforced.
type Tool struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema,omitempty"`
}

// Resource describes a readable resource addressed by URI.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// PromptArgument describes one named input of a prompt template.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Prompt describes a prompt template and its ordered arguments.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// ToolHandler executes a built-in tool.
// It receives the tool arguments as a JSON object and returns the result text.
type ToolHandler func(ctx context.Context, args json.RawMessage) (string, error)

// ResourceReader produces the body of a resource. It must be a pure function of the URI
// apart from reading the clock.
type ResourceReader func(ctx context.Context, uri string) (string, error)

// PromptRenderer renders prompt text from named arguments.
type PromptRenderer func(args map[string]string) (string, error)

// BuiltinTool represents a tool that executes in the gateway process.
type BuiltinTool struct {
	Definition Tool
	Handler    ToolHandler
}

// BuiltinResource pairs a resource descriptor with its content reader.
type BuiltinResource struct {
	Definition Resource
	Read       ResourceReader
}

// BuiltinPrompt pairs a prompt descriptor with its template renderer.
type BuiltinPrompt struct {
	Definition Prompt
	Render     PromptRenderer
}

// BuiltinPack is a collection of built-in capabilities with a pack ID.
type BuiltinPack struct {
	ID        string
	Tools     []*BuiltinTool
	Resources []*BuiltinResource
	Prompts   []*BuiltinPrompt
}
