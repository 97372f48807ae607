// ABOUTME: Immutable registry of tools, resources, and prompts exposed over MCP.
// ABOUTME: Built once from builtin packs; lookups and listings are lock-free.

package registry

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrToolNotFound indicates the requested tool is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ErrResourceNotFound indicates the requested resource URI is not registered.
var ErrResourceNotFound = errors.New("resource not found")

// ErrPromptNotFound indicates the requested prompt is not registered.
var ErrPromptNotFound = errors.New("prompt not found")

// ErrInvalidArguments indicates a capability was invoked with missing or malformed arguments.
var ErrInvalidArguments = errors.New("invalid arguments")

// ErrCollision indicates two packs registered the same tool name, resource URI, or prompt name.
var ErrCollision = errors.New("capability name collision")

// entry records which pack contributed a capability.
type entry[T any] struct {
	value  T
	packID string
}

// Registry is the read-only capability catalog. The zero value is an empty registry.
type Registry struct {
	tools     []entry[*BuiltinTool]
	resources []entry[*BuiltinResource]
	prompts   []entry[*BuiltinPrompt]

	toolIndex     map[string]int
	resourceIndex map[string]int
	promptIndex   map[string]int
}

// New builds a Registry from the given packs, preserving pack and declaration order.
// Returns ErrCollision if any name or URI is registered twice.
func New(logger *slog.Logger, packs ...*BuiltinPack) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		toolIndex:     make(map[string]int),
		resourceIndex: make(map[string]int),
		promptIndex:   make(map[string]int),
	}

	for _, pack := range packs {
		if pack == nil {
			continue
		}
		if err := r.addPack(pack); err != nil {
			return nil, err
		}
		logger.Info("=== BUILTIN PACK REGISTERED ===",
			"pack_id", pack.ID,
			"tool_count", len(pack.Tools),
			"resource_count", len(pack.Resources),
			"prompt_count", len(pack.Prompts),
		)
	}

	return r, nil
}

// addPack validates a whole pack before registering any of it.
func (r *Registry) addPack(pack *BuiltinPack) error {
	seen := make(map[string]struct{})
	check := func(kind, key string, index map[string]int) error {
		if _, exists := index[key]; exists {
			return fmt.Errorf("%w: %s '%s' already registered", ErrCollision, kind, key)
		}
		if _, dup := seen[kind+"\x00"+key]; dup {
			return fmt.Errorf("%w: %s '%s' declared twice in pack '%s'", ErrCollision, kind, key, pack.ID)
		}
		seen[kind+"\x00"+key] = struct{}{}
		return nil
	}

	for _, t := range pack.Tools {
		if err := check("tool", t.Definition.Name, r.toolIndex); err != nil {
			return err
		}
	}
	for _, res := range pack.Resources {
		if err := check("resource", res.Definition.URI, r.resourceIndex); err != nil {
			return err
		}
	}
	for _, p := range pack.Prompts {
		if err := check("prompt", p.Definition.Name, r.promptIndex); err != nil {
			return err
		}
	}

	for _, t := range pack.Tools {
		r.toolIndex[t.Definition.Name] = len(r.tools)
		r.tools = append(r.tools, entry[*BuiltinTool]{value: t, packID: pack.ID})
	}
	for _, res := range pack.Resources {
		r.resourceIndex[res.Definition.URI] = len(r.resources)
		r.resources = append(r.resources, entry[*BuiltinResource]{value: res, packID: pack.ID})
	}
	for _, p := range pack.Prompts {
		r.promptIndex[p.Definition.Name] = len(r.prompts)
		r.prompts = append(r.prompts, entry[*BuiltinPrompt]{value: p, packID: pack.ID})
	}
	return nil
}

// ListTools returns all tool descriptors in registration order.
func (r *Registry) ListTools() []Tool {
	tools := make([]Tool, len(r.tools))
	for i, e := range r.tools {
		tools[i] = e.value.Definition
	}
	return tools
}

// ListResources returns all resource descriptors in registration order.
func (r *Registry) ListResources() []Resource {
	resources := make([]Resource, len(r.resources))
	for i, e := range r.resources {
		resources[i] = e.value.Definition
	}
	return resources
}

// ListPrompts returns all prompt descriptors in registration order.
func (r *Registry) ListPrompts() []Prompt {
	prompts := make([]Prompt, len(r.prompts))
	for i, e := range r.prompts {
		prompts[i] = e.value.Definition
	}
	return prompts
}

// GetTool returns the tool registered under name.
func (r *Registry) GetTool(name string) (*BuiltinTool, bool) {
	i, ok := r.toolIndex[name]
	if !ok {
		return nil, false
	}
	return r.tools[i].value, true
}

// GetResource returns the resource registered under uri.
func (r *Registry) GetResource(uri string) (*BuiltinResource, bool) {
	i, ok := r.resourceIndex[uri]
	if !ok {
		return nil, false
	}
	return r.resources[i].value, true
}

// GetPrompt returns the prompt registered under name.
func (r *Registry) GetPrompt(name string) (*BuiltinPrompt, bool) {
	i, ok := r.promptIndex[name]
	if !ok {
		return nil, false
	}
	return r.prompts[i].value, true
}

// PackInfo contains public information about a registered pack.
type PackInfo struct {
	ID           string
	ToolNames    []string
	ResourceURIs []string
	PromptNames  []string
}

// ListPacks groups registered capabilities by their owning pack, in registration order.
func (r *Registry) ListPacks() []PackInfo {
	var order []string
	byID := make(map[string]*PackInfo)
	get := func(id string) *PackInfo {
		if info, ok := byID[id]; ok {
			return info
		}
		byID[id] = &PackInfo{ID: id}
		order = append(order, id)
		return byID[id]
	}

	for _, e := range r.tools {
		info := get(e.packID)
		info.ToolNames = append(info.ToolNames, e.value.Definition.Name)
	}
	for _, e := range r.resources {
		info := get(e.packID)
		info.ResourceURIs = append(info.ResourceURIs, e.value.Definition.URI)
	}
	for _, e := range r.prompts {
		info := get(e.packID)
		info.PromptNames = append(info.PromptNames, e.value.Definition.Name)
	}

	result := make([]PackInfo, 0, len(order))
	for _, id := range order {
		result = append(result, *byID[id])
	}
	return result
}
