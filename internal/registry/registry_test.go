// ABOUTME: Tests for the capability registry: ordering, lookups, and collisions.
// ABOUTME: Uses small in-test packs instead of the production builtins.

package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(_ context.Context, args json.RawMessage) (string, error) {
	return string(args), nil
}

func testPack(id string, toolNames ...string) *BuiltinPack {
	pack := &BuiltinPack{ID: id}
	for _, name := range toolNames {
		pack.Tools = append(pack.Tools, &BuiltinTool{
			Definition: Tool{Name: name, Description: "test tool " + name},
			Handler:    echoHandler,
		})
	}
	return pack
}

func TestNew_PreservesInsertionOrder(t *testing.T) {
	pack := testPack("builtin:test", "zeta", "alpha", "mid")
	pack.Resources = []*BuiltinResource{
		{Definition: Resource{URI: "resource://b", Name: "B"}},
		{Definition: Resource{URI: "resource://a", Name: "A"}},
	}
	pack.Prompts = []*BuiltinPrompt{
		{Definition: Prompt{Name: "second"}},
		{Definition: Prompt{Name: "first"}},
	}

	reg, err := New(slog.Default(), pack, testPack("builtin:extra", "omega"))
	require.NoError(t, err)

	var names []string
	for _, tool := range reg.ListTools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid", "omega"}, names)

	resources := reg.ListResources()
	require.Len(t, resources, 2)
	assert.Equal(t, "resource://b", resources[0].URI)
	assert.Equal(t, "resource://a", resources[1].URI)

	prompts := reg.ListPrompts()
	require.Len(t, prompts, 2)
	assert.Equal(t, "second", prompts[0].Name)
	assert.Equal(t, "first", prompts[1].Name)
}

func TestNew_ListingsAreStable(t *testing.T) {
	reg, err := New(nil, testPack("builtin:test", "c", "b", "a"))
	require.NoError(t, err)

	first := reg.ListTools()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, reg.ListTools())
	}
}

func TestNew_ListingReturnsCopies(t *testing.T) {
	reg, err := New(nil, testPack("builtin:test", "calc"))
	require.NoError(t, err)

	tools := reg.ListTools()
	tools[0].Name = "mutated"

	assert.Equal(t, "calc", reg.ListTools()[0].Name)
}

func TestNew_Collisions(t *testing.T) {
	t.Run("tool across packs", func(t *testing.T) {
		_, err := New(nil, testPack("a", "dup"), testPack("b", "dup"))
		require.ErrorIs(t, err, ErrCollision)
		assert.Contains(t, err.Error(), "dup")
	})

	t.Run("tool within a pack", func(t *testing.T) {
		_, err := New(nil, testPack("a", "dup", "dup"))
		require.ErrorIs(t, err, ErrCollision)
	})

	t.Run("resource uri", func(t *testing.T) {
		p1 := &BuiltinPack{ID: "a", Resources: []*BuiltinResource{{Definition: Resource{URI: "resource://x"}}}}
		p2 := &BuiltinPack{ID: "b", Resources: []*BuiltinResource{{Definition: Resource{URI: "resource://x"}}}}
		_, err := New(nil, p1, p2)
		require.ErrorIs(t, err, ErrCollision)
	})

	t.Run("same name in different kinds is allowed", func(t *testing.T) {
		pack := testPack("a", "shared")
		pack.Prompts = []*BuiltinPrompt{{Definition: Prompt{Name: "shared"}}}
		_, err := New(nil, pack)
		require.NoError(t, err)
	})
}

func TestLookups_AbsentIsNotAnError(t *testing.T) {
	reg, err := New(nil, testPack("builtin:test", "calc"))
	require.NoError(t, err)

	tool, ok := reg.GetTool("calc")
	require.True(t, ok)
	assert.Equal(t, "calc", tool.Definition.Name)

	_, ok = reg.GetTool("missing")
	assert.False(t, ok)

	_, ok = reg.GetResource("resource://missing")
	assert.False(t, ok)

	_, ok = reg.GetPrompt("missing")
	assert.False(t, ok)
}

func TestZeroRegistry(t *testing.T) {
	var reg Registry
	assert.Empty(t, reg.ListTools())
	assert.Empty(t, reg.ListResources())
	assert.Empty(t, reg.ListPrompts())
	_, ok := reg.GetTool("anything")
	assert.False(t, ok)
}

func TestListPacks(t *testing.T) {
	pack := testPack("builtin:a", "one", "two")
	pack.Prompts = []*BuiltinPrompt{{Definition: Prompt{Name: "p"}}}

	reg, err := New(nil, pack, testPack("builtin:b", "three"))
	require.NoError(t, err)

	packs := reg.ListPacks()
	require.Len(t, packs, 2)
	assert.Equal(t, "builtin:a", packs[0].ID)
	assert.Equal(t, []string{"one", "two"}, packs[0].ToolNames)
	assert.Equal(t, []string{"p"}, packs[0].PromptNames)
	assert.Equal(t, "builtin:b", packs[1].ID)
}
