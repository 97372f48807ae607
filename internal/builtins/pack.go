// ABOUTME: Assembles the default builtin pack served by the gateway.

package builtins

import (
	"time"

	"github.com/2389/mcp-gateway/internal/registry"
)

// DefaultPackID identifies the default pack in registry listings.
const DefaultPackID = "builtin:default"

// DefaultPack returns the calculator and clock tools, the example resources,
// and the code_review prompt. A nil clock means time.Now.
func DefaultPack(now Clock) *registry.BuiltinPack {
	if now == nil {
		now = time.Now
	}
	return &registry.BuiltinPack{
		ID: DefaultPackID,
		Tools: []*registry.BuiltinTool{
			calculatorTool(),
			timeTool(now),
		},
		Resources: []*registry.BuiltinResource{
			dataResource(now),
			guideResource(),
		},
		Prompts: []*registry.BuiltinPrompt{
			codeReviewPrompt(),
		},
	}
}
