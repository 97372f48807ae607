// ABOUTME: Built-in prompt templates.

package builtins

import (
	"fmt"

	"github.com/2389/mcp-gateway/internal/registry"
)

func codeReviewPrompt() *registry.BuiltinPrompt {
	return &registry.BuiltinPrompt{
		Definition: registry.Prompt{
			Name:        "code_review",
			Description: "Review code and provide feedback",
			Arguments: []registry.PromptArgument{
				{Name: "code", Description: "The code to review", Required: true},
				{Name: "language", Description: "Programming language", Required: false},
			},
		},
		Render: renderCodeReview,
	}
}

func renderCodeReview(args map[string]string) (string, error) {
	code, ok := args["code"]
	if !ok {
		return "", fmt.Errorf("%w: code", ErrMissingArgument)
	}
	language := args["language"]
	if language == "" {
		language = "unknown"
	}
	return fmt.Sprintf("Please review the following %s code:\n\n%s", language, code), nil
}
