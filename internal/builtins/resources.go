// ABOUTME: Built-in resources: a JSON sample document and an HTML usage guide.
// ABOUTME: The guide is embedded markdown rendered once with goldmark.

package builtins

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/2389/mcp-gateway/internal/registry"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	// DataResourceURI addresses the sample JSON document.
	DataResourceURI = "resource://example/data"
	// GuideResourceURI addresses the rendered usage guide.
	GuideResourceURI = "resource://example/guide"
)

//go:embed guide.md
var guideMarkdown []byte

var (
	guideOnce sync.Once
	guideHTML string
	guideErr  error
)

func dataResource(now Clock) *registry.BuiltinResource {
	return &registry.BuiltinResource{
		Definition: registry.Resource{
			URI:         DataResourceURI,
			Name:        "Example Data",
			Description: "An example resource containing sample data",
			MimeType:    "application/json",
		},
		Read: func(_ context.Context, _ string) (string, error) {
			body, err := json.Marshal(struct {
				Message   string `json:"message"`
				Timestamp string `json:"timestamp"`
			}{
				Message:   "This is example data",
				Timestamp: now().UTC().Format(time.RFC3339),
			})
			if err != nil {
				return "", fmt.Errorf("marshal example data: %w", err)
			}
			return string(body), nil
		},
	}
}

func guideResource() *registry.BuiltinResource {
	return &registry.BuiltinResource{
		Definition: registry.Resource{
			URI:         GuideResourceURI,
			Name:        "Gateway Guide",
			Description: "How to talk to this gateway over HTTP and WebSocket",
			MimeType:    "text/html",
		},
		Read: func(_ context.Context, _ string) (string, error) {
			guideOnce.Do(func() {
				guideHTML, guideErr = renderMarkdown(guideMarkdown)
			})
			return guideHTML, guideErr
		},
	}
}

// renderMarkdown converts markdown to HTML with GitHub-flavored extensions.
func renderMarkdown(src []byte) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render guide: %w", err)
	}
	return buf.String(), nil
}
