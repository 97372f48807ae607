// ABOUTME: get_current_time tool reporting the wall clock with a timezone label.
// ABOUTME: Unknown zone names are echoed verbatim and the time is shown in UTC.

package builtins

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/2389/mcp-gateway/internal/registry"
	"github.com/google/jsonschema-go/jsonschema"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

func timeTool(now Clock) *registry.BuiltinTool {
	h := &timeHandler{now: now}
	return &registry.BuiltinTool{
		Definition: registry.Tool{
			Name:        "get_current_time",
			Description: "Get the current date and time",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"timezone": {
						Type:        "string",
						Description: "Timezone (e.g., UTC, Asia/Shanghai)",
					},
				},
			},
		},
		Handler: h.CurrentTime,
	}
}

type timeHandler struct {
	now Clock
}

type timeInput struct {
	Timezone string `json:"timezone"`
}

func (h *timeHandler) CurrentTime(_ context.Context, input json.RawMessage) (string, error) {
	var in timeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("%w: %v", registry.ErrInvalidArguments, err)
	}

	label := strings.TrimSpace(in.Timezone)
	if label == "" {
		label = "UTC"
	}

	t := h.now().UTC()
	if loc, err := time.LoadLocation(label); err == nil {
		t = t.In(loc)
	}

	return fmt.Sprintf("Current time (%s): %s", label, t.Format(time.RFC1123)), nil
}
