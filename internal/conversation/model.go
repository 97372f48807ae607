// ABOUTME: Upstream language model abstraction and a development echo model
// ABOUTME: The gateway treats a model as an opaque producer of text chunks

package conversation

import (
	"context"
	"strings"
	"time"
)

// ModelMessage is one prompt turn sent to a model.
type ModelMessage struct {
	Role    string
	Content string
}

// ModelRequest carries the history window and the new user message, oldest first.
type ModelRequest struct {
	Messages []ModelMessage
}

// LastUserMessage returns the content of the most recent user turn.
func (r *ModelRequest) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Model produces replies. Complete returns the whole raw reply. Stream returns
// raw chunks on a channel that the model closes when the reply ends or ctx is
// cancelled. Raw output may contain <think> spans.
type Model interface {
	Complete(ctx context.Context, req *ModelRequest) (string, error)
	Stream(ctx context.Context, req *ModelRequest) (<-chan string, error)
}

// EchoModel is a stand-in model for development. It "thinks" briefly, then
// repeats the last user message back in small chunks.
type EchoModel struct {
	// ChunkDelay is slept between chunks so streaming is visible in a browser.
	ChunkDelay time.Duration
}

var _ Model = (*EchoModel)(nil)

func (m *EchoModel) chunks(req *ModelRequest) []string {
	parts := []string{"<think>", "The user wants ", "an echo.", "</think>", "You said: "}
	words := strings.SplitAfter(req.LastUserMessage(), " ")
	return append(parts, words...)
}

// Complete returns the full echo reply including its thinking span.
func (m *EchoModel) Complete(ctx context.Context, req *ModelRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.Join(m.chunks(req), ""), nil
}

// Stream sends the echo reply chunk by chunk.
func (m *EchoModel) Stream(ctx context.Context, req *ModelRequest) (<-chan string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chunks := m.chunks(req)
	out := make(chan string)
	go func() {
		defer close(out)
		for _, c := range chunks {
			if m.ChunkDelay > 0 {
				select {
				case <-time.After(m.ChunkDelay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
