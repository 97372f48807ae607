// ABOUTME: Removes <think>...</think> reasoning spans from model output.
// ABOUTME: Streaming is an explicit fold over chunks; Strip handles complete text.

package think

import (
	"context"
	"regexp"
	"strings"
)

// Markers delimiting a thinking span.
const (
	OpenMarker  = "<think>"
	CloseMarker = "</think>"
)

var (
	// spanPattern pairs the first opening marker with the first closing marker.
	spanPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)
	// stripPattern also eats whitespace after the span for complete responses.
	stripPattern = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)
)

// State is the accumulation buffer of one stream. The zero value is an empty stream.
// It is a value type: each Step returns the next state and never mutates its input.
type State struct {
	buf string
}

// Buffered returns the text accumulated so far.
func (s State) Buffered() string { return s.buf }

// Event carries the full visible content so far.
type Event struct {
	Content string
	// Final marks the event emitted when the stream ends.
	Final bool
}

// Step appends chunk to the buffer. When the buffer holds a closing marker the
// span is removed, the buffer becomes the remainder, and an event is emitted.
// Otherwise the chunk is withheld and ok is false.
func Step(s State, chunk string) (next State, ev Event, ok bool) {
	buf := s.buf + chunk
	if !strings.Contains(buf, CloseMarker) {
		return State{buf: buf}, Event{}, false
	}
	buf = spanPattern.ReplaceAllString(buf, "")
	return State{buf: buf}, Event{Content: buf}, true
}

// Finish ends the stream and emits whatever is buffered. An unterminated span is
// kept verbatim rather than dropped.
func Finish(s State) Event {
	return Event{Content: s.buf, Final: true}
}

// Strip removes every thinking span from complete text and trims surrounding
// whitespace. Strip(Strip(x)) == Strip(x).
func Strip(text string) string {
	return strings.TrimSpace(stripPattern.ReplaceAllString(text, ""))
}

// Filter drives Step over chunks and sends events on the returned channel. The
// channel closes after the Final event, or without one when ctx is cancelled.
// No event is sent once ctx is done.
func Filter(ctx context.Context, chunks <-chan string) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)

		var state State
		send := func(ev Event) bool {
			if ctx.Err() != nil {
				return false
			}
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case chunk, open := <-chunks:
				if !open {
					send(Finish(state))
					return
				}
				var ev Event
				var ok bool
				state, ev, ok = Step(state, chunk)
				if ok && !send(ev) {
					return
				}
			}
		}
	}()
	return out
}
