// ABOUTME: Tests for the thinking-span filter: fold semantics, channel driver, Strip.

package think

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fold(chunks ...string) []Event {
	var state State
	var events []Event
	for _, c := range chunks {
		var ev Event
		var ok bool
		state, ev, ok = Step(state, c)
		if ok {
			events = append(events, ev)
		}
	}
	return append(events, Finish(state))
}

func TestStep_SpanSplitAcrossChunks(t *testing.T) {
	events := fold("hello ", "<think>secret ", "stuff</think> world")

	require.Len(t, events, 2)
	assert.Equal(t, "hello  world", events[0].Content)
	assert.False(t, events[0].Final)
	assert.Equal(t, "hello  world", events[1].Content)
	assert.True(t, events[1].Final)
}

func TestStep_MarkerSplitMidTag(t *testing.T) {
	events := fold("<thi", "nk>x</th", "ink>answer")

	last := events[len(events)-1]
	assert.Equal(t, "answer", last.Content)
	assert.NotContains(t, last.Content, "think")
}

func TestStep_UnterminatedSpanKeptAtFinish(t *testing.T) {
	events := fold("a", "<think>b")

	require.Len(t, events, 1)
	assert.Equal(t, Event{Content: "a<think>b", Final: true}, events[0])
}

func TestStep_WithholdsUntilClose(t *testing.T) {
	state, _, ok := Step(State{}, "plain text")
	assert.False(t, ok)
	assert.Equal(t, "plain text", state.Buffered())

	events := fold("plain ", "text")
	require.Len(t, events, 1)
	assert.Equal(t, "plain text", events[0].Content)
}

func TestStep_DoesNotMutateInput(t *testing.T) {
	start, _, _ := Step(State{}, "abc")
	_, _, _ = Step(start, "def")
	assert.Equal(t, "abc", start.Buffered())
}

func TestStep_ContentAfterSpanIsCumulative(t *testing.T) {
	events := fold("<think>x</think>one", " two")

	require.Len(t, events, 2)
	assert.Equal(t, "one", events[0].Content)
	assert.Equal(t, "one two", events[1].Content)
}

func TestStrip(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<think>reasoning</think>\n\nThe answer is 4.", "The answer is 4."},
		{"  no markup  ", "no markup"},
		{"before <think>a\nb</think> after", "before after"},
		{"<think>unterminated", "<think>unterminated"},
		{"", ""},
	}
	for _, tt := range tests {
		got := Strip(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		assert.Equal(t, got, Strip(got), "Strip not idempotent for %q", tt.in)
	}
}

func feed(chunks ...string) <-chan string {
	ch := make(chan string, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func TestFilter_EmitsFoldEvents(t *testing.T) {
	var got []Event
	for ev := range Filter(context.Background(), feed("hello ", "<think>secret ", "stuff</think> world")) {
		got = append(got, ev)
	}

	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.True(t, last.Final)
	assert.Equal(t, "hello  world", last.Content)
}

func TestFilter_UnterminatedAtClose(t *testing.T) {
	var got []Event
	for ev := range Filter(context.Background(), feed("a", "<think>b")) {
		got = append(got, ev)
	}

	require.Len(t, got, 1)
	assert.Equal(t, "a<think>b", got[0].Content)
}

func TestFilter_CancelStopsWithoutEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	chunks := make(chan string)
	events := Filter(ctx, chunks)

	chunks <- "<think>x</think>visible"
	first := <-events
	assert.Equal(t, "visible", first.Content)

	cancel()

	select {
	case ev, open := <-events:
		assert.False(t, open, "unexpected event after cancel: %+v", ev)
	case <-time.After(time.Second):
		t.Fatal("filter goroutine did not exit after cancel")
	}
}
