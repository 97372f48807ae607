// ABOUTME: Tests for the chat Service
// ABOUTME: Verifies history windows, think filtering, persistence, and stream cancellation

package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mcp-gateway/internal/store"
	"github.com/2389/mcp-gateway/internal/think"
)

// fakeModel replays fixed chunks and records the last request.
type fakeModel struct {
	mu      sync.Mutex
	chunks  []string
	err     error
	block   bool // Stream waits for ctx cancellation after the chunks
	lastReq *ModelRequest
}

func (m *fakeModel) record(req *ModelRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReq = req
}

func (m *fakeModel) request() *ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReq
}

func (m *fakeModel) Complete(ctx context.Context, req *ModelRequest) (string, error) {
	m.record(req)
	if m.err != nil {
		return "", m.err
	}
	var out string
	for _, c := range m.chunks {
		out += c
	}
	return out, nil
}

func (m *fakeModel) Stream(ctx context.Context, req *ModelRequest) (<-chan string, error) {
	m.record(req)
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, c := range m.chunks {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
		if m.block {
			<-ctx.Done()
		}
	}()
	return ch, nil
}

func createTestStore(t *testing.T) *store.SQLiteStore {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(n int) *int { return &n }

func collect(t *testing.T, events <-chan think.Event) []think.Event {
	t.Helper()
	var got []think.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatal("timed out waiting for stream to close")
		}
	}
}

func TestService_HistorySize(t *testing.T) {
	svc := New(Config{Store: store.NewMockStore(), Model: &fakeModel{}})

	assert.Equal(t, 10, svc.HistorySize(nil))
	assert.Equal(t, 10, svc.HistorySize(intPtr(0)))
	assert.Equal(t, 10, svc.HistorySize(intPtr(-3)))
	assert.Equal(t, 1, svc.HistorySize(intPtr(1)))
	assert.Equal(t, 25, svc.HistorySize(intPtr(25)))
	assert.Equal(t, 50, svc.HistorySize(intPtr(50)))
	assert.Equal(t, 50, svc.HistorySize(intPtr(500)))

	custom := New(Config{Store: store.NewMockStore(), Model: &fakeModel{}, DefaultHistory: 4, MinHistory: 2, MaxHistory: 6})
	assert.Equal(t, 4, custom.HistorySize(intPtr(1)))
	assert.Equal(t, 6, custom.HistorySize(intPtr(7)))
}

func TestService_Chat_StripsThinkingAndRemembers(t *testing.T) {
	testStore := createTestStore(t)
	model := &fakeModel{chunks: []string{"<think>hmm</think>\n\n", "The answer is 4."}}
	svc := New(Config{Store: testStore, Model: model})

	reply, err := svc.Chat(context.Background(), ChatRequest{ConversationID: "user-1", Message: "2+2?"})
	require.NoError(t, err)
	assert.Equal(t, "The answer is 4.", reply)

	msgs, err := testStore.Recent(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, store.RoleUser, msgs[0].Role)
	assert.Equal(t, "2+2?", msgs[0].Content)
	assert.Equal(t, store.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "The answer is 4.", msgs[1].Content)
}

func TestService_Chat_SendsHistoryWindow(t *testing.T) {
	memory := store.NewMockStore()
	ctx := context.Background()
	for _, c := range []string{"old-1", "old-2", "old-3"} {
		_, err := memory.Append(ctx, "conv", store.RoleUser, c)
		require.NoError(t, err)
	}

	model := &fakeModel{chunks: []string{"ok"}}
	svc := New(Config{Store: memory, Model: model})

	_, err := svc.Chat(ctx, ChatRequest{ConversationID: "conv", Message: "new", HistorySize: intPtr(2)})
	require.NoError(t, err)

	req := model.request()
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "old-2", req.Messages[0].Content)
	assert.Equal(t, "old-3", req.Messages[1].Content)
	assert.Equal(t, "new", req.Messages[2].Content)
	assert.Equal(t, "new", req.LastUserMessage())
}

func TestService_Chat_DefaultConversation(t *testing.T) {
	memory := store.NewMockStore()
	svc := New(Config{Store: memory, Model: &fakeModel{chunks: []string{"hi"}}})

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "hello"})
	require.NoError(t, err)

	msgs, err := memory.Recent(context.Background(), DefaultConversationID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestService_Chat_Errors(t *testing.T) {
	t.Run("empty message", func(t *testing.T) {
		svc := New(Config{Store: store.NewMockStore(), Model: &fakeModel{}})
		_, err := svc.Chat(context.Background(), ChatRequest{Message: "   "})
		assert.ErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("model failure keeps user turn only", func(t *testing.T) {
		memory := store.NewMockStore()
		boom := errors.New("model offline")
		svc := New(Config{Store: memory, Model: &fakeModel{err: boom}})

		_, err := svc.Chat(context.Background(), ChatRequest{ConversationID: "c", Message: "hi"})
		require.ErrorIs(t, err, boom)

		msgs, err := memory.Recent(context.Background(), "c", 0)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, store.RoleUser, msgs[0].Role)
	})
}

func TestService_Chat_BlockedWords(t *testing.T) {
	memory := store.NewMockStore()
	model := &fakeModel{chunks: []string{"should not run"}}
	svc := New(Config{Store: memory, Model: model, BlockedWords: []string{"forbidden"}})

	reply, err := svc.Chat(context.Background(), ChatRequest{ConversationID: "c", Message: "say the forbidden word"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBlockedResponse, reply)
	assert.Nil(t, model.request())

	msgs, err := memory.Recent(context.Background(), "c", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestService_ChatStream_FiltersAndPersists(t *testing.T) {
	testStore := createTestStore(t)
	model := &fakeModel{chunks: []string{"hello ", "<think>secret ", "stuff</think> world"}}
	svc := New(Config{Store: testStore, Model: model})

	events, err := svc.ChatStream(context.Background(), ChatRequest{ConversationID: "s", Message: "greet"})
	require.NoError(t, err)

	got := collect(t, events)
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.True(t, last.Final)
	assert.Equal(t, "hello  world", last.Content)
	for _, ev := range got {
		assert.NotContains(t, ev.Content, "secret")
	}

	msgs, err := testStore.Recent(context.Background(), "s", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello  world", msgs[1].Content)
}

func TestService_ChatStream_UnterminatedThinkingKept(t *testing.T) {
	svc := New(Config{Store: store.NewMockStore(), Model: &fakeModel{chunks: []string{"a", "<think>b"}}})

	events, err := svc.ChatStream(context.Background(), ChatRequest{Message: "x"})
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 1)
	assert.Equal(t, "a<think>b", got[0].Content)
}

func TestService_ChatStream_CancelStoresNoReply(t *testing.T) {
	memory := store.NewMockStore()
	model := &fakeModel{chunks: []string{"<think>x</think>partial"}, block: true}
	svc := New(Config{Store: memory, Model: model})

	ctx, cancel := context.WithCancel(context.Background())
	events, err := svc.ChatStream(ctx, ChatRequest{ConversationID: "c", Message: "go"})
	require.NoError(t, err)

	first := <-events
	assert.Equal(t, "partial", first.Content)
	assert.False(t, first.Final)

	cancel()
	for ev := range events {
		assert.False(t, ev.Final, "no final event after cancel")
	}

	msgs, err := memory.Recent(context.Background(), "c", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, store.RoleUser, msgs[0].Role)
}

func TestService_ClearMemory(t *testing.T) {
	memory := store.NewMockStore()
	svc := New(Config{Store: memory, Model: &fakeModel{chunks: []string{"ok"}}})

	_, err := svc.Chat(context.Background(), ChatRequest{ConversationID: "c", Message: "hi"})
	require.NoError(t, err)

	n, err := svc.ClearMemory(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = svc.ClearMemory(context.Background(), " ")
	assert.ErrorIs(t, err, store.ErrEmptyConversationID)
}

func TestEchoModel(t *testing.T) {
	model := &EchoModel{}
	req := &ModelRequest{Messages: []ModelMessage{{Role: "user", Content: "ping pong"}}}

	raw, err := model.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "You said: ping pong", think.Strip(raw))

	chunks, err := model.Stream(context.Background(), req)
	require.NoError(t, err)

	var last think.Event
	for ev := range think.Filter(context.Background(), chunks) {
		last = ev
	}
	assert.True(t, last.Final)
	assert.Equal(t, "You said: ping pong", last.Content)
}
