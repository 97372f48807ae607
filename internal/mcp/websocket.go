// ABOUTME: WebSocket transport: one JSON-RPC request per text frame, one reply frame each.
// ABOUTME: Each connection runs its own read and dispatch loops and fails in isolation.

package mcp

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// inboxSize bounds frames read ahead of dispatch on one connection.
const inboxSize = 16

// wsSession tracks a live WebSocket connection.
type wsSession struct {
	id        string
	remote    string
	cancel    context.CancelFunc
	createdAt time.Time
}

// sessionStore tracks live WebSocket sessions (in-memory).
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*wsSession
	closed   bool
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*wsSession)}
}

// add registers a session. It returns false once the store has been closed.
func (s *sessionStore) add(sess *wsSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[sess.id] = sess
	return true
}

func (s *sessionStore) delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *sessionStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// closeAll cancels every session and refuses new ones.
func (s *sessionStore) closeAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, sess := range s.sessions {
		sess.cancel()
	}
	return len(s.sessions)
}

// SessionCount returns the number of live WebSocket sessions.
func (s *Server) SessionCount() int {
	return s.sessions.count()
}

// Close ends all live WebSocket sessions. HTTP handlers keep working.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		n := s.sessions.closeAll()
		s.logger.Info("closed MCP WebSocket sessions", "count", n)
	})
}

// ServeWebSocket upgrades the connection and serves JSON-RPC frames until the
// peer disconnects, the request context ends, or the server is closed.
func (s *Server) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.CloseNow()

	// Oversized frames are answered per request in readFrame, not by closing.
	conn.SetReadLimit(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := &wsSession{
		id:        uuid.New().String(),
		remote:    r.RemoteAddr,
		cancel:    cancel,
		createdAt: time.Now(),
	}
	if !s.sessions.add(sess) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer s.sessions.delete(sess.id)

	logger := s.logger.With("session_id", sess.id)
	logger.Info("MCP WebSocket session opened", "remote", sess.remote)

	err = s.runSession(ctx, conn, sess.id)

	duration := time.Since(sess.createdAt)
	switch status := websocket.CloseStatus(err); {
	case ctx.Err() != nil:
		logger.Info("MCP WebSocket session ended by server", "duration", duration)
	case status == websocket.StatusNormalClosure, status == websocket.StatusGoingAway:
		logger.Info("MCP WebSocket session closed", "duration", duration, "status", status)
	default:
		logger.Warn("MCP WebSocket session ended with error", "duration", duration, "error", err)
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

// runSession reads frames into an inbox and dispatches them one at a time in
// arrival order. Only the dispatch loop writes to the connection.
func (s *Server) runSession(ctx context.Context, conn *websocket.Conn, sessionID string) error {
	g, gctx := errgroup.WithContext(ctx)
	inbox := make(chan inboundFrame, inboxSize)

	// A cancelled read context makes the library close with a policy
	// violation, so reads ignore ctx and this watcher unblocks them instead.
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		} else {
			conn.CloseNow()
		}
		return nil
	})

	g.Go(func() error {
		defer close(inbox)
		readCtx := context.WithoutCancel(ctx)
		for {
			frame, err := s.readFrame(readCtx, conn)
			if err != nil {
				return err
			}
			select {
			case inbox <- frame:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		for frame := range inbox {
			var resp *Response
			if frame.tooLarge {
				resp = errorResponse(nil, s.classify(errRequestTooLarge))
			} else {
				resp = s.HandleMessage(gctx, frame.data)
			}
			if err := s.writeResponse(gctx, conn, resp); err != nil {
				return err
			}
		}
		return nil
	})

	err := g.Wait()
	s.logger.Debug("MCP WebSocket loops stopped", "session_id", sessionID, "error", err)
	return err
}

// inboundFrame is one frame handed from the read loop to the dispatch loop.
type inboundFrame struct {
	data     []byte
	tooLarge bool
}

// readFrame reads the next message, keeping at most maxRequestBytes of it.
// The rest of an oversized message is discarded so the next frame starts clean.
func (s *Server) readFrame(ctx context.Context, conn *websocket.Conn) (inboundFrame, error) {
	_, r, err := conn.Reader(ctx)
	if err != nil {
		return inboundFrame{}, err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxRequestBytes+1))
	if err != nil {
		return inboundFrame{}, err
	}
	if int64(len(data)) <= s.maxRequestBytes {
		return inboundFrame{data: data}, nil
	}

	if _, err := io.Copy(io.Discard, r); err != nil {
		return inboundFrame{}, err
	}
	return inboundFrame{tooLarge: true}, nil
}

func (s *Server) writeResponse(ctx context.Context, conn *websocket.Conn, resp *Response) error {
	data, err := marshalResponse(resp)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
