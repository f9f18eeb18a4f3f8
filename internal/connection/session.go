package connection

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/textsync/internal/protocol"
)

// Session is one real-time WebSocket connection.
type Session struct {
	id     string
	cfg    SessionConfig
	logger *slog.Logger
	conn   *websocket.Conn

	queue *Queue[protocol.Envelope]
	state atomic.Int32

	done      chan struct{}
	closeOnce sync.Once
}

// NewSession wraps an upgraded connection. The session starts Connecting.
func NewSession(conn *websocket.Conn, cfg SessionConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()
	s := &Session{
		id:     id,
		cfg:    cfg,
		logger: logger.With("session", id),
		conn:   conn,
		queue:  NewQueue[protocol.Envelope](cfg.SendQueueSize, cfg.MaxQueueSize),
		done:   make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Send queues env for the write loop without blocking. The router only
// sends to admitted sessions, so the first accepted frame marks the session
// Connected.
func (s *Session) Send(env protocol.Envelope) bool {
	if s.State() == StateDisconnected {
		return false
	}
	if !s.queue.Send(env) {
		return false
	}
	s.state.CompareAndSwap(int32(StateConnecting), int32(StateConnected))
	return true
}

// Close terminates the connection. A session still Connecting is told to
// try again later (1013); an admitted one gets a normal closure. Close is
// idempotent, safe to call from any goroutine, and never blocks on the
// network.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		prev := State(s.state.Swap(int32(StateDisconnected)))
		s.queue.Close()
		close(s.done)

		code, text := websocket.CloseNormalClosure, ""
		if prev == StateConnecting {
			code, text = websocket.CloseTryAgainLater, ErrRefused.Error()
		}
		go s.closeConn(code, text)

		qs := s.queue.Stats()
		attrs := []any{
			"state", prev,
			"close_code", code,
			"frames_queued", qs.TotalQueued,
			"frames_sent", qs.TotalSent,
			"frames_pending", qs.Count,
			"queue_capacity", qs.Capacity,
			"queue_resizes", qs.ResizeCount,
		}
		if qs.Rejected > 0 {
			s.logger.Warn("session closed with overflowed queue", append(attrs, "frames_rejected", qs.Rejected)...)
			return
		}
		s.logger.Debug("session closed", attrs...)
	})
}

// closeConn sends a close frame and closes the underlying connection.
// WriteControl may run concurrently with the write loop.
func (s *Session) closeConn(code int, text string) {
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(time.Second),
	)
	s.conn.Close()
}

// Serve registers the session with r and runs it until the connection ends.
// It returns ErrRefused if the connection cap was reached.
func (s *Session) Serve(ctx context.Context, r Router) error {
	if !r.Connect(ctx, s) {
		// The router closes refused peers; Close again in case it did not.
		s.Close()
		return ErrRefused
	}
	s.state.CompareAndSwap(int32(StateConnecting), int32(StateConnected))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()
	go func() {
		defer wg.Done()
		s.heartbeatLoop()
	}()

	s.readLoop(ctx, r)

	s.Close()
	r.Disconnect(ctx, s.id)
	wg.Wait()
	return nil
}

// readLoop reads frames and hands text frames to the router.
func (s *Session) readLoop(ctx context.Context, r Router) {
	s.conn.SetReadLimit(s.cfg.ReadLimit)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				// Closed locally
			default:
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseNoStatusReceived,
				) {
					s.logger.Warn("websocket read failed", "error", err)
				} else {
					s.logger.Debug("websocket closed by client", "error", err)
				}
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))

		if msgType != websocket.TextMessage {
			s.logger.Debug("ignoring non-text frame", "type", msgType)
			continue
		}
		r.Handle(ctx, s.id, data)
	}
}

// writeLoop drains the outbound queue onto the connection.
func (s *Session) writeLoop() {
	for {
		env, ok := s.queue.Receive()
		if !ok {
			return
		}

		data, err := protocol.Encode(env)
		if err != nil {
			s.logger.Error("encode frame failed", "event", env.Event, "error", err)
			continue
		}

		s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Debug("websocket write failed", "event", env.Event, "error", err)
			s.Close()
			return
		}
	}
}

// heartbeatLoop pings the client; a missed pong expires the read deadline.
func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.logger.Debug("failed to send ping", "error", err)
				s.Close()
				return
			}
		}
	}
}
