package connection

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Acceptor upgrades HTTP requests to WebSocket sessions.
type Acceptor struct {
	cfg      SessionConfig
	router   Router
	logger   *slog.Logger
	upgrader websocket.Upgrader

	wg sync.WaitGroup
}

// NewAcceptor creates an Acceptor. An empty allowedOrigins admits any origin.
func NewAcceptor(cfg SessionConfig, r Router, allowedOrigins []string, logger *slog.Logger) *Acceptor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Acceptor{
		cfg:    cfg,
		router: r,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// ServeHTTP implements http.Handler.
func (a *Acceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		a.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	a.wg.Add(1)
	defer a.wg.Done()

	s := NewSession(conn, a.cfg, a.logger)
	a.logger.Debug("websocket connected", "session", s.ID(), "remote", r.RemoteAddr)

	// The request context ends with this handler; session work must not.
	ctx := context.WithoutCancel(r.Context())
	if err := s.Serve(ctx, a.router); errors.Is(err, ErrRefused) {
		a.logger.Info("websocket refused", "session", s.ID(), "remote", r.RemoteAddr)
	}
}

// Wait blocks until every session served by this Acceptor has ended or ctx
// is done.
func (a *Acceptor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser client
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}
