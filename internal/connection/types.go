package connection

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/textsync/internal/router"
)

// Errors
var (
	ErrRefused = errors.New("connection refused: limit reached")
)

// State is a session's position in its lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Router is the subset of *router.Router a session talks to.
type Router interface {
	Connect(ctx context.Context, p router.Peer) bool
	Disconnect(ctx context.Context, id string)
	Handle(ctx context.Context, id string, frame []byte)
}

// SessionConfig configures a Session.
type SessionConfig struct {
	PingInterval  time.Duration // How often the server pings
	PongWait      time.Duration // Read deadline, extended by every pong and frame
	WriteTimeout  time.Duration // Write deadline for each frame
	SendQueueSize int           // Initial outbound queue capacity
	MaxQueueSize  int           // Outbound queue length at which the session is dropped
	ReadLimit     int64         // Maximum inbound frame size in bytes
}

// DefaultSessionConfig returns sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		PingInterval:  25 * time.Second,
		PongWait:      60 * time.Second,
		WriteTimeout:  10 * time.Second,
		SendQueueSize: 64,
		MaxQueueSize:  4096,
		ReadLimit:     ReadLimitFor(10_000_000),
	}
}

// ReadLimitFor returns a frame size limit that admits a text_change carrying
// maxTextSize characters, leaving room for JSON escaping. Content above the
// character cap is still accepted and clipped; the byte limit only guards
// against unbounded frames.
func ReadLimitFor(maxTextSize int) int64 {
	// Up to 4 bytes per character, 6 bytes for an escaped control character.
	return int64(maxTextSize)*6 + 64*1024
}
