package router

import (
	"time"

	"github.com/rickgao/textsync/internal/protocol"
	"github.com/rickgao/textsync/internal/stats"
)

// Peer is one admitted real-time session as seen by the router.
type Peer interface {
	// ID returns the opaque session identifier.
	ID() string

	// Send queues a frame without blocking. It returns false if the
	// session cannot accept more frames.
	Send(env protocol.Envelope) bool

	// Close terminates the session's connection.
	Close()
}

// Snapshot is a read-only view of the shared state for the initial page.
type Snapshot struct {
	Active      string      `json:"active"`
	CreatedAt   time.Time   `json:"created_at"` // of the active notebook in this process
	Notebooks   []string    `json:"notebooks"`
	Content     string      `json:"content"`
	Stats       stats.Stats `json:"stats"`
	Online      int         `json:"online"`
	MaxSize     int         `json:"max_size"`
	MaxBuffers  int         `json:"max_notebooks"`
	MaxSessions int         `json:"max_connections"`
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	FramesReceived  int64
	EventsHandled   int64
	ParseErrors     int64
	UnknownEvents   int64
	Evictions       int64
	RefusedConnects int64
}
