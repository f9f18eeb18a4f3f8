package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rickgao/textsync/internal/metrics"
	"github.com/rickgao/textsync/internal/notebook"
	"github.com/rickgao/textsync/internal/protocol"
	"github.com/rickgao/textsync/internal/registry"
	"github.com/rickgao/textsync/internal/stats"
	"github.com/rickgao/textsync/internal/store"
)

const tracerName = "github.com/rickgao/textsync/internal/router"

// Errors
var (
	errTextChangeWithoutContent = errors.New("text_change without content")
	errCursorWithoutPosition    = errors.New("cursor_position without position")
)

// Router applies events to shared state and fans out the results.
type Router struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	registry  *registry.Registry
	directory *notebook.Directory
	store     *store.Store

	// mu serializes every operation on the fields below and on the
	// components above.
	mu    sync.Mutex
	peers map[string]Peer
	evict map[string]Peer // failed a send during the current operation
	stats stats.Stats     // of the active notebook
	rs    RouterStats
}

// New creates a Router over already-initialized components. The directory
// must have an active notebook.
func New(
	reg *registry.Registry,
	dir *notebook.Directory,
	st *store.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}

	return &Router{
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer(tracerName),
		registry:  reg,
		directory: dir,
		store:     st,
		peers:     make(map[string]Peer),
		stats:     stats.Compute(st.Read(dir.Active())),
	}
}

// Connect admits p. When the connection cap is reached p is closed, nothing
// is sent to it, and Connect returns false. On admission p receives the
// active notebook, the current stats and the limits, and every session
// receives the new online count.
func (r *Router) Connect(ctx context.Context, p Peer) bool {
	_, span := r.tracer.Start(ctx, "router.connect",
		trace.WithAttributes(attribute.String("session.id", p.ID())))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.registry.Admit(p.ID()) {
		r.rs.RefusedConnects++
		r.metrics.RefusedConnections.Inc()
		span.SetStatus(codes.Error, "connection limit reached")
		r.logger.Warn("connection refused",
			"session", p.ID(),
			"online", r.registry.Count(),
			"limit", r.registry.Max(),
		)
		p.Close()
		return false
	}
	r.peers[p.ID()] = p
	r.metrics.ActiveSessions.Set(float64(len(r.peers)))

	r.logger.Info("session connected", "session", p.ID(), "online", len(r.peers))

	active := r.directory.Active()
	r.broadcastLocked(protocol.MustNew(protocol.EventUserCount, protocol.UserCount{Count: r.registry.Count()}), "")
	r.replyLocked(p, protocol.MustNew(protocol.EventNotebookSwitched, protocol.NotebookSwitched{
		Name:    active,
		Content: r.store.Read(active),
	}))
	r.replyLocked(p, protocol.MustNew(protocol.EventStatsUpdate, r.stats))
	r.replyLocked(p, protocol.MustNew(protocol.EventLimits, protocol.Limits{MaxSize: r.store.MaxTextSize()}))
	r.flushEvictionsLocked()

	return true
}

// Disconnect removes the session id. Every remaining session receives the
// new online count. Disconnecting an unknown or already removed id is a no-op.
func (r *Router) Disconnect(ctx context.Context, id string) {
	_, span := r.tracer.Start(ctx, "router.disconnect",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.removeLocked(id) {
		return
	}
	r.logger.Info("session disconnected", "session", id, "online", len(r.peers))

	r.broadcastLocked(protocol.MustNew(protocol.EventUserCount, protocol.UserCount{Count: r.registry.Count()}), "")
	r.flushEvictionsLocked()
}

// Handle decodes one inbound frame from session id and applies it.
// Malformed frames and frames from sessions that are not admitted are
// logged and dropped.
func (r *Router) Handle(ctx context.Context, id string, frame []byte) {
	env, err := protocol.Decode(frame)

	r.mu.Lock()
	r.rs.FramesReceived++
	if err != nil {
		reason := "parse"
		if errors.Is(err, protocol.ErrUnknownEvent) {
			reason = "unknown_event"
			r.rs.UnknownEvents++
		} else {
			r.rs.ParseErrors++
		}
		r.mu.Unlock()

		r.metrics.MalformedFrames.WithLabelValues(reason).Inc()
		r.logger.Warn("dropping inbound frame", "session", id, "error", err)
		return
	}
	r.mu.Unlock()

	r.HandleEvent(ctx, id, env)
}

// HandleEvent applies one decoded event from session id.
func (r *Router) HandleEvent(ctx context.Context, id string, env protocol.Envelope) {
	ctx, span := r.tracer.Start(ctx, "router."+env.Event,
		trace.WithAttributes(
			attribute.String("session.id", id),
			attribute.String("event", env.Event),
		))
	defer span.End()

	start := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	sender, ok := r.peers[id]
	if !ok {
		r.logger.Debug("ignoring event from unknown session", "session", id, "event", env.Event)
		return
	}

	var err error
	switch env.Event {
	case protocol.EventTextChange:
		err = r.textChangeLocked(ctx, sender, env)
	case protocol.EventCursorPosition:
		err = r.cursorPositionLocked(sender, env)
	case protocol.EventCreateNotebook:
		err = r.createNotebookLocked(ctx, sender, env)
	case protocol.EventSwitchNotebook:
		err = r.switchNotebookLocked(sender, env)
	default:
		err = fmt.Errorf("%w: %q", protocol.ErrUnknownEvent, env.Event)
	}
	r.flushEvictionsLocked()

	r.rs.EventsHandled++
	r.metrics.EventsReceived.WithLabelValues(env.Event).Inc()
	r.metrics.EventHandleDuration.WithLabelValues(env.Event).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn("event failed", "session", id, "event", env.Event, "error", err)
	}
}

// textChangeLocked replaces the active notebook's content.
func (r *Router) textChangeLocked(ctx context.Context, sender Peer, env protocol.Envelope) error {
	var msg protocol.TextChange
	if err := env.Payload(&msg); err != nil {
		return err
	}
	if msg.Content == nil {
		return errTextChangeWithoutContent
	}

	active := r.directory.Active()
	res := r.store.Write(ctx, active, *msg.Content)
	r.stats = res.Stats

	r.broadcastLocked(protocol.MustNew(protocol.EventContentUpdated, protocol.ContentUpdated{
		Content: r.store.Read(active),
	}), sender.ID())
	if res.Truncated {
		r.logger.Info("content truncated",
			"session", sender.ID(),
			"notebook", active,
			"max_size", r.store.MaxTextSize(),
		)
		r.replyLocked(sender, protocol.MustNew(protocol.EventContentTruncated, protocol.Limits{
			MaxSize: r.store.MaxTextSize(),
		}))
	}
	r.broadcastLocked(protocol.MustNew(protocol.EventStatsUpdate, r.stats), "")

	// The in-memory content is authoritative even when persistence fails.
	return res.Err
}

// cursorPositionLocked relays a cursor hint to everyone but the sender.
func (r *Router) cursorPositionLocked(sender Peer, env protocol.Envelope) error {
	var msg protocol.CursorPosition
	if err := env.Payload(&msg); err != nil {
		return err
	}
	if msg.Position == nil {
		return errCursorWithoutPosition
	}

	r.broadcastLocked(protocol.MustNew(protocol.EventCursorUpdate, protocol.CursorUpdate{
		User:     sender.ID(),
		Position: *msg.Position,
	}), sender.ID())
	return nil
}

// createNotebookLocked adds a notebook. Failures are reported to the sender only.
func (r *Router) createNotebookLocked(ctx context.Context, sender Peer, env protocol.Envelope) error {
	var msg protocol.NotebookName
	if err := env.Payload(&msg); err != nil {
		r.replyLocked(sender, notebookError(notebook.ErrInvalidName, r.directory.Max()))
		return err
	}

	name, err := r.directory.Create(ctx, msg.Name)
	if err != nil {
		r.replyLocked(sender, notebookError(err, r.directory.Max()))
		r.logger.Info("notebook rejected", "session", sender.ID(), "name", name, "reason", err)
		return nil
	}

	r.broadcastLocked(protocol.MustNew(protocol.EventNotebookCreated, protocol.NotebookCreated{
		Name:      name,
		Notebooks: r.directory.List(),
	}), "")
	return nil
}

// switchNotebookLocked changes the active notebook for every session.
// An unknown name is a silent no-op.
func (r *Router) switchNotebookLocked(sender Peer, env protocol.Envelope) error {
	var msg protocol.NotebookName
	if err := env.Payload(&msg); err != nil {
		return err
	}

	if err := r.directory.Switch(msg.Name); err != nil {
		r.logger.Debug("switch to unknown notebook ignored", "session", sender.ID(), "name", msg.Name)
		return nil
	}

	content := r.store.Read(msg.Name)
	r.stats = stats.Compute(content)

	r.logger.Info("notebook switched", "session", sender.ID(), "name", msg.Name)

	r.broadcastLocked(protocol.MustNew(protocol.EventNotebookSwitched, protocol.NotebookSwitched{
		Name:    msg.Name,
		Content: content,
	}), "")
	r.broadcastLocked(protocol.MustNew(protocol.EventStatsUpdate, r.stats), "")
	return nil
}

// Snapshot returns the state needed to render the initial page.
func (r *Router) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := r.directory.Active()
	buf, _ := r.store.Get(active)
	return Snapshot{
		Active:      active,
		CreatedAt:   buf.CreatedAt,
		Notebooks:   r.directory.List(),
		Content:     buf.Content,
		Stats:       r.stats,
		Online:      r.registry.Count(),
		MaxSize:     r.store.MaxTextSize(),
		MaxBuffers:  r.directory.Max(),
		MaxSessions: r.registry.Max(),
	}
}

// Stats returns current statistics.
func (r *Router) Stats() RouterStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rs
}

// CloseAll closes every admitted session. Used on shutdown.
func (r *Router) CloseAll() {
	r.mu.Lock()
	peers := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		peers = append(peers, p)
	}
	r.mu.Unlock()

	for _, p := range peers {
		p.Close()
	}
}

func notebookError(err error, max int) protocol.Envelope {
	var message string
	switch {
	case errors.Is(err, notebook.ErrLimit):
		message = fmt.Sprintf("Cannot create notebook. Limit of %d reached.", max)
	case errors.Is(err, notebook.ErrExists):
		message = "Cannot create notebook. A notebook with that name already exists."
	case errors.Is(err, notebook.ErrEmptyName):
		message = "Cannot create notebook. Name is empty."
	case errors.Is(err, notebook.ErrInvalidName):
		message = "Cannot create notebook. Invalid name."
	default:
		message = "Cannot create notebook."
	}
	return protocol.MustNew(protocol.EventNotebookError, protocol.NotebookError{Message: message})
}
