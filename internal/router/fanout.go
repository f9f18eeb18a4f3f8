package router

import "github.com/rickgao/textsync/internal/protocol"

// replyLocked sends env to p alone (caller must hold r.mu).
func (r *Router) replyLocked(p Peer, env protocol.Envelope) {
	r.sendLocked(p, env)
}

// broadcastLocked sends env to every admitted session except the one with id
// except; an empty except reaches everyone (caller must hold r.mu).
func (r *Router) broadcastLocked(env protocol.Envelope, except string) {
	for id, p := range r.peers {
		if id == except {
			continue
		}
		r.sendLocked(p, env)
	}
}

func (r *Router) sendLocked(p Peer, env protocol.Envelope) {
	if _, evicted := r.evict[p.ID()]; evicted {
		return
	}
	if !p.Send(env) {
		r.logger.Warn("session queue full, dropping session", "session", p.ID(), "event", env.Event)
		r.metrics.SlowConsumers.Inc()
		if r.evict == nil {
			r.evict = make(map[string]Peer)
		}
		r.evict[p.ID()] = p
		return
	}
	r.metrics.FramesSent.WithLabelValues(env.Event).Inc()
}

// flushEvictionsLocked removes sessions that failed a send during this
// operation and tells the rest the new online count. Repeats until no
// further session fails (caller must hold r.mu).
func (r *Router) flushEvictionsLocked() {
	for len(r.evict) > 0 {
		evicted := r.evict
		r.evict = nil

		for id, p := range evicted {
			r.removeLocked(id)
			r.rs.Evictions++
			p.Close()
		}
		r.broadcastLocked(protocol.MustNew(protocol.EventUserCount, protocol.UserCount{Count: r.registry.Count()}), "")
	}
}

// removeLocked forgets session id; it reports whether id was admitted
// (caller must hold r.mu).
func (r *Router) removeLocked(id string) bool {
	if !r.registry.Remove(id) {
		return false
	}
	delete(r.peers, id)
	r.metrics.ActiveSessions.Set(float64(len(r.peers)))
	return true
}
