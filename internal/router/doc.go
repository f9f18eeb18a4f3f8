// Package router implements the broadcast router: the single owner of shared
// server state (session registry, notebook directory, buffer store, current
// statistics) and the fan-out rules for every event.
//
// Fan-out modes:
//   - reply: only the session that sent the event
//   - broadcast: every admitted session
//   - broadcast-except: every admitted session except the sender
//
// One mutex is held for the whole of each operation, including the
// synchronous persistence and the enqueue of every outbound frame, so events
// are applied one at a time and every session observes them in the same order.
package router
