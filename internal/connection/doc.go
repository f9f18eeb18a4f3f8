// Package connection implements the real-time transport.
//
// Each WebSocket connection becomes a Session:
//   - Opaque id (UUID) used as the session identifier in events
//   - Read loop decoding frames and handing them to the router
//   - Write loop draining a growable outbound queue
//   - Heartbeat pings with a pong-extended read deadline
//
// Session lifecycle: Disconnected -> Connecting -> Connected -> Disconnected.
// Sessions refused by the connection cap are closed with code 1013 and
// never receive an event.
package connection
