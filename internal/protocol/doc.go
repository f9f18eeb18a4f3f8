// Package protocol defines the real-time event protocol.
//
// Every frame is a JSON text message:
//
//	{"event": "<name>", "data": {...}}
//
// Inbound events: text_change, cursor_position, create_notebook, switch_notebook.
// Outbound events: user_count, stats_update, limits, content_updated,
// content_truncated, cursor_update, notebook_created, notebook_error,
// notebook_switched.
package protocol
