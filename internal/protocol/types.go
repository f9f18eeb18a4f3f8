package protocol

import (
	"encoding/json"
	"errors"
)

// Errors
var (
	ErrMissingEvent = errors.New("frame has no event name")
	ErrUnknownEvent = errors.New("unknown event")
)

// Event names.
const (
	// Inbound
	EventTextChange     = "text_change"
	EventCursorPosition = "cursor_position"
	EventCreateNotebook = "create_notebook"
	EventSwitchNotebook = "switch_notebook"

	// Outbound
	EventUserCount        = "user_count"
	EventStatsUpdate      = "stats_update" // payload is stats.Stats
	EventLimits           = "limits"
	EventContentUpdated   = "content_updated"
	EventContentTruncated = "content_truncated"
	EventCursorUpdate     = "cursor_update"
	EventNotebookCreated  = "notebook_created"
	EventNotebookError    = "notebook_error"
	EventNotebookSwitched = "notebook_switched"
)

// Envelope is one frame on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TextChange is the payload of an inbound text_change.
type TextChange struct {
	Content *string `json:"content"` // nil when absent or null
}

// CursorPosition is the payload of an inbound cursor_position.
type CursorPosition struct {
	Position *int `json:"position"` // nil when absent
}

// NotebookName is the payload of create_notebook and switch_notebook.
type NotebookName struct {
	Name string `json:"name"`
}

// UserCount is the payload of user_count.
type UserCount struct {
	Count int `json:"count"`
}

// Limits is the payload of limits and content_truncated.
type Limits struct {
	MaxSize int `json:"max_size"`
}

// ContentUpdated is the payload of content_updated.
type ContentUpdated struct {
	Content string `json:"content"`
}

// CursorUpdate is the payload of cursor_update.
type CursorUpdate struct {
	User     string `json:"user"`
	Position int    `json:"position"`
}

// NotebookCreated is the payload of notebook_created.
type NotebookCreated struct {
	Name      string   `json:"name"`
	Notebooks []string `json:"notebooks"`
}

// NotebookError is the payload of notebook_error.
type NotebookError struct {
	Message string `json:"message"`
}

// NotebookSwitched is the payload of notebook_switched.
type NotebookSwitched struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// IsInbound reports whether event is one clients may send.
func IsInbound(event string) bool {
	switch event {
	case EventTextChange, EventCursorPosition, EventCreateNotebook, EventSwitchNotebook:
		return true
	}
	return false
}
