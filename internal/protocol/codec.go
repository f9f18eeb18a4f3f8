package protocol

import (
	"encoding/json"
	"fmt"
)

// New builds an envelope for event with data marshaled as its payload.
func New(event string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: raw}, nil
}

// MustNew is New for payload types that always marshal.
func MustNew(event string, data any) Envelope {
	env, err := New(event, data)
	if err != nil {
		panic(err)
	}
	return env
}

// Encode serializes an envelope into a frame.
func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Decode parses a frame. Unknown event names are returned together with
// ErrUnknownEvent so callers can log them.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse frame: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, ErrMissingEvent
	}
	if !IsInbound(env.Event) {
		return env, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	return env, nil
}

// Payload decodes an envelope's data into v. A missing payload leaves v
// at its zero value.
func (e Envelope) Payload(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("parse %s payload: %w", e.Event, err)
	}
	return nil
}
