// Package stream turns a token-by-token LLM completion into a sequence of
// field-level change events for a single JSON record.
//
// A Session reads fragments from a TokenSource, accumulates them in a Buffer,
// extracts a best-effort snapshot after every fragment and emits the fields
// that changed. Every session ends with exactly one terminal event.
package stream

import (
	"encoding/json"
	"fmt"
)

// EventType tags a wire event.
type EventType string

const (
	// EventChunk echoes one raw fragment for transcript display.
	EventChunk EventType = "chunk"

	// EventField carries the new value of one top-level field.
	EventField EventType = "field"

	// EventComplete terminates a successful session with the final object.
	EventComplete EventType = "complete"

	// EventError terminates a failed session with a human-readable message.
	EventError EventType = "error"
)

// Terminal reports whether t ends a session.
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventError
}

// Event is the envelope written to the wire as one SSE data line.
//
// Which fields are meaningful depends on Type:
//
//	chunk:    Text, ChunkNumber
//	field:    Field, Value
//	complete: Object
//	error:    Text
type Event struct {
	Type        EventType
	Text        string
	ChunkNumber int
	Field       string
	Value       any
	Object      map[string]any
}

// ChunkEvent builds a chunk event.
func ChunkEvent(content string, n int) Event {
	return Event{Type: EventChunk, Text: content, ChunkNumber: n}
}

// FieldEvent builds a field event.
func FieldEvent(field string, value any) Event {
	return Event{Type: EventField, Field: field, Value: value}
}

// CompleteEvent builds a complete event.
func CompleteEvent(object map[string]any) Event {
	return Event{Type: EventComplete, Object: object}
}

// ErrorEvent builds an error event.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Text: message}
}

type chunkWire struct {
	Type        EventType `json:"type"`
	Content     string    `json:"content"`
	ChunkNumber int       `json:"chunkNumber"`
}

type fieldWire struct {
	Type  EventType `json:"type"`
	Field string    `json:"field"`
	Value any       `json:"value"`
}

type completeWire struct {
	Type    EventType      `json:"type"`
	Content map[string]any `json:"content"`
}

type errorWire struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// MarshalJSON encodes the event as its type-specific envelope.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventChunk:
		return json.Marshal(chunkWire{Type: e.Type, Content: e.Text, ChunkNumber: e.ChunkNumber})
	case EventField:
		return json.Marshal(fieldWire{Type: e.Type, Field: e.Field, Value: e.Value})
	case EventComplete:
		obj := e.Object
		if obj == nil {
			obj = map[string]any{}
		}
		return json.Marshal(completeWire{Type: e.Type, Content: obj})
	case EventError:
		return json.Marshal(errorWire{Type: e.Type, Content: e.Text})
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
}

// UnmarshalJSON decodes a type-tagged envelope. A complete event whose
// content is not an object decodes with a nil Object.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        EventType       `json:"type"`
		Content     json.RawMessage `json:"content"`
		ChunkNumber int             `json:"chunkNumber"`
		Field       string          `json:"field"`
		Value       json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Event{Type: raw.Type}

	switch raw.Type {
	case EventChunk:
		e.ChunkNumber = raw.ChunkNumber
		return unmarshalOptional(raw.Content, &e.Text)

	case EventField:
		if raw.Field == "" {
			return fmt.Errorf("field event without a field name")
		}
		e.Field = raw.Field
		return unmarshalOptional(raw.Value, &e.Value)

	case EventComplete:
		var content any
		if err := unmarshalOptional(raw.Content, &content); err != nil {
			return err
		}
		if obj, ok := content.(map[string]any); ok {
			e.Object = obj
		}
		return nil

	case EventError:
		var content any
		if err := unmarshalOptional(raw.Content, &content); err != nil {
			return err
		}
		switch c := content.(type) {
		case string:
			e.Text = c
		case nil:
		default:
			e.Text = fmt.Sprint(c)
		}
		return nil

	default:
		return fmt.Errorf("unknown event type %q", raw.Type)
	}
}

func unmarshalOptional(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
