package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/thoughtstream/pkg/reducer"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRecordCompleted is emitted after a finished record is persisted.
	EventTypeRecordCompleted = "thoughtstream.record.completed"
)

// RecordCompletedEvent is a transport-neutral event payload for a finished
// thought record.
type RecordCompletedEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	Source        EventSource    `json:"source"`
	Stream        StreamMeta     `json:"stream"`
	Record        reducer.Record `json:"record"`
}

// EventSource identifies where the record originated.
type EventSource struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	User     string `json:"user,omitempty"`
	Client   string `json:"client,omitempty"`
}

// StreamMeta captures session lifecycle metadata for the event.
type StreamMeta struct {
	SessionID   string    `json:"session_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Chunks      int       `json:"chunks"`
	Fields      int       `json:"fields"`
}

// NewRecordCompletedEvent returns an event for rec with a fresh ID.
func NewRecordCompletedEvent(rec reducer.Record, source EventSource, meta StreamMeta) *RecordCompletedEvent {
	return &RecordCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeRecordCompleted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Stream:        meta,
		Record:        rec.Clone(),
	}
}
