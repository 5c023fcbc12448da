package reducer

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/thoughtstream/pkg/snapshot"
)

// Status is the lifecycle state of a Record.
type Status string

const (
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Terminal reports whether no further updates can follow s.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Identity keys are owned by the seed and never read from a stream.
const (
	keyID        = "id"
	keyCreatedAt = "createdAt"
)

// Record is the receiver's working copy of a streamed thought record.
type Record struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	Status    Status         `json:"status"`
	Fields    map[string]any `json:"fields"`

	// Error carries the failure reason of a record with StatusError.
	Error string `json:"error,omitempty"`

	// Meta holds attribution supplied alongside the request, such as the
	// user or client name. It never influences reconciliation.
	Meta map[string]string `json:"meta,omitempty"`
}

// NewSeed returns a fresh streaming record with a random ID.
func NewSeed() Record {
	return Record{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Status:    StatusStreaming,
		Fields:    map[string]any{},
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	out.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		out.Fields[k] = snapshot.Clone(v)
	}
	if r.Meta != nil {
		out.Meta = make(map[string]string, len(r.Meta))
		for k, v := range r.Meta {
			out.Meta[k] = v
		}
	}
	return out
}

func isIdentityKey(k string) bool {
	return k == keyID || k == keyCreatedAt
}
