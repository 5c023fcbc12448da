// Package storage persists finished thought records.
package storage

import (
	"context"
	"errors"

	"github.com/papercomputeco/thoughtstream/pkg/reducer"
)

// DefaultListLimit bounds List when ListOptions.Limit is zero.
const DefaultListLimit = 50

// Record is a reconciled thought record along with stream metadata.
type Record struct {
	reducer.Record

	Provider         string `json:"provider,omitempty"`
	Model            string `json:"model,omitempty"`
	Chunks           int    `json:"chunks,omitempty"`
	DurationMs       int64  `json:"duration_ms,omitempty"`
	PromptTokens     int    `json:"prompt_tokens,omitempty"`
	CompletionTokens int    `json:"completion_tokens,omitempty"`
}

// ListOptions filters List.
type ListOptions struct {
	// Limit caps the number of records. Zero uses DefaultListLimit.
	Limit int

	// Status, when set, keeps only records with that status.
	Status reducer.Status
}

// EffectiveLimit returns the limit List should apply.
func (o ListOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// ErrNilRecord is returned by Put for a nil record.
var ErrNilRecord = errors.New("cannot store nil record")

// Driver defines the interface for persisting and retrieving records in a
// storage backend.
type Driver interface {
	// Put stores a record, replacing any record with the same ID.
	Put(ctx context.Context, rec *Record) error

	// Get retrieves a record by ID. It returns NotFoundError when absent.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records newest first.
	List(ctx context.Context, opts ListOptions) ([]*Record, error)

	// Close closes the store and releases any resources.
	Close() error
}
