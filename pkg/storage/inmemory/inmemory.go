// Package inmemory provides a map-backed storage driver.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/papercomputeco/thoughtstream/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the mapping of records
	mu sync.RWMutex

	// records is keyed by record ID
	records map[string]*storage.Record
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]*storage.Record),
	}
}

// Put stores a copy of rec.
func (d *Driver) Put(_ context.Context, rec *storage.Record) error {
	if rec == nil {
		return storage.ErrNilRecord
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.records[rec.ID] = clone(rec)
	return nil
}

// Get retrieves a record by ID.
func (d *Driver) Get(_ context.Context, id string) (*storage.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.records[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	return clone(rec), nil
}

// List returns records newest first.
func (d *Driver) List(_ context.Context, opts storage.ListOptions) ([]*storage.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*storage.Record, 0, len(d.records))
	for _, rec := range d.records {
		if opts.Status != "" && rec.Status != opts.Status {
			continue
		}
		result = append(result, clone(rec))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit := opts.EffectiveLimit(); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

func clone(rec *storage.Record) *storage.Record {
	out := *rec
	out.Record = rec.Record.Clone()
	return &out
}
