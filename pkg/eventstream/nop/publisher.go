// Package nop provides the publisher used when no event backend is
// configured. It drops every event but counts them.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/thoughtstream/pkg/eventstream"
)

type Publisher struct {
	dropped atomic.Int64
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishRecord drops event after rejecting nil.
func (p *Publisher) PublishRecord(_ context.Context, event *eventstream.RecordCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilRecordEvent
	}
	p.dropped.Add(1)
	return nil
}

// Dropped returns how many events were discarded.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) Close() error { return nil }
