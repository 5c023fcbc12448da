package eventstream

import (
	"context"
	"errors"
)

// ErrNilRecordEvent is returned by publishers handed a nil event.
var ErrNilRecordEvent = errors.New("nil record event")

// Publisher delivers record.completed events to a backend. PublishRecord
// may be called from several worker goroutines at once.
type Publisher interface {
	PublishRecord(ctx context.Context, event *RecordCompletedEvent) error
	Close() error
}
