// Package reducer reconciles a stream of wire events into a working record
// on the receiving side, publishing throttled updates to an Observer.
package reducer

import (
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/thoughtstream/pkg/logger"
	"github.com/papercomputeco/thoughtstream/pkg/stream"
)

// DefaultResultFields are overwritten with the error placeholder when a
// session fails.
var DefaultResultFields = []string{"reframe"}

// ErrorPlaceholder is the value shown in result fields of a failed record.
const ErrorPlaceholder = "error"

// Observer receives record updates. Each Record is a private deep copy.
type Observer interface {
	Publish(Record)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Record)

func (f ObserverFunc) Publish(r Record) { f(r) }

type nopObserver struct{}

func (nopObserver) Publish(Record) {}

// Option configures a Reducer.
type Option func(*Reducer)

// WithInterval sets the publish throttle interval.
func WithInterval(d time.Duration) Option {
	return func(r *Reducer) { r.interval = d }
}

// WithClock replaces the wall clock used by the throttle.
func WithClock(c Clock) Option {
	return func(r *Reducer) { r.clock = c }
}

// WithResultFields sets the fields replaced by the placeholder on failure.
func WithResultFields(fields ...string) Option {
	return func(r *Reducer) { r.resultFields = fields }
}

// WithPlaceholder sets the value written to result fields on failure.
func WithPlaceholder(v any) Option {
	return func(r *Reducer) { r.placeholder = v }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reducer) { r.logger = l }
}

// Reducer consumes stream events for a single record. It is safe for
// concurrent use, although events are expected from a single reader.
type Reducer struct {
	mu sync.Mutex

	seed         Record
	patch        map[string]any
	transcript   strings.Builder
	final        *Record
	done         chan struct{}
	observer     Observer
	sched        *Scheduler[Record]
	interval     time.Duration
	clock        Clock
	resultFields []string
	placeholder  any
	logger       *slog.Logger
}

// New returns a Reducer for seed publishing to obs. A nil obs discards
// updates.
func New(seed Record, obs Observer, opts ...Option) *Reducer {
	if obs == nil {
		obs = nopObserver{}
	}

	r := &Reducer{
		seed:         seed.Clone(),
		patch:        map[string]any{},
		done:         make(chan struct{}),
		observer:     obs,
		interval:     DefaultInterval,
		resultFields: DefaultResultFields,
		placeholder:  ErrorPlaceholder,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Nop()
	}
	r.seed.Status = StatusStreaming

	r.sched = NewScheduler(r.clock, r.interval, func(rec Record) {
		r.observer.Publish(rec)
	})
	return r
}

// Apply folds one event into the record. Events after the terminal event
// are ignored.
func (r *Reducer) Apply(ev stream.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.final != nil {
		r.logger.Debug("event after terminal ignored", "type", ev.Type, "record_id", r.seed.ID)
		return
	}

	switch ev.Type {
	case stream.EventChunk:
		r.transcript.WriteString(ev.Text)

	case stream.EventField:
		if isIdentityKey(ev.Field) {
			return
		}
		r.mergePatch(ev.Field, ev.Value)
		r.sched.Schedule(r.working())

	case stream.EventComplete:
		r.sched.FlushNow()
		rec := r.working()
		for k, v := range ev.Object {
			if !isIdentityKey(k) {
				rec.Fields[k] = v
			}
		}
		rec.Status = StatusComplete
		r.terminate(rec)

	case stream.EventError:
		r.fail(ev.Text)

	default:
		r.logger.Debug("unknown event ignored", "type", ev.Type)
	}
}

// Abort ends the record as failed, as if an error event carrying reason had
// arrived. It is a no-op once terminated.
func (r *Reducer) Abort(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.final != nil {
		return
	}
	r.fail(reason)
}

// Record returns a copy of the current working record, or the final record
// once terminated.
func (r *Reducer) Record() Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.final != nil {
		return r.final.Clone()
	}
	return r.working()
}

// Transcript returns the concatenated chunk text seen so far.
func (r *Reducer) Transcript() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transcript.String()
}

// Done is closed when the record reaches a terminal status.
func (r *Reducer) Done() <-chan struct{} {
	return r.done
}

// mergePatch shallow-merges object values into an existing object patch.
// Any other value overwrites.
func (r *Reducer) mergePatch(field string, value any) {
	obj, ok := value.(map[string]any)
	if !ok {
		r.patch[field] = value
		return
	}

	merged := map[string]any{}
	if prev, ok := r.patch[field].(map[string]any); ok {
		maps.Copy(merged, prev)
	}
	maps.Copy(merged, obj)
	r.patch[field] = merged
}

func (r *Reducer) fail(reason string) {
	r.sched.FlushNow()
	rec := r.working()
	for _, f := range r.resultFields {
		rec.Fields[f] = r.placeholder
	}
	rec.Status = StatusError
	rec.Error = reason
	r.terminate(rec)
}

func (r *Reducer) terminate(rec Record) {
	r.sched.Cancel()
	r.final = &rec
	r.observer.Publish(rec.Clone())
	close(r.done)

	r.logger.Debug("record terminated",
		"record_id", rec.ID,
		"status", rec.Status,
		"fields", len(rec.Fields),
	)
}

// working builds seed ∪ patch as a fresh deep copy.
func (r *Reducer) working() Record {
	rec := r.seed.Clone()
	for k, v := range r.patch {
		rec.Fields[k] = v
	}
	return rec.Clone()
}
