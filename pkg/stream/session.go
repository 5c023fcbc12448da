package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/thoughtstream/pkg/partialjson"
	"github.com/papercomputeco/thoughtstream/pkg/snapshot"
)

var (
	// ErrSessionUsed is returned when Run is called on a session that has
	// already run. Callers retry by starting a new Session.
	ErrSessionUsed = errors.New("stream session already used")

	// ErrTerminated is returned by an emission attempted after the terminal
	// event.
	ErrTerminated = errors.New("stream session terminated")
)

// TokenSource yields raw text fragments from an upstream completion. Next
// returns io.EOF once the upstream is exhausted; any other error is an
// upstream failure, and the fragment is ignored whenever err is non-nil.
type TokenSource interface {
	Next(ctx context.Context) (string, error)
}

// Sink receives wire events in order. An error from Emit means the
// transport to the receiver has been severed.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// State is the emitter state of a Session.
type State int

const (
	StateStreaming State = iota
	StateFinalizing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome describes how a session ended.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeError    Outcome = "error"

	// OutcomeSevered means the receiver went away; no terminal event could
	// be delivered.
	OutcomeSevered Outcome = "severed"
)

// Result summarizes a finished session.
type Result struct {
	Outcome Outcome

	// Payload is the complete event's object, or the last emitted snapshot
	// when the session did not complete.
	Payload map[string]any

	// Message is the error text sent to the receiver, if any.
	Message string

	Chunks   int
	Fields   int
	Duration time.Duration
}

// Session drives exactly one streamed record from upstream fragments to a
// terminal event. It is single-use and never shares state with other
// sessions.
type Session struct {
	id     string
	logger *slog.Logger

	buf    Buffer
	differ *snapshot.Differ
	state  State
	fields int

	used atomic.Bool
}

// NewSession returns a session identified by id for logging.
func NewSession(id string, logger *slog.Logger) *Session {
	return &Session{
		id:     id,
		logger: logger.With("session_id", id),
		differ: snapshot.NewDiffer(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current emitter state.
func (s *Session) State() State {
	return s.state
}

// Run consumes src until it is exhausted or fails, writing events to sink.
// The next fragment is not read until the previous one has been appended,
// extracted, diffed and emitted.
//
// Run returns a nil error only when the complete event was delivered. An
// upstream failure is reported to the receiver as one error event and
// returned; a severed sink stops the session without further emission.
func (s *Session) Run(ctx context.Context, src TokenSource, sink Sink) (Result, error) {
	if s.used.Swap(true) {
		return Result{}, ErrSessionUsed
	}

	start := time.Now()
	res, err := s.run(ctx, src, sink)
	res.Chunks = s.buf.Chunks()
	res.Fields = s.fields
	res.Duration = time.Since(start)

	s.state = StateTerminated
	s.buf.Release()

	s.logger.Info("stream session finished",
		"outcome", res.Outcome,
		"chunks", res.Chunks,
		"fields", res.Fields,
		"duration", res.Duration,
	)

	return res, err
}

func (s *Session) run(ctx context.Context, src TokenSource, sink Sink) (Result, error) {
	for {
		fragment, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s.fail(ctx, sink, err)
		}

		if err := s.handleFragment(ctx, sink, fragment); err != nil {
			return s.severed(err)
		}
	}

	return s.complete(ctx, sink)
}

func (s *Session) handleFragment(ctx context.Context, sink Sink, fragment string) error {
	buf := s.buf.Append(fragment)

	if err := s.emit(ctx, sink, ChunkEvent(fragment, s.buf.Chunks())); err != nil {
		return err
	}

	res, ok := partialjson.Extract(buf)
	if !ok {
		return nil
	}

	for _, change := range s.differ.Diff(res.Snapshot) {
		s.logger.Debug("field changed", "field", change.Field, "chunk", s.buf.Chunks())
		if err := s.emit(ctx, sink, FieldEvent(change.Field, change.Value)); err != nil {
			return err
		}
		s.fields++
	}

	return nil
}

// complete emits the terminal complete event. A strict parse of the whole
// buffer is authoritative; otherwise the last emitted snapshot is merged with
// whatever tolerant recovery still yields, so the payload never holds less
// than the receiver has already seen.
func (s *Session) complete(ctx context.Context, sink Sink) (Result, error) {
	s.state = StateFinalizing

	buf := s.buf.String()
	final, ok := partialjson.Strict(buf)
	if !ok {
		s.logger.Debug("final strict parse failed, merging last snapshot", "buffer_len", len(buf))
		final = s.differ.Previous().Merge(partialjson.Tolerant(buf))
	}

	payload := final.Map()
	if err := s.emitTerminal(ctx, sink, CompleteEvent(payload)); err != nil {
		return s.severed(err)
	}

	return Result{Outcome: OutcomeComplete, Payload: payload}, nil
}

func (s *Session) fail(ctx context.Context, sink Sink, upstreamErr error) (Result, error) {
	s.state = StateFinalizing

	msg := errorMessage(upstreamErr)
	s.logger.Warn("upstream stream failed", "err", upstreamErr)

	if err := s.emitTerminal(ctx, sink, ErrorEvent(msg)); err != nil {
		res, _ := s.severed(err)
		return res, fmt.Errorf("upstream failed: %w", upstreamErr)
	}

	return Result{
		Outcome: OutcomeError,
		Payload: s.differ.Previous().Map(),
		Message: msg,
	}, fmt.Errorf("upstream failed: %w", upstreamErr)
}

func (s *Session) severed(sinkErr error) (Result, error) {
	s.state = StateTerminated
	s.logger.Warn("receiver transport severed", "err", sinkErr)

	return Result{
		Outcome: OutcomeSevered,
		Payload: s.differ.Previous().Map(),
	}, fmt.Errorf("transport severed: %w", sinkErr)
}

func (s *Session) emit(ctx context.Context, sink Sink, ev Event) error {
	if s.state == StateTerminated {
		return ErrTerminated
	}
	return sink.Emit(ctx, ev)
}

func (s *Session) emitTerminal(ctx context.Context, sink Sink, ev Event) error {
	err := s.emit(ctx, sink, ev)
	s.state = StateTerminated
	return err
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "stream cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "stream timed out waiting for the model"
	default:
		return fmt.Sprintf("model stream failed: %v", err)
	}
}
