package stream_test

import (
	"context"
	"errors"
	"io"

	"github.com/papercomputeco/thoughtstream/pkg/stream"
)

// sliceSource yields fragments in order, then err (io.EOF when nil).
type sliceSource struct {
	fragments []string
	err       error
	reads     int
}

func (s *sliceSource) Next(_ context.Context) (string, error) {
	if s.reads < len(s.fragments) {
		f := s.fragments[s.reads]
		s.reads++
		return f, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

// recordingSink stores every event. When failAfter is positive, the sink
// fails every emission after that many successful ones.
type recordingSink struct {
	events    []stream.Event
	failAfter int
	attempts  int
}

var errSevered = errors.New("broken pipe")

func (r *recordingSink) Emit(_ context.Context, ev stream.Event) error {
	r.attempts++
	if r.failAfter > 0 && len(r.events) >= r.failAfter {
		return errSevered
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) ofType(t stream.EventType) []stream.Event {
	var out []stream.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recordingSink) terminals() []int {
	var idx []int
	for i, ev := range r.events {
		if ev.Type.Terminal() {
			idx = append(idx, i)
		}
	}
	return idx
}

// splitEvery cuts s into fragments of n bytes.
func splitEvery(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
