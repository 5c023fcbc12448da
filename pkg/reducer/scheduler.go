package reducer

import (
	"sync"
	"time"
)

// DefaultInterval is the minimum spacing between throttled publishes.
const DefaultInterval = 100 * time.Millisecond

// Scheduler coalesces updates and publishes at most one per interval. The
// first update of a quiet period is published immediately. Updates arriving
// inside the interval replace each other, and the latest is published when
// the interval elapses.
//
// The publish callback runs with the scheduler lock held, so publishes never
// overlap and never run after Cancel returns. It must not call back into the
// Scheduler.
type Scheduler[T any] struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	publish  func(T)

	pending    T
	hasPending bool

	timer Timer
	// gen invalidates callbacks of timers that were stopped too late.
	gen       uint64
	cancelled bool
}

// NewScheduler returns a Scheduler calling publish. A nil clock uses the wall
// clock. A non-positive interval disables coalescing.
func NewScheduler[T any](clock Clock, interval time.Duration, publish func(T)) *Scheduler[T] {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler[T]{
		clock:    clock,
		interval: interval,
		publish:  publish,
	}
}

// Schedule submits an update.
func (s *Scheduler[T]) Schedule(update T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return
	}

	if s.timer != nil {
		s.pending = update
		s.hasPending = true
		return
	}

	s.publish(update)
	s.arm()
}

// FlushNow publishes the pending update, if any, before returning and ends
// the current interval.
func (s *Scheduler[T]) FlushNow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return
	}

	s.disarm()
	if s.hasPending {
		update := s.take()
		s.publish(update)
	}
}

// Cancel drops any pending update. Nothing is published afterwards.
func (s *Scheduler[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelled = true
	s.disarm()
	s.take()
}

func (s *Scheduler[T]) arm() {
	if s.interval <= 0 {
		return
	}
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.interval, func() { s.fire(gen) })
}

func (s *Scheduler[T]) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler[T]) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled || gen != s.gen {
		return
	}

	s.timer = nil
	if !s.hasPending {
		return
	}

	update := s.take()
	s.publish(update)
	s.arm()
}

func (s *Scheduler[T]) take() T {
	var zero T
	update := s.pending
	s.pending = zero
	s.hasPending = false
	return update
}
