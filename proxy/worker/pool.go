// Package worker provides an asynchronous worker pool for persisting finished
// thought records to a storage.Driver and publishing record-completed events.
//
// The pool decouples storage and publish operations from the gateway's
// streaming hot path so that a slow database never stalls a client stream.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/thoughtstream/pkg/eventstream"
	"github.com/papercomputeco/thoughtstream/pkg/logger"
	"github.com/papercomputeco/thoughtstream/pkg/metrics"
	"github.com/papercomputeco/thoughtstream/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Record storage.Record

	// Event is published after Record is stored. Nil skips publishing.
	Event *eventstream.RecordCompletedEvent
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting records.
	Driver storage.Driver

	// Publisher is the optional event stream publisher.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes storage jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu guards closed. Enqueue holds it for reading so the queue is never
	// closed under a send.
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("worker pool requires a storage driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: log,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		metrics.WorkerFailed(metrics.StageEnqueue)
		p.logger.Error("job not queued, pool closed, job dropped",
			"record_id", job.Record.ID,
			"provider", job.Record.Provider,
		)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"record_id", job.Record.ID,
			"status", job.Record.Status,
		)
		return true
	default:
		metrics.WorkerFailed(metrics.StageEnqueue)
		p.logger.Error("job not queued, queue full, job dropped",
			"record_id", job.Record.ID,
			"provider", job.Record.Provider,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the gateway HTTP server has stopped.
// Jobs enqueued after Close are dropped. Close may be called more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("storage worker stopped", "worker_id", id)
}

// processJob stores the record and, once stored, publishes its event. A
// publish failure is logged and never rolls back the stored record.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	rec := job.Record
	if err := p.config.Driver.Put(ctx, &rec); err != nil {
		metrics.WorkerFailed(metrics.StagePersist)
		p.logger.Error("async record storage failed",
			"record_id", rec.ID,
			"provider", rec.Provider,
			"err", err,
		)
		return
	}

	p.logger.Info("record stored",
		"record_id", rec.ID,
		"status", rec.Status,
		"provider", rec.Provider,
	)

	if job.Event == nil || p.config.Publisher == nil {
		return
	}

	if err := p.config.Publisher.PublishRecord(ctx, job.Event); err != nil {
		metrics.WorkerFailed(metrics.StagePublish)
		p.logger.Warn("failed to publish record event",
			"record_id", rec.ID,
			"event_id", job.Event.EventID,
			"err", err,
		)
		return
	}

	p.logger.Debug("record event published",
		"record_id", rec.ID,
		"event_id", job.Event.EventID,
	)
}
