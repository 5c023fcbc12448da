// Package proxy provides the streaming gateway: it asks an upstream LLM for a
// JSON thought record and streams field-level change events to the client
// as server-sent events while the record is still being generated.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/papercomputeco/thoughtstream/pkg/eventstream"
	"github.com/papercomputeco/thoughtstream/pkg/llm"
	"github.com/papercomputeco/thoughtstream/pkg/llm/provider"
	"github.com/papercomputeco/thoughtstream/pkg/metrics"
	"github.com/papercomputeco/thoughtstream/pkg/reducer"
	"github.com/papercomputeco/thoughtstream/pkg/sse"
	"github.com/papercomputeco/thoughtstream/pkg/storage"
	"github.com/papercomputeco/thoughtstream/pkg/stream"
	"github.com/papercomputeco/thoughtstream/pkg/telemetry"
	"github.com/papercomputeco/thoughtstream/proxy/header"
	"github.com/papercomputeco/thoughtstream/proxy/worker"
)

// StreamPath is the route serving thought streams.
const StreamPath = "/v1/thoughts/stream"

// severedReason is recorded on sessions whose client went away.
const severedReason = "client disconnected before the record completed"

// Proxy is the streaming gateway. Each request runs one stream.Session
// against the configured upstream provider; finished records are enqueued
// for async storage and publishing via its worker pool.
type Proxy struct {
	config        Config
	driver        storage.Driver
	workerPool    *worker.Pool
	logger        *slog.Logger
	httpClient    *http.Client
	server        *fiber.App
	prov          provider.Provider
	headerHandler *header.Handler

	// Sessions outlive their handlers. Close cancels them through ctx and
	// waits on sessions before the worker pool stops taking jobs.
	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
	closing  sync.Once
}

// streamRequest is the client request body.
type streamRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

// New creates a new Proxy.
// The driver is injected to handle async persistence of finished records.
// Returns an error if the configured provider type is not recognized.
func New(config Config, driver storage.Driver, logger *slog.Logger) (*Proxy, error) {
	if config.ProviderType == "" {
		return nil, errors.New("provider type is required")
	}

	prov, err := provider.New(config.ProviderType)
	if err != nil {
		return nil, fmt.Errorf("could not create new provider: %w", err)
	}

	wp, err := worker.NewPool(&worker.Config{
		Driver:    driver,
		Publisher: config.Publisher,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	ctx, cancel := context.WithCancel(context.Background())

	p := &Proxy{
		ctx:           ctx,
		cancel:        cancel,
		config:        config,
		driver:        driver,
		workerPool:    wp,
		logger:        logger,
		server:        app,
		prov:          prov,
		headerHandler: header.NewHandler(),
		httpClient: &http.Client{
			Timeout: config.streamTimeout(),
		},
	}

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	app.Post(StreamPath, p.handleStream)

	return p, nil
}

// Run starts the gateway server on the given listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting gateway server",
		"listen", p.config.ListenAddr,
		"provider", p.prov.Name(),
		"upstream", p.upstream(),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener starts the gateway server using the provided listener.
func (p *Proxy) RunWithListener(listener net.Listener) error {
	p.logger.Info("starting gateway server",
		"listen", listener.Addr().String(),
		"provider", p.prov.Name(),
		"upstream", p.upstream(),
	)

	return p.server.Listener(listener)
}

// Close shuts down the gateway. Sessions still streaming are cancelled and
// end with an error event; their records are enqueued before the worker
// pool drains. Close is safe to call more than once.
func (p *Proxy) Close() error {
	var err error
	p.closing.Do(func() {
		p.cancel()
		err = p.server.Shutdown()
		p.sessions.Wait()
		p.workerPool.Close()
	})
	return err
}

func (p *Proxy) upstream() string {
	if p.config.UpstreamURL != "" {
		return p.config.UpstreamURL
	}
	return p.prov.DefaultUpstream()
}

func (p *Proxy) handleStream(c *fiber.Ctx) error {
	if p.ctx.Err() != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: "gateway is shutting down"})
	}

	var body streamRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}
	body.Prompt = strings.TrimSpace(body.Prompt)
	if body.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "prompt is required"})
	}

	model := body.Model
	if model == "" {
		model = p.config.Model
	}

	seed := reducer.NewSeed()
	attr := p.headerHandler.Attribution(c)
	seed.Meta = attr.Meta()

	// The Fiber context is recycled once this handler returns, so everything
	// the session goroutine needs is copied out of it here.
	forwarded := p.headerHandler.Forwarded(c)

	src := provider.NewSource(provider.SourceConfig{
		Provider: p.prov,
		Upstream: p.config.UpstreamURL,
		APIKey:   p.config.APIKey,
		Request: &llm.ChatRequest{
			Model:    model,
			System:   p.config.systemPrompt(),
			Messages: []llm.Message{llm.NewTextMessage("user", body.Prompt)},
			JSONMode: true,
		},
		Header: func(req *http.Request) {
			header.ApplyForwarded(forwarded, req)
			attr.Apply(req)
		},
		HTTPClient: p.httpClient,
	})

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// Use io.Pipe + SetBodyStream instead of SetBodyStreamWriter.
	// SetBodyStreamWriter buffers through an internal channel, so Flush in
	// the callback does not reach the TCP socket. With io.Pipe, pw.Write
	// blocks until fasthttp's chunked writer consumes and flushes the data,
	// which gives per-event streaming and direct backpressure.
	pr, pw := io.Pipe()
	p.sessions.Add(1)
	go func() {
		defer p.sessions.Done()
		p.runSession(pw, src, seed, model, attr)
	}()

	// Set the pipe reader as the body stream with unknown size (-1),
	// which triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// runSession drives one session to its terminal event and enqueues the
// resulting record.
func (p *Proxy) runSession(pw *io.PipeWriter, src *provider.Source, seed reducer.Record, model string, attr header.Attribution) {
	defer pw.Close()
	defer src.Close()

	// Derive from the gateway context instead of the request context because
	// fasthttp recycles its RequestCtx after the handler returns while the
	// session is still streaming.
	ctx, cancel := context.WithTimeout(p.ctx, p.config.streamTimeout())
	defer cancel()

	ctx, span := telemetry.Tracer().Start(ctx, "stream.session")
	defer span.End()
	span.SetAttributes(
		attribute.String("thoughtstream.record_id", seed.ID),
		attribute.String("thoughtstream.provider", p.prov.Name()),
		attribute.String("thoughtstream.model", model),
	)

	log := p.logger.With("provider", p.prov.Name(), "model", model)
	if attr.RequestID != "" {
		log = log.With("request_id", attr.RequestID)
	}

	opts := []reducer.Option{reducer.WithInterval(0), reducer.WithLogger(log)}
	if p.config.ResultFields != nil {
		opts = append(opts, reducer.WithResultFields(p.config.ResultFields...))
	}
	red := reducer.New(seed, nil, opts...)

	sink := &recordSink{w: sse.NewWriter(pw), red: red}
	session := stream.NewSession(seed.ID, log)

	started := time.Now().UTC()
	metrics.SessionStarted(p.prov.Name())

	res, err := session.Run(ctx, src, sink)
	if res.Outcome == stream.OutcomeSevered {
		red.Abort(severedReason)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(res.Outcome))
	}
	span.SetAttributes(
		attribute.String("thoughtstream.outcome", string(res.Outcome)),
		attribute.Int("thoughtstream.chunks", res.Chunks),
		attribute.Int("thoughtstream.fields", res.Fields),
	)

	metrics.SessionFinished(p.prov.Name(), string(res.Outcome), res.Duration.Seconds(), res.Chunks, res.Fields)

	if upstreamModel := src.Model(); upstreamModel != "" {
		model = upstreamModel
	}
	usage := src.Usage()

	rec := storage.Record{
		Record:           red.Record(),
		Provider:         p.prov.Name(),
		Model:            model,
		Chunks:           res.Chunks,
		DurationMs:       res.Duration.Milliseconds(),
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
	}

	job := worker.Job{Record: rec}
	if res.Outcome == stream.OutcomeComplete {
		job.Event = eventstream.NewRecordCompletedEvent(rec.Record,
			eventstream.EventSource{
				Provider: p.prov.Name(),
				Model:    model,
				User:     attr.User,
				Client:   attr.Client,
			},
			eventstream.StreamMeta{
				SessionID:   session.ID(),
				StartedAt:   started,
				CompletedAt: started.Add(res.Duration),
				DurationMs:  res.Duration.Milliseconds(),
				Chunks:      res.Chunks,
				Fields:      res.Fields,
			},
		)
	}

	p.workerPool.Enqueue(job)
}

// recordSink writes events to the client and folds them into the record
// that is persisted once the session ends.
type recordSink struct {
	w   *sse.Writer
	red *reducer.Reducer
}

func (s *recordSink) Emit(_ context.Context, ev stream.Event) error {
	if err := s.w.WriteJSON(ev); err != nil {
		return err
	}
	s.red.Apply(ev)
	return nil
}
