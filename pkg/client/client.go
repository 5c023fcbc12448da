// Package client streams thought records from a thoughtstream gateway and
// reconciles them into a working record as events arrive.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/thoughtstream/pkg/logger"
	"github.com/papercomputeco/thoughtstream/pkg/reducer"
	"github.com/papercomputeco/thoughtstream/pkg/sse"
	"github.com/papercomputeco/thoughtstream/pkg/stream"
	"github.com/papercomputeco/thoughtstream/proxy/header"
)

// StreamPath is the gateway route serving thought streams.
const StreamPath = "/v1/thoughts/stream"

// Request is a thought submitted for reframing.
type Request struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`

	// Attribution is sent as headers and never enters the body.
	Attribution header.Attribution `json:"-"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTranscript copies the raw SSE bytes of every stream to w.
func WithTranscript(w io.Writer) Option {
	return func(c *Client) { c.transcript = w }
}

// WithReducerOptions passes options to the Reducer of every stream.
func WithReducerOptions(opts ...reducer.Option) Option {
	return func(c *Client) { c.reducerOpts = append(c.reducerOpts, opts...) }
}

// Client talks to a thoughtstream gateway.
type Client struct {
	target      string
	http        *http.Client
	logger      *slog.Logger
	transcript  io.Writer
	reducerOpts []reducer.Option
}

// New returns a Client for the gateway at target, e.g. "http://localhost:8080".
func New(target string, opts ...Option) *Client {
	c := &Client{
		target: strings.TrimRight(target, "/"),
		http: &http.Client{
			// Model streams can take minutes end to end.
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}
	return c
}

// Stream submits req and reconciles the response into a record built from
// seed, publishing throttled updates to obs. It returns once the record is
// terminal.
//
// The returned record is always usable. When the gateway cannot be reached,
// rejects the request, or drops the stream before a terminal event, the
// record ends with StatusError and keeps every field received so far. The
// error is non-nil only when the request could not be started or was
// rejected.
func (c *Client) Stream(ctx context.Context, req Request, seed reducer.Record, obs reducer.Observer) (reducer.Record, error) {
	opts := append([]reducer.Option{reducer.WithLogger(c.logger)}, c.reducerOpts...)
	red := reducer.New(seed, obs, opts...)

	resp, err := c.post(ctx, req)
	if err != nil {
		red.Abort(err.Error())
		return red.Record(), err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := statusError(resp)
		red.Abort(err.Error())
		return red.Record(), err
	}

	c.consume(resp.Body, red)
	return red.Record(), nil
}

func (c *Client) post(ctx context.Context, req Request) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+StreamPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	req.Attribution.Apply(httpReq)

	c.logger.Debug("sending thought",
		"target", c.target,
		"model", req.Model,
		"prompt_len", len(req.Prompt),
	)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request to gateway: %w", err)
	}
	return resp, nil
}

// consume applies every decodable event to red until a terminal event or the
// end of the body. A stream that ends without a terminal event aborts red.
func (c *Client) consume(body io.Reader, red *reducer.Reducer) {
	reader := sse.NewTeeReader(body, c.transcript)

	for {
		raw, err := reader.Next()
		if err != nil {
			red.Abort(fmt.Sprintf("reading stream: %v", err))
			return
		}
		if raw == nil {
			red.Abort("stream ended before a terminal event")
			return
		}

		var ev stream.Event
		if err := json.Unmarshal([]byte(raw.Data), &ev); err != nil {
			c.logger.Debug("skipping malformed event",
				"err", err,
				"data", raw.Data,
			)
			continue
		}

		red.Apply(ev)
		if ev.Type.Terminal() {
			return
		}
	}
}

// statusError reads an {"error": "..."} body into an error.
func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &body); err == nil && body.Error != "" {
		return &StatusError{Code: resp.StatusCode, Message: body.Error}
	}
	return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(b))}
}

// StatusError is returned when the gateway rejects a request.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned status %d", e.Code)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.Code, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
