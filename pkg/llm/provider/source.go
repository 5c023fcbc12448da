package provider

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/papercomputeco/thoughtstream/pkg/llm"
	"github.com/papercomputeco/thoughtstream/pkg/sse"
)

// UpstreamError is returned when the upstream rejects the request.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// SourceConfig describes one upstream completion.
type SourceConfig struct {
	Provider Provider

	// Upstream is the provider base URL. Empty uses the provider default.
	Upstream string

	// APIKey is applied through Provider.SetAuth.
	APIKey string

	Request *llm.ChatRequest

	// Header, when set, is called on the upstream request before it is sent.
	Header func(*http.Request)

	HTTPClient *http.Client
}

// Source streams text fragments from an upstream provider. The upstream
// request is sent on the first call to Next, so connection failures surface
// as stream errors.
type Source struct {
	cfg SourceConfig

	mu     sync.Mutex
	body   io.ReadCloser
	next   func() ([]byte, error)
	done   bool
	model  string
	stop   string
	usage  llm.Usage
	frames int
}

// NewSource returns a Source for cfg.
func NewSource(cfg SourceConfig) *Source {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Upstream == "" {
		cfg.Upstream = cfg.Provider.DefaultUpstream()
	}
	return &Source{cfg: cfg}
}

// Next returns the next non-empty text fragment, or io.EOF once the
// provider signals the end of the stream. A body that ends without that
// signal yields an error wrapping io.ErrUnexpectedEOF.
func (s *Source) Next(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return "", io.EOF
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if s.body == nil {
		if err := s.open(ctx); err != nil {
			s.done = true
			return "", err
		}
	}

	for {
		frame, err := s.next()
		if err == io.EOF {
			// Every supported provider signals completion in-band, so a
			// body that just ends is a dropped connection.
			s.done = true
			return "", fmt.Errorf("%s stream ended before completion: %w", s.cfg.Provider.Name(), io.ErrUnexpectedEOF)
		}
		if err != nil {
			s.done = true
			return "", fmt.Errorf("reading %s stream: %w", s.cfg.Provider.Name(), err)
		}
		s.frames++

		chunk, err := s.cfg.Provider.ParseStreamChunk(frame)
		if err != nil {
			s.done = true
			return "", err
		}
		if chunk == nil {
			continue
		}

		if chunk.Model != "" {
			s.model = chunk.Model
		}
		if chunk.StopReason != "" {
			s.stop = chunk.StopReason
		}
		s.usage.Add(chunk.Usage)

		if chunk.Done {
			s.done = true
			if chunk.Text != "" {
				return chunk.Text, nil
			}
			return "", io.EOF
		}
		if chunk.Text != "" {
			return chunk.Text, nil
		}
	}
}

// Close releases the upstream connection.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done = true
	if s.body == nil {
		return nil
	}
	return s.body.Close()
}

// Model returns the model reported by the upstream, if any.
func (s *Source) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// StopReason returns the provider's stop reason, if reported.
func (s *Source) StopReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop
}

// Usage returns the token usage accumulated so far.
func (s *Source) Usage() llm.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

func (s *Source) open(ctx context.Context) error {
	prov := s.cfg.Provider

	body, err := prov.BuildRequest(s.cfg.Request)
	if err != nil {
		return fmt.Errorf("building %s request: %w", prov.Name(), err)
	}

	url := strings.TrimRight(s.cfg.Upstream, "/") + prov.Path()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Header != nil {
		s.cfg.Header(req)
	}
	prov.SetAuth(req.Header, s.cfg.APIKey)

	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	s.body = resp.Body
	switch prov.Framing() {
	case llm.FramingNDJSON:
		s.next = ndjsonFrames(resp.Body)
	default:
		s.next = sseFrames(resp.Body)
	}
	return nil
}

func sseFrames(r io.Reader) func() ([]byte, error) {
	reader := sse.NewReader(r)
	return func() ([]byte, error) {
		for {
			ev, err := reader.Next()
			if err != nil {
				return nil, err
			}
			if ev == nil {
				return nil, io.EOF
			}
			if ev.Data == "" {
				continue
			}
			return []byte(ev.Data), nil
		}
	}
}

func ndjsonFrames(r io.Reader) func() ([]byte, error) {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large chunks
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return func() ([]byte, error) {
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			out := make([]byte, len(line))
			copy(out, line)
			return out, nil
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
}
