// Package provider adapts upstream LLM streaming APIs into plain text
// fragments for the thoughtstream emitter.
package provider

import (
	"net/http"

	"github.com/papercomputeco/thoughtstream/pkg/llm"
)

// Provider defines how to talk to one streaming chat API.
type Provider interface {
	// Name returns the canonical provider name (e.g., "anthropic", "openai", "ollama")
	Name() string

	// DefaultUpstream returns the base URL used when none is configured.
	DefaultUpstream() string

	// Path returns the streaming chat endpoint, relative to the upstream.
	Path() string

	// Framing returns how the stream response is framed.
	Framing() llm.Framing

	// BuildRequest encodes a streaming request body.
	BuildRequest(req *llm.ChatRequest) ([]byte, error)

	// SetAuth sets credentials for apiKey on an upstream request. An empty
	// key leaves the request untouched.
	SetAuth(h http.Header, apiKey string)

	// ParseStreamChunk decodes a single stream frame. It returns (nil, nil)
	// if the frame should be skipped, and an error if the frame reports an
	// upstream failure or cannot be decoded.
	ParseStreamChunk(payload []byte) (*llm.StreamChunk, error)
}
