package llm

// StreamChunk represents a single decoded frame of a provider stream.
type StreamChunk struct {
	// Model that generated the chunk
	Model string `json:"model,omitempty"`

	// Text generated in this chunk, possibly empty
	Text string `json:"text,omitempty"`

	// Whether this is the final chunk
	Done bool `json:"done,omitempty"`

	// Stop reason (only present on final chunk)
	StopReason string `json:"stop_reason,omitempty"`

	// Usage metrics (typically only present on final chunk)
	Usage *Usage `json:"usage,omitempty"`
}

// Framing is the wire framing of a provider stream response.
type Framing int

const (
	// FramingSSE streams text/event-stream events (OpenAI, Anthropic).
	FramingSSE Framing = iota

	// FramingNDJSON streams one JSON object per line (Ollama).
	FramingNDJSON
)
