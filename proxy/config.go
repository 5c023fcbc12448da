package proxy

import (
	"time"

	"github.com/papercomputeco/thoughtstream/pkg/eventstream"
)

// DefaultSystemPrompt asks the model for a single thought record.
const DefaultSystemPrompt = `You help people reframe an unhelpful thought.
Reply with one JSON object and nothing else. Use these keys:
"title": a short label for the thought,
"distortions": an array of the cognitive distortions it shows,
"reframe": a kinder, more balanced way to hold the thought.`

// DefaultStreamTimeout bounds one upstream completion.
const DefaultStreamTimeout = 5 * time.Minute

// Config is the gateway server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// ProviderType specifies the LLM provider type (e.g., "anthropic", "openai", "ollama")
	// This determines how upstream requests are built and streams are parsed.
	ProviderType string

	// UpstreamURL is the upstream LLM provider URL (e.g., "http://localhost:11434").
	// Empty uses the provider default.
	UpstreamURL string

	// APIKey is the upstream credential. When empty, credential headers sent
	// by the client are forwarded instead.
	APIKey string

	// Model is used when a request does not name one.
	Model string

	// SystemPrompt replaces DefaultSystemPrompt when set.
	SystemPrompt string

	// ResultFields are replaced with the error placeholder in stored records
	// of failed sessions. Nil uses the reducer default.
	ResultFields []string

	// StreamTimeout bounds one upstream completion. Zero uses DefaultStreamTimeout.
	StreamTimeout time.Duration

	// Publisher is an optional event stream publisher for completed records.
	// If nil, publishing is disabled.
	Publisher eventstream.Publisher
}

func (c Config) systemPrompt() string {
	if c.SystemPrompt != "" {
		return c.SystemPrompt
	}
	return DefaultSystemPrompt
}

func (c Config) streamTimeout() time.Duration {
	if c.StreamTimeout > 0 {
		return c.StreamTimeout
	}
	return DefaultStreamTimeout
}
