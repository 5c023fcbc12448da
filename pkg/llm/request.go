package llm

// ChatRequest represents a provider-agnostic streaming chat request. Each
// provider encodes it into its own wire format.
type ChatRequest struct {
	// Model name (e.g., "gpt-4o-mini", "claude-3-5-haiku-latest", "llama3.2")
	Model string `json:"model"`

	// System prompt. Providers that take it as a message prepend it.
	System string `json:"system,omitempty"`

	// Conversation messages
	Messages []Message `json:"messages"`

	// Generation parameters
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`

	// JSONMode asks the provider to constrain output to a JSON object when it
	// supports doing so.
	JSONMode bool `json:"json_mode,omitempty"`
}
