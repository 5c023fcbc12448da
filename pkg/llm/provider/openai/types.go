package openai

// openaiRequest represents OpenAI's streaming Chat Completions request.
type openaiRequest struct {
	Model          string               `json:"model"`
	Messages       []openaiMessage      `json:"messages"`
	MaxTokens      *int                 `json:"max_tokens,omitempty"`
	Temperature    *float64             `json:"temperature,omitempty"`
	Stream         bool                 `json:"stream"`
	StreamOptions  *openaiStreamOptions `json:"stream_options,omitempty"`
	ResponseFormat *openaiFormat        `json:"response_format,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openaiFormat struct {
	Type string `json:"type"`
}

// openaiChunk represents one chat.completion.chunk SSE payload.
type openaiChunk struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *openaiUsage `json:"usage,omitempty"`

	// Error is set when the upstream aborts mid-stream.
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
