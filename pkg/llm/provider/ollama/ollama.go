package ollama

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/papercomputeco/thoughtstream/pkg/llm"
)

// provider implements the Provider interface for Ollama's chat API.
type provider struct{}

func New() *provider { return &provider{} }

func (o *provider) Name() string {
	return "ollama"
}

func (o *provider) DefaultUpstream() string { return "http://localhost:11434" }

func (o *provider) Path() string { return "/api/chat" }

func (o *provider) Framing() llm.Framing { return llm.FramingNDJSON }

// SetAuth sets a bearer token for Ollama instances behind an authenticating
// reverse proxy.
func (o *provider) SetAuth(h http.Header, apiKey string) {
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
}

func (o *provider) BuildRequest(req *llm.ChatRequest) ([]byte, error) {
	messages := make([]ollamaMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		messages = append(messages, ollamaMessage{Role: msg.Role, Content: msg.Content})
	}

	out := ollamaRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
	}
	if req.JSONMode {
		out.Format = "json"
	}
	if req.Temperature != nil || req.MaxTokens != nil {
		out.Options = &ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}

	return json.Marshal(out)
}

func (o *provider) ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	var chunk ollamaChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, err
	}
	if chunk.Error != "" {
		return nil, errors.New("ollama stream error: " + chunk.Error)
	}

	result := &llm.StreamChunk{
		Model:      chunk.Model,
		Text:       chunk.Message.Content,
		Done:       chunk.Done,
		StopReason: chunk.DoneReason,
	}

	// Ollama includes usage in the final line only.
	if chunk.Done {
		result.Usage = &llm.Usage{
			PromptTokens:     chunk.PromptEvalCount,
			CompletionTokens: chunk.EvalCount,
			TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
		}
	}

	return result, nil
}
