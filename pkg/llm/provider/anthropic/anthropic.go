// Package anthropic
package anthropic

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/papercomputeco/thoughtstream/pkg/llm"
)

const (
	// APIVersion is sent as the anthropic-version header.
	APIVersion = "2023-06-01"

	// defaultMaxTokens is used when the request does not set one. The
	// Messages API requires max_tokens.
	defaultMaxTokens = 1024
)

// provider implements the Provider interface for Anthropic's Messages API.
type provider struct{}

func New() *provider { return &provider{} }

func (p *provider) Name() string {
	return "anthropic"
}

func (p *provider) DefaultUpstream() string { return "https://api.anthropic.com" }

func (p *provider) Path() string { return "/v1/messages" }

func (p *provider) Framing() llm.Framing { return llm.FramingSSE }

func (p *provider) SetAuth(h http.Header, apiKey string) {
	if apiKey != "" {
		h.Set("X-Api-Key", apiKey)
	}
	if h.Get("Anthropic-Version") == "" {
		h.Set("Anthropic-Version", APIVersion)
	}
}

func (p *provider) BuildRequest(req *llm.ChatRequest) ([]byte, error) {
	messages := make([]anthropicMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		// Anthropic takes the system prompt as a top-level field.
		if msg.Role == "system" {
			continue
		}
		messages = append(messages, anthropicMessage{Role: msg.Role, Content: msg.Content})
	}

	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	return json.Marshal(anthropicRequest{
		Model:       req.Model,
		Messages:    messages,
		System:      req.System,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Stream:      true,
	})
}

// ParseStreamChunk decodes one Messages API stream event. Usage is split
// across message_start (input tokens) and message_delta (output tokens).
func (p *provider) ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	var ev anthropicEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}

	switch ev.Type {
	case "message_start":
		chunk := &llm.StreamChunk{}
		if ev.Message != nil {
			chunk.Model = ev.Message.Model
			chunk.Usage = convertUsage(ev.Message.Usage)
		}
		return chunk, nil

	case "content_block_delta":
		if ev.Delta == nil || ev.Delta.Type != "text_delta" {
			return nil, nil
		}
		return &llm.StreamChunk{Text: ev.Delta.Text}, nil

	case "message_delta":
		chunk := &llm.StreamChunk{Usage: convertUsage(ev.Usage)}
		if ev.Delta != nil {
			chunk.StopReason = ev.Delta.StopReason
		}
		return chunk, nil

	case "message_stop":
		return &llm.StreamChunk{Done: true}, nil

	case "error":
		msg := "unknown error"
		if ev.Error != nil {
			msg = ev.Error.Message
		}
		return nil, fmt.Errorf("anthropic stream error: %s", msg)

	default:
		// ping, content_block_start, content_block_stop
		return nil, nil
	}
}

func convertUsage(u *anthropicUsage) *llm.Usage {
	if u == nil {
		return nil
	}
	return &llm.Usage{
		PromptTokens:             u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens,
		CompletionTokens:         u.OutputTokens,
		CacheCreationInputTokens: u.CacheCreationInputTokens,
		CacheReadInputTokens:     u.CacheReadInputTokens,
	}
}
