// Package openai
package openai

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/papercomputeco/thoughtstream/pkg/llm"
)

// DoneSentinel is the data payload OpenAI sends after the final chunk.
const DoneSentinel = "[DONE]"

// provider implements the Provider interface for OpenAI's Chat Completions API.
type provider struct{}

func New() *provider { return &provider{} }

func (o *provider) Name() string {
	return "openai"
}

func (o *provider) DefaultUpstream() string { return "https://api.openai.com/v1" }

func (o *provider) Path() string { return "/chat/completions" }

func (o *provider) Framing() llm.Framing { return llm.FramingSSE }

func (o *provider) SetAuth(h http.Header, apiKey string) {
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
}

func (o *provider) BuildRequest(req *llm.ChatRequest) ([]byte, error) {
	messages := make([]openaiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		messages = append(messages, openaiMessage{Role: msg.Role, Content: msg.Content})
	}

	out := openaiRequest{
		Model:         req.Model,
		Messages:      messages,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		Stream:        true,
		StreamOptions: &openaiStreamOptions{IncludeUsage: true},
	}
	if req.JSONMode {
		out.ResponseFormat = &openaiFormat{Type: "json_object"}
	}

	return json.Marshal(out)
}

func (o *provider) ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	if string(payload) == DoneSentinel {
		return &llm.StreamChunk{Done: true}, nil
	}

	var chunk openaiChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, err
	}
	if chunk.Error != nil {
		return nil, fmt.Errorf("openai stream error: %s", chunk.Error.Message)
	}

	result := &llm.StreamChunk{Model: chunk.Model}
	if len(chunk.Choices) > 0 {
		choice := chunk.Choices[0]
		result.Text = choice.Delta.Content
		if choice.FinishReason != nil {
			result.StopReason = *choice.FinishReason
		}
	}

	// The usage chunk closes the stream when include_usage is set.
	if chunk.Usage != nil {
		result.Usage = &llm.Usage{
			PromptTokens:     chunk.Usage.PromptTokens,
			CompletionTokens: chunk.Usage.CompletionTokens,
			TotalTokens:      chunk.Usage.TotalTokens,
		}
	}

	return result, nil
}
