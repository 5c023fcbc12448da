package openai_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/thoughtstream/pkg/llm"
	"github.com/papercomputeco/thoughtstream/pkg/llm/provider/openai"
)

var _ = Describe("OpenAI Provider", func() {
	It("describes the chat completions endpoint", func() {
		p := openai.New()
		Expect(p.Name()).To(Equal("openai"))
		Expect(p.DefaultUpstream()).To(Equal("https://api.openai.com/v1"))
		Expect(p.Path()).To(Equal("/chat/completions"))
		Expect(p.Framing()).To(Equal(llm.FramingSSE))
	})

	Describe("BuildRequest", func() {
		It("prepends the system prompt and requests a JSON stream", func() {
			body, err := openai.New().BuildRequest(&llm.ChatRequest{
				Model:    "gpt-4o-mini",
				System:   "Reply in JSON.",
				Messages: []llm.Message{llm.NewTextMessage("user", "I always fail")},
				JSONMode: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(MatchJSON(`{
				"model": "gpt-4o-mini",
				"messages": [
					{"role": "system", "content": "Reply in JSON."},
					{"role": "user", "content": "I always fail"}
				],
				"stream": true,
				"stream_options": {"include_usage": true},
				"response_format": {"type": "json_object"}
			}`))
		})

		It("omits the response format outside JSON mode", func() {
			body, err := openai.New().BuildRequest(&llm.ChatRequest{Model: "gpt-4o"})
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).NotTo(ContainSubstring("response_format"))
		})
	})

	It("sets a bearer token", func() {
		h := http.Header{}
		openai.New().SetAuth(h, "sk-test")
		Expect(h.Get("Authorization")).To(Equal("Bearer sk-test"))

		h = http.Header{}
		openai.New().SetAuth(h, "")
		Expect(h).To(BeEmpty())
	})

	Describe("ParseStreamChunk", func() {
		It("extracts delta content", func() {
			chunk, err := openai.New().ParseStreamChunk([]byte(`{"id":"c1","object":"chat.completion.chunk","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"{\"ti"},"finish_reason":null}]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Text).To(Equal(`{"ti`))
			Expect(chunk.Model).To(Equal("gpt-4o-mini"))
			Expect(chunk.Done).To(BeFalse())
		})

		It("reads the finish reason and usage", func() {
			chunk, err := openai.New().ParseStreamChunk([]byte(`{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.StopReason).To(Equal("stop"))
			Expect(chunk.Usage.TotalTokens).To(Equal(15))
		})

		It("treats the DONE sentinel as the final chunk", func() {
			chunk, err := openai.New().ParseStreamChunk([]byte("[DONE]"))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Done).To(BeTrue())
		})

		It("surfaces mid-stream errors", func() {
			_, err := openai.New().ParseStreamChunk([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			Expect(err).To(MatchError(ContainSubstring("overloaded")))
		})

		It("rejects undecodable frames", func() {
			_, err := openai.New().ParseStreamChunk([]byte(`{"choices":`))
			Expect(err).To(HaveOccurred())
		})
	})
})
