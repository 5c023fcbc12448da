package ollama_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/thoughtstream/pkg/llm"
	"github.com/papercomputeco/thoughtstream/pkg/llm/provider/ollama"
)

var _ = Describe("Ollama Provider", func() {
	It("streams NDJSON from /api/chat", func() {
		p := ollama.New()
		Expect(p.Name()).To(Equal("ollama"))
		Expect(p.Path()).To(Equal("/api/chat"))
		Expect(p.Framing()).To(Equal(llm.FramingNDJSON))
	})

	Describe("BuildRequest", func() {
		It("requests JSON format with the system prompt first", func() {
			temp := 0.2
			body, err := ollama.New().BuildRequest(&llm.ChatRequest{
				Model:       "llama3.2",
				System:      "Reply in JSON.",
				Messages:    []llm.Message{llm.NewTextMessage("user", "I always fail")},
				Temperature: &temp,
				JSONMode:    true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(MatchJSON(`{
				"model": "llama3.2",
				"messages": [
					{"role": "system", "content": "Reply in JSON."},
					{"role": "user", "content": "I always fail"}
				],
				"stream": true,
				"format": "json",
				"options": {"temperature": 0.2}
			}`))
		})
	})

	Describe("ParseStreamChunk", func() {
		It("extracts message content", func() {
			chunk, err := ollama.New().ParseStreamChunk([]byte(`{"model":"llama3.2","created_at":"2026-01-01T00:00:00Z","message":{"role":"assistant","content":"{\"ti"},"done":false}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Text).To(Equal(`{"ti`))
			Expect(chunk.Done).To(BeFalse())
			Expect(chunk.Usage).To(BeNil())
		})

		It("reads usage from the final line", func() {
			chunk, err := ollama.New().ParseStreamChunk([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":26,"eval_count":290}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(chunk.Done).To(BeTrue())
			Expect(chunk.StopReason).To(Equal("stop"))
			Expect(chunk.Usage.TotalTokens).To(Equal(316))
		})

		It("surfaces stream errors", func() {
			_, err := ollama.New().ParseStreamChunk([]byte(`{"error":"model not found"}`))
			Expect(err).To(MatchError(ContainSubstring("model not found")))
		})
	})
})
