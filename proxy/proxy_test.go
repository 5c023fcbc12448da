package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/thoughtstream/pkg/eventstream"
	"github.com/papercomputeco/thoughtstream/pkg/logger"
	"github.com/papercomputeco/thoughtstream/pkg/reducer"
	"github.com/papercomputeco/thoughtstream/pkg/sse"
	"github.com/papercomputeco/thoughtstream/pkg/storage"
	"github.com/papercomputeco/thoughtstream/pkg/storage/inmemory"
	"github.com/papercomputeco/thoughtstream/pkg/stream"
	"github.com/papercomputeco/thoughtstream/proxy/header"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []*eventstream.RecordCompletedEvent
}

func (c *capturePublisher) PublishRecord(_ context.Context, ev *eventstream.RecordCompletedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capturePublisher) Close() error { return nil }

// ollamaLines renders fragments as an Ollama NDJSON chat stream.
func ollamaLines(fragments ...string) string {
	var b strings.Builder
	for _, f := range fragments {
		content, _ := json.Marshal(f)
		fmt.Fprintf(&b, `{"model":"llama3.2","message":{"role":"assistant","content":%s},"done":false}`+"\n", content)
	}
	b.WriteString(`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":42,"eval_count":17}` + "\n")
	return b.String()
}

func newTestProxy(cfg Config) (*Proxy, *inmemory.Driver) {
	driver := inmemory.NewDriver()
	p, err := New(cfg, driver, logger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return p, driver
}

// postThought sends a prompt to the gateway and decodes the SSE response.
func postThought(p *Proxy, body string, headers map[string]string) (*http.Response, []stream.Event) {
	req := httptest.NewRequest(http.MethodPost, StreamPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.server.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())

	var events []stream.Event
	if resp.StatusCode != http.StatusOK {
		resp.Body = io.NopCloser(strings.NewReader(string(raw)))
		return resp, nil
	}

	r := sse.NewReader(strings.NewReader(string(raw)))
	for {
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		if ev == nil {
			break
		}
		var decoded stream.Event
		Expect(json.Unmarshal([]byte(ev.Data), &decoded)).To(Succeed())
		events = append(events, decoded)
	}
	return resp, events
}

func ofType(events []stream.Event, t stream.EventType) []stream.Event {
	var out []stream.Event
	for _, ev := range events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

var _ = Describe("Gateway", func() {
	var (
		p        *Proxy
		driver   *inmemory.Driver
		upstream *httptest.Server
	)

	AfterEach(func() {
		if p != nil {
			p.Close()
			p = nil
		}
		if upstream != nil {
			upstream.Close()
			upstream = nil
		}
	})

	Describe("New", func() {
		It("requires a provider type", func() {
			_, err := New(Config{}, inmemory.NewDriver(), logger.Nop())
			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown providers", func() {
			_, err := New(Config{ProviderType: "palm"}, inmemory.NewDriver(), logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("unknown provider type")))
		})
	})

	It("answers ping", func() {
		p, _ = newTestProxy(Config{ProviderType: "ollama"})
		resp, err := p.server.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("serves Prometheus metrics", func() {
		p, _ = newTestProxy(Config{ProviderType: "ollama"})
		resp, err := p.server.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(err).NotTo(HaveOccurred())
		body, _ := io.ReadAll(resp.Body)
		Expect(string(body)).To(ContainSubstring("go_goroutines"))
	})

	It("rejects a missing prompt", func() {
		p, _ = newTestProxy(Config{ProviderType: "ollama"})
		resp, _ := postThought(p, `{"prompt":"   "}`, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		body, _ := io.ReadAll(resp.Body)
		Expect(body).To(MatchJSON(`{"error":"prompt is required"}`))
	})

	Context("when the upstream streams a record", func() {
		var (
			pub     *capturePublisher
			mu      sync.Mutex
			gotBody map[string]any
			gotUser string
		)

		BeforeEach(func() {
			pub = &capturePublisher{}
			upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				_ = json.NewDecoder(r.Body).Decode(&body)
				mu.Lock()
				gotBody = body
				gotUser = r.Header.Get(header.UserHeader)
				mu.Unlock()

				w.Header().Set("Content-Type", "application/x-ndjson")
				fmt.Fprint(w, ollamaLines(`{"title": "Wo`, `rk", "distortions": ["label`, `ing"], "refra`, `me": "One review is not a career."}`))
			}))
			p, driver = newTestProxy(Config{
				ProviderType: "ollama",
				UpstreamURL:  upstream.URL,
				Model:        "llama3.2",
				Publisher:    pub,
			})
		})

		It("streams chunk and field events and one complete event", func() {
			resp, events := postThought(p, `{"prompt":"I failed my review so I am a failure"}`, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

			Expect(ofType(events, stream.EventChunk)).To(HaveLen(5))
			Expect(ofType(events, stream.EventChunk)[0].ChunkNumber).To(Equal(1))

			fields := ofType(events, stream.EventField)
			Expect(fields).NotTo(BeEmpty())
			Expect(fields[0].Field).To(Equal("title"))

			last := events[len(events)-1]
			Expect(last.Type).To(Equal(stream.EventComplete))
			Expect(last.Object).To(Equal(map[string]any{
				"title":       "Work",
				"distortions": []any{"labeling"},
				"reframe":     "One review is not a career.",
			}))
			Expect(ofType(events, stream.EventComplete)).To(HaveLen(1))
		})

		It("asks the upstream for JSON with the system prompt", func() {
			postThought(p, `{"prompt":"nobody likes me","model":"qwen2.5"}`, map[string]string{header.UserHeader: "ana"})

			mu.Lock()
			defer mu.Unlock()
			Expect(gotBody).To(HaveKeyWithValue("model", "qwen2.5"))
			Expect(gotBody).To(HaveKeyWithValue("format", "json"))
			Expect(gotBody).To(HaveKeyWithValue("stream", true))
			msgs, ok := gotBody["messages"].([]any)
			Expect(ok).To(BeTrue())
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0]).To(HaveKeyWithValue("content", DefaultSystemPrompt))
			Expect(msgs[1]).To(HaveKeyWithValue("content", "nobody likes me"))
			Expect(gotUser).To(Equal("ana"))
		})

		It("stores the record and publishes a completed event", func() {
			postThought(p, `{"prompt":"I failed my review"}`, map[string]string{
				header.UserHeader:   "ana",
				header.ClientHeader: "web",
			})

			// Drain the worker pool to ensure async storage completes
			p.Close()
			p = nil

			recs, err := driver.List(context.Background(), storage.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))

			rec := recs[0]
			Expect(rec.Status).To(Equal(reducer.StatusComplete))
			Expect(rec.Fields).To(HaveKeyWithValue("title", "Work"))
			Expect(rec.Provider).To(Equal("ollama"))
			Expect(rec.Model).To(Equal("llama3.2"))
			Expect(rec.Chunks).To(Equal(5))
			Expect(rec.PromptTokens).To(Equal(42))
			Expect(rec.CompletionTokens).To(Equal(17))
			Expect(rec.Meta).To(HaveKeyWithValue("user", "ana"))

			pub.mu.Lock()
			defer pub.mu.Unlock()
			Expect(pub.events).To(HaveLen(1))
			Expect(pub.events[0].Record.ID).To(Equal(rec.ID))
			Expect(pub.events[0].Source.Client).To(Equal("web"))
			Expect(pub.events[0].Stream.Chunks).To(Equal(5))
		})
	})

	Context("when the upstream rejects the request", func() {
		BeforeEach(func() {
			upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
			}))
			p, driver = newTestProxy(Config{ProviderType: "ollama", UpstreamURL: upstream.URL})
		})

		It("emits exactly one error event", func() {
			resp, events := postThought(p, `{"prompt":"everything goes wrong"}`, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal(stream.EventError))
			Expect(events[0].Text).To(ContainSubstring("404"))
		})

		It("stores an error record with the placeholder result", func() {
			postThought(p, `{"prompt":"everything goes wrong"}`, nil)
			p.Close()
			p = nil

			recs, err := driver.List(context.Background(), storage.ListOptions{Status: reducer.StatusError})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].Fields).To(HaveKeyWithValue("reframe", reducer.ErrorPlaceholder))
			Expect(recs[0].Error).To(ContainSubstring("404"))
		})
	})

	Context("when the upstream drops mid-stream", func() {
		BeforeEach(func() {
			upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/x-ndjson")
				fmt.Fprint(w, `{"model":"llama3.2","message":{"role":"assistant","content":"{\"title\": \"Work\", "},"done":false}`+"\n")
			}))
			p, _ = newTestProxy(Config{ProviderType: "ollama", UpstreamURL: upstream.URL})
		})

		It("keeps streamed fields and ends with an error event", func() {
			_, events := postThought(p, `{"prompt":"I will lose my job"}`, nil)
			Expect(ofType(events, stream.EventField)).To(ContainElement(stream.FieldEvent("title", "Work")))
			Expect(events[len(events)-1].Type).To(Equal(stream.EventError))
			Expect(ofType(events, stream.EventComplete)).To(BeEmpty())
		})
	})

	Context("with an OpenAI upstream", func() {
		var (
			mu      sync.Mutex
			gotAuth string
		)

		BeforeEach(func() {
			upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				gotAuth = r.Header.Get("Authorization")
				mu.Unlock()

				w.Header().Set("Content-Type", "text/event-stream")
				for _, f := range []string{`{\"title\": \"Home`, `\"}`} {
					fmt.Fprintf(w, "data: {\"model\":\"gpt-4o-mini\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"%s\"}}]}\n\n", f)
				}
				fmt.Fprint(w, "data: [DONE]\n\n")
			}))
			p, _ = newTestProxy(Config{ProviderType: "openai", UpstreamURL: upstream.URL, Model: "gpt-4o-mini"})
		})

		It("forwards client credentials and completes the record", func() {
			_, events := postThought(p, `{"prompt":"home is a mess"}`, map[string]string{"Authorization": "Bearer client-key"})
			Expect(events[len(events)-1]).To(Equal(stream.CompleteEvent(map[string]any{"title": "Home"})))

			mu.Lock()
			defer mu.Unlock()
			Expect(gotAuth).To(Equal("Bearer client-key"))
		})
	})

	Context("when the gateway closes while the upstream is still streaming", func() {
		var started chan struct{}

		BeforeEach(func() {
			started = make(chan struct{})
			upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/x-ndjson")
				fmt.Fprint(w, `{"model":"llama3.2","message":{"role":"assistant","content":"{\"title\": \"Work\", "},"done":false}`+"\n")
				w.(http.Flusher).Flush()
				close(started)
				<-r.Context().Done()
			}))
			p, driver = newTestProxy(Config{ProviderType: "ollama", UpstreamURL: upstream.URL})
		})

		It("cancels the session and stores its record without panicking", func() {
			done := make(chan []stream.Event, 1)
			go func() {
				defer GinkgoRecover()
				_, events := postThought(p, `{"prompt":"my manager hates me"}`, nil)
				done <- events
			}()
			Eventually(started).Should(BeClosed())

			Expect(func() { _ = p.Close() }).NotTo(Panic())
			p = nil

			var events []stream.Event
			Eventually(done).Should(Receive(&events))
			Expect(ofType(events, stream.EventField)).To(ContainElement(stream.FieldEvent("title", "Work")))
			Expect(events[len(events)-1].Type).To(Equal(stream.EventError))

			recs, err := driver.List(context.Background(), storage.ListOptions{Status: reducer.StatusError})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].Fields).To(HaveKeyWithValue("title", "Work"))
		})
	})
})
