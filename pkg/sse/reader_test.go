package sse

import (
	"bufio"
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TeeReader", func() {
	var dst *bytes.Buffer

	BeforeEach(func() {
		dst = &bytes.Buffer{}
	})

	drain := func(r *TeeReader) []*Event {
		var out []*Event
		for {
			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			if ev == nil {
				return out
			}
			out = append(out, ev)
		}
	}

	Context("with gateway envelopes", func() {
		It("parses one event per blank-line block", func() {
			input := "data: {\"type\":\"chunk\",\"content\":\"{\\\"ti\",\"chunkNumber\":1}\n\n" +
				"data: {\"type\":\"field\",\"field\":\"title\",\"value\":\"Work\"}\n\n" +
				"data: {\"type\":\"complete\",\"content\":{\"title\":\"Work\"}}\n\n"

			events := drain(NewTeeReader(strings.NewReader(input), dst))
			Expect(events).To(HaveLen(3))
			Expect(events[1].Data).To(Equal(`{"type":"field","field":"title","value":"Work"}`))
			Expect(events[2].Type).To(BeEmpty())
		})

		It("copies the raw transcript verbatim", func() {
			input := ": keep-alive\n\ndata: {\"type\":\"chunk\"}\n\ndata: {\"type\":\"complete\",\"content\":{}}\n\n"
			drain(NewTeeReader(strings.NewReader(input), dst))
			Expect(dst.String()).To(Equal(input))
		})
	})

	Context("with upstream provider streams", func() {
		It("parses OpenAI chunks and the DONE sentinel", func() {
			input := "data: {\"choices\":[{\"delta\":{\"content\":\"{\\\"title\"}}]}\n\n" +
				"data: [DONE]\n\n"

			events := drain(NewReader(strings.NewReader(input)))
			Expect(events).To(HaveLen(2))
			Expect(events[0].Data).To(ContainSubstring(`"delta"`))
			Expect(events[1].Data).To(Equal("[DONE]"))
		})

		It("parses Anthropic event types and ids", func() {
			input := "event: content_block_delta\nid: 7\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"Hi\"}}\n\n" +
				"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"

			events := drain(NewTeeReader(strings.NewReader(input), dst))
			Expect(events).To(HaveLen(2))
			Expect(events[0].Type).To(Equal("content_block_delta"))
			Expect(events[0].ID).To(Equal("7"))
			Expect(events[1].Type).To(Equal("message_stop"))
		})
	})

	Context("edge cases", func() {
		It("joins multiple data lines with a newline", func() {
			events := drain(NewReader(strings.NewReader("data: line1\ndata: line2\n\n")))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("line1\nline2"))
		})

		It("accepts a data field without a space after the colon", func() {
			events := drain(NewReader(strings.NewReader("data:hello\n\n")))
			Expect(events[0].Data).To(Equal("hello"))
		})

		It("skips comments, unknown fields and leading blank lines", func() {
			events := drain(NewReader(strings.NewReader("\n\n: ping\nretry: 3000\nfoo: bar\ndata: hello\n\n")))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("hello"))
		})

		It("returns nil on empty or blank input", func() {
			Expect(drain(NewReader(strings.NewReader("")))).To(BeEmpty())
			Expect(drain(NewReader(strings.NewReader("\n\n\n")))).To(BeEmpty())
		})

		It("yields an event when the stream ends without a trailing blank line", func() {
			events := drain(NewReader(strings.NewReader("data: unterminated")))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("unterminated"))
		})

		It("treats a line without a colon as a field with an empty value", func() {
			events := drain(NewReader(strings.NewReader("data\n\n")))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(BeEmpty())
		})
	})

	Context("with long lines", func() {
		It("reads a data line larger than a megabyte", func() {
			payload := `{"reframe":"` + strings.Repeat("a", 3*1024*1024) + `"}`
			events := drain(NewReader(strings.NewReader("data: " + payload + "\n\n")))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal(payload))
		})

		It("fails with ErrTooLong past the configured limit", func() {
			r := NewTeeReaderSize(strings.NewReader("data: "+strings.Repeat("a", 2048)+"\n\n"), nil, 1024)
			_, err := r.Next()
			Expect(err).To(MatchError(bufio.ErrTooLong))
			Expect(err).To(MatchError(ContainSubstring("exceeds 1024 bytes")))
		})

		It("uses the default limit for a non-positive size", func() {
			r := NewTeeReaderSize(strings.NewReader("data: x\n\n"), nil, 0)
			Expect(r.maxLine).To(Equal(DefaultMaxLineSize))
			Expect(drain(r)).To(HaveLen(1))
		})
	})
})
