package cliui_test

import (
	"bytes"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/thoughtstream/pkg/cliui"
	"github.com/papercomputeco/thoughtstream/pkg/reducer"
)

var _ = Describe("cliui", func() {
	rec := reducer.Record{
		ID:     "rec-1",
		Status: reducer.StatusComplete,
		Fields: map[string]any{
			"reframe":     "One review is not a career.",
			"intensity":   0.8,
			"title":       "Work",
			"distortions": []any{"labeling", "overgeneralization"},
		},
	}

	It("orders well-known fields first", func() {
		Expect(cliui.OrderedFields(rec)).To(Equal([]string{"title", "distortions", "reframe", "intensity"}))
	})

	It("formats values on one line", func() {
		Expect(cliui.FormatValue(nil)).To(BeEmpty())
		Expect(cliui.FormatValue([]any{"a", "b"})).To(Equal("a, b"))
		Expect(cliui.FormatValue(map[string]any{"x": 1.0})).To(Equal(`{"x":1}`))
		Expect(cliui.FormatValue(0.8)).To(Equal("0.8"))
	})

	It("renders plain records", func() {
		Expect(cliui.RenderRecordPlain(rec)).To(Equal("id: rec-1\nstatus: complete\n" +
			"title: Work\ndistortions: labeling, overgeneralization\nreframe: One review is not a career.\nintensity: 0.8\n"))
	})

	It("renders styled records with a streaming hint while in progress", func() {
		live := rec.Clone()
		live.Status = reducer.StatusStreaming
		Expect(cliui.RenderRecord(live)).To(ContainSubstring("streaming..."))
		Expect(cliui.RenderRecord(rec)).NotTo(ContainSubstring("streaming..."))
	})

	It("builds markdown for a finished record", func() {
		md := cliui.RecordMarkdown(rec)
		Expect(md).To(HavePrefix("## Work\n"))
		Expect(md).To(ContainSubstring("- labeling\n"))
		Expect(md).To(ContainSubstring("> One review is not a career."))
		Expect(md).To(ContainSubstring("**intensity:** 0.8"))
	})

	It("marks failed records", func() {
		failed := reducer.Record{Status: reducer.StatusError, Error: "model stream failed", Fields: map[string]any{"reframe": "error"}}
		Expect(cliui.RecordMarkdown(failed)).To(ContainSubstring("## Thought record"))
		Expect(cliui.RenderRecordPlain(failed)).To(ContainSubstring("error: model stream failed"))
	})

	Describe("Step", func() {
		It("prints a result mark and passes the error through", func() {
			buf := &bytes.Buffer{}
			err := cliui.Step(buf, "opening store", func() error { return errors.New("boom") })
			Expect(err).To(MatchError("boom"))
			Expect(buf.String()).To(ContainSubstring("opening store"))
			Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
		})

		It("skips the spinner off a terminal", func() {
			buf := &bytes.Buffer{}
			Expect(cliui.Step(buf, "listing", func() error { return nil })).To(Succeed())
			Expect(strings.Count(buf.String(), "listing")).To(Equal(1))
			Expect(cliui.IsTerminal(buf)).To(BeFalse())
		})
	})

	It("formats durations", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})
