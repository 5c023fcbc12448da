package reducer_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/thoughtstream/pkg/reducer"
	"github.com/papercomputeco/thoughtstream/pkg/stream"
)

var _ = Describe("Reducer", func() {
	var (
		clock *manualClock
		obs   *recorder
		seed  reducer.Record
		r     *reducer.Reducer
	)

	BeforeEach(func() {
		clock = &manualClock{}
		obs = &recorder{}
		seed = reducer.Record{
			ID:        "rec-1",
			CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Fields:    map[string]any{"thought": "I always fail"},
		}
		r = reducer.New(seed, obs, reducer.WithClock(clock))
	})

	It("starts from the seed in streaming status", func() {
		rec := r.Record()
		Expect(rec.ID).To(Equal("rec-1"))
		Expect(rec.Status).To(Equal(reducer.StatusStreaming))
		Expect(rec.Fields).To(HaveKeyWithValue("thought", "I always fail"))
	})

	It("keeps chunks in the transcript without publishing", func() {
		r.Apply(stream.ChunkEvent(`{"ti`, 1))
		r.Apply(stream.ChunkEvent(`tle"`, 2))
		Expect(r.Transcript()).To(Equal(`{"title"`))
		Expect(obs.All()).To(BeEmpty())
	})

	It("publishes field updates with leading and trailing throttling", func() {
		r.Apply(stream.FieldEvent("title", "Work"))
		r.Apply(stream.FieldEvent("distortions", []any{"labeling"}))
		r.Apply(stream.FieldEvent("reframe", "One setback"))

		Expect(obs.All()).To(HaveLen(1))
		Expect(obs.Last().Fields).To(HaveKeyWithValue("title", "Work"))

		clock.Advance(reducer.DefaultInterval)
		Expect(obs.All()).To(HaveLen(2))
		Expect(obs.Last().Fields).To(HaveKeyWithValue("reframe", "One setback"))
		Expect(obs.Last().Fields).To(HaveKey("distortions"))
	})

	It("never loses a key between publishes", func() {
		for _, f := range []string{"a", "b", "c", "d", "e"} {
			r.Apply(stream.FieldEvent(f, f))
			clock.Advance(30 * time.Millisecond)
		}
		clock.Advance(time.Second)

		prev := 0
		for _, rec := range obs.All() {
			Expect(len(rec.Fields)).To(BeNumerically(">=", prev))
			prev = len(rec.Fields)
		}
		Expect(obs.Last().Fields).To(HaveLen(6))
	})

	It("shallow-merges object values and overwrites everything else", func() {
		r.Apply(stream.FieldEvent("scores", map[string]any{"a": 1.0}))
		r.Apply(stream.FieldEvent("scores", map[string]any{"b": 2.0}))
		r.Apply(stream.FieldEvent("title", "Wo"))
		r.Apply(stream.FieldEvent("title", "Work"))

		rec := r.Record()
		Expect(rec.Fields["scores"]).To(Equal(map[string]any{"a": 1.0, "b": 2.0}))
		Expect(rec.Fields["title"]).To(Equal("Work"))

		r.Apply(stream.FieldEvent("scores", "n/a"))
		Expect(r.Record().Fields["scores"]).To(Equal("n/a"))
	})

	It("hands observers private copies", func() {
		r.Apply(stream.FieldEvent("tags", []any{"x"}))
		published := obs.Last()
		published.Fields["tags"].([]any)[0] = "mutated"
		published.Fields["extra"] = true

		Expect(r.Record().Fields["tags"]).To(Equal([]any{"x"}))
		Expect(r.Record().Fields).NotTo(HaveKey("extra"))
	})

	Describe("complete", func() {
		It("flushes the pending update before the final record", func() {
			r.Apply(stream.FieldEvent("title", "Work"))
			r.Apply(stream.FieldEvent("reframe", "Draft"))
			r.Apply(stream.CompleteEvent(map[string]any{"reframe": "Final"}))

			all := obs.All()
			Expect(all).To(HaveLen(3))
			Expect(all[1].Status).To(Equal(reducer.StatusStreaming))
			Expect(all[1].Fields["reframe"]).To(Equal("Draft"))
			Expect(all[2].Status).To(Equal(reducer.StatusComplete))
			Expect(all[2].Fields).To(HaveKeyWithValue("reframe", "Final"))
			Expect(all[2].Fields).To(HaveKeyWithValue("title", "Work"))
		})

		It("keeps the seed identity regardless of the payload", func() {
			r.Apply(stream.FieldEvent("id", "hallucinated"))
			r.Apply(stream.CompleteEvent(map[string]any{
				"id":        "other",
				"createdAt": "1999-01-01T00:00:00Z",
				"title":     "Work",
			}))

			rec := r.Record()
			Expect(rec.ID).To(Equal(seed.ID))
			Expect(rec.CreatedAt).To(Equal(seed.CreatedAt))
			Expect(rec.Fields).NotTo(HaveKey("id"))
			Expect(rec.Fields).NotTo(HaveKey("createdAt"))
		})

		It("falls back to the patch for an empty payload", func() {
			r.Apply(stream.FieldEvent("title", "Work"))
			r.Apply(stream.CompleteEvent(nil))

			rec := r.Record()
			Expect(rec.Status).To(Equal(reducer.StatusComplete))
			Expect(rec.Fields).To(HaveKeyWithValue("title", "Work"))
			Expect(rec.Fields).To(HaveKeyWithValue("thought", "I always fail"))
		})

		It("terminates and ignores later events", func() {
			r.Apply(stream.FieldEvent("title", "Work"))
			r.Apply(stream.FieldEvent("reframe", "Draft"))
			r.Apply(stream.CompleteEvent(map[string]any{"title": "Work"}))
			Eventually(r.Done()).Should(BeClosed())

			n := len(obs.All())
			r.Apply(stream.FieldEvent("title", "Late"))
			r.Apply(stream.ErrorEvent("late"))
			r.Abort("late")
			clock.Advance(time.Second)

			Expect(obs.All()).To(HaveLen(n))
			Expect(obs.Last().Status).To(Equal(reducer.StatusComplete))
			Expect(r.Record().Fields["title"]).To(Equal("Work"))
		})
	})

	Describe("error", func() {
		It("keeps partial progress and marks result fields", func() {
			r.Apply(stream.FieldEvent("title", "Work"))
			r.Apply(stream.FieldEvent("reframe", "half a"))
			r.Apply(stream.ErrorEvent("model stream failed"))

			rec := obs.Last()
			Expect(rec.Status).To(Equal(reducer.StatusError))
			Expect(rec.Error).To(Equal("model stream failed"))
			Expect(rec.ID).To(Equal(seed.ID))
			Expect(rec.Fields).To(HaveKeyWithValue("title", "Work"))
			Expect(rec.Fields).To(HaveKeyWithValue("reframe", reducer.ErrorPlaceholder))
			Expect(r.Done()).To(BeClosed())
		})

		It("honours custom result fields and placeholder", func() {
			r = reducer.New(seed, obs,
				reducer.WithClock(clock),
				reducer.WithResultFields("summary", "reframe"),
				reducer.WithPlaceholder("unavailable"),
			)
			r.Apply(stream.ErrorEvent("boom"))

			rec := r.Record()
			Expect(rec.Fields).To(HaveKeyWithValue("summary", "unavailable"))
			Expect(rec.Fields).To(HaveKeyWithValue("reframe", "unavailable"))
		})
	})

	Describe("Abort", func() {
		It("retains fields seen before the transport dropped", func() {
			r.Apply(stream.FieldEvent("title", "Work"))
			r.Abort("connection reset")

			rec := r.Record()
			Expect(rec.Status).To(Equal(reducer.StatusError))
			Expect(rec.Error).To(Equal("connection reset"))
			Expect(rec.Fields).To(HaveKeyWithValue("title", "Work"))

			clock.Advance(time.Second)
			Expect(obs.Last().Status).To(Equal(reducer.StatusError))
		})
	})

	It("tolerates a nil observer", func() {
		q := reducer.New(reducer.NewSeed(), nil, reducer.WithInterval(0))
		q.Apply(stream.FieldEvent("title", "Work"))
		q.Apply(stream.CompleteEvent(nil))
		Expect(q.Record().Status).To(Equal(reducer.StatusComplete))
		Expect(q.Record().ID).NotTo(BeEmpty())
	})
})
