package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/thoughtstream/pkg/eventstream"
	"github.com/papercomputeco/thoughtstream/pkg/reducer"
)

var _ = Describe("RecordCompletedEvent", func() {
	var rec reducer.Record

	BeforeEach(func() {
		rec = reducer.Record{
			ID:        "rec-1",
			CreatedAt: time.Unix(1735689600, 0).UTC(),
			Status:    reducer.StatusComplete,
			Fields:    map[string]any{"title": "Work"},
		}
	})

	It("marshals with the expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.NewRecordCompletedEvent(rec,
			eventstream.EventSource{Provider: "openai", Model: "gpt-4o-mini", User: "ana"},
			eventstream.StreamMeta{
				SessionID:   "s-1",
				StartedAt:   now.Add(-2 * time.Second),
				CompletedAt: now,
				DurationMs:  2000,
				Chunks:      40,
				Fields:      3,
			},
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		for _, key := range []string{"schema_version", "event_type", "event_id", "emitted_at", "source", "stream", "record"} {
			Expect(got).To(HaveKey(key))
		}
		Expect(got["event_type"]).To(Equal(eventstream.EventTypeRecordCompleted))
		Expect(got["record"]).To(HaveKeyWithValue("id", "rec-1"))
	})

	It("assigns unique ids and snapshots the record", func() {
		a := eventstream.NewRecordCompletedEvent(rec, eventstream.EventSource{}, eventstream.StreamMeta{})
		b := eventstream.NewRecordCompletedEvent(rec, eventstream.EventSource{}, eventstream.StreamMeta{})
		Expect(a.EventID).To(HavePrefix("evt_"))
		Expect(a.EventID).NotTo(Equal(b.EventID))
		Expect(a.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))

		rec.Fields["title"] = "changed"
		Expect(a.Record.Fields["title"]).To(Equal("Work"))
	})

	It("provides ErrNilRecordEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilRecordEvent).To(MatchError("nil record event"))
	})
})
