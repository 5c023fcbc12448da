package snapshot_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/thoughtstream/pkg/snapshot"
)

func snap(pairs ...any) snapshot.Snapshot {
	s := snapshot.New()
	for i := 0; i < len(pairs); i += 2 {
		s.Set(pairs[i].(string), pairs[i+1])
	}
	return s
}

var _ = Describe("Differ", func() {
	var d *snapshot.Differ

	BeforeEach(func() {
		d = snapshot.NewDiffer()
	})

	It("reports every key of the first snapshot in encounter order", func() {
		changes := d.Diff(snap("title", "Work", "distortions", []any{"labeling"}))
		Expect(changes).To(Equal([]snapshot.FieldChange{
			{Field: "title", Value: "Work"},
			{Field: "distortions", Value: []any{"labeling"}},
		}))
	})

	It("returns nothing for a deep-equal candidate", func() {
		d.Diff(snap("title", "Work"))
		Expect(d.Diff(snap("title", "Work"))).To(BeEmpty())
	})

	It("does not re-emit reordered but equal objects", func() {
		var first, second any
		Expect(json.Unmarshal([]byte(`{"a":1,"b":2}`), &first)).To(Succeed())
		Expect(json.Unmarshal([]byte(`{"b":2,"a":1}`), &second)).To(Succeed())

		Expect(d.Diff(snap("meta", first))).To(HaveLen(1))
		Expect(d.Diff(snap("meta", second))).To(BeEmpty())
	})

	It("does not re-emit a number beyond float64 range", func() {
		Expect(d.Diff(snap("n", json.Number("1e400")))).To(HaveLen(1))
		Expect(d.Diff(snap("n", json.Number("1e400")))).To(BeEmpty())
	})

	It("reports a change between integers float64 cannot tell apart", func() {
		d.Diff(snap("n", json.Number("12345678901234567890")))
		Expect(d.Diff(snap("n", json.Number("12345678901234567891")))).To(Equal([]snapshot.FieldChange{
			{Field: "n", Value: json.Number("12345678901234567891")},
		}))
	})

	It("reports only keys whose value changed", func() {
		d.Diff(snap("title", "Work", "reframe", "draft"))
		changes := d.Diff(snap("title", "Work", "reframe", "final"))
		Expect(changes).To(Equal([]snapshot.FieldChange{{Field: "reframe", Value: "final"}}))
	})

	It("never reports keys that disappeared from the candidate", func() {
		d.Diff(snap("title", "Work", "reframe", "draft"))
		Expect(d.Diff(snap("title", "Work"))).To(BeEmpty())

		prev := d.Previous()
		v, ok := prev.Get("reframe")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("draft"))
	})

	It("keeps previous as the union with the candidate winning", func() {
		d.Diff(snap("a", 1.0, "b", 2.0))
		d.Diff(snap("b", 3.0, "c", 4.0))

		prev := d.Previous()
		Expect(prev.Keys()).To(Equal([]string{"a", "b", "c"}))
		Expect(prev.Map()).To(Equal(map[string]any{"a": 1.0, "b": 3.0, "c": 4.0}))
	})

	It("has a non-decreasing key set across diffs", func() {
		candidates := []snapshot.Snapshot{
			snap("title", "W"),
			snap("distortions", []any{}),
			snap("title", "Work"),
			snapshot.New(),
			snap("reframe", "ok"),
		}

		seen := 0
		for _, c := range candidates {
			d.Diff(c)
			Expect(d.Previous().Len()).To(BeNumerically(">=", seen))
			seen = d.Previous().Len()
		}
		Expect(seen).To(Equal(3))
	})
})

var _ = Describe("Snapshot", func() {
	It("keeps the first position of a re-set key", func() {
		s := snap("a", 1.0, "b", 2.0)
		s.Set("a", 3.0)
		Expect(s.Keys()).To(Equal([]string{"a", "b"}))

		v, _ := s.Get("a")
		Expect(v).To(Equal(3.0))
	})

	It("marshals in encounter order", func() {
		b, err := json.Marshal(snap("title", "Work", "distortions", []any{"labeling"}))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal(`{"title":"Work","distortions":["labeling"]}`))
	})

	It("builds from a map in sorted order", func() {
		s := snapshot.FromMap(map[string]any{"b": 1.0, "a": 2.0})
		Expect(s.Keys()).To(Equal([]string{"a", "b"}))
	})
})
