package partialjson_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/thoughtstream/pkg/partialjson"
	"github.com/papercomputeco/thoughtstream/pkg/snapshot"
)

const fullRecord = `{"title":"Work","distortions":["labeling","mind reading"],"meta":{"confidence":0.9,"tags":["job"]},"reframe":"One review is not a verdict.","done":true}`

var _ = Describe("Strict", func() {
	It("parses a complete object in encounter order", func() {
		s, ok := partialjson.Strict(fullRecord)
		Expect(ok).To(BeTrue())
		Expect(s.Keys()).To(Equal([]string{"title", "distortions", "meta", "reframe", "done"}))

		v, _ := s.Get("distortions")
		Expect(v).To(Equal([]any{"labeling", "mind reading"}))
	})

	It("skips a leading markdown fence", func() {
		s, ok := partialjson.Strict("```json\n{\"title\":\"Work\"}\n")
		Expect(ok).To(BeTrue())
		Expect(s.Map()).To(Equal(map[string]any{"title": "Work"}))
	})

	It("fails when non-whitespace trails the object", func() {
		_, ok := partialjson.Strict("{\"title\":\"Work\"}\n```")
		Expect(ok).To(BeFalse())
	})

	It("fails on a truncated object", func() {
		_, ok := partialjson.Strict(`{"title":"Work"`)
		Expect(ok).To(BeFalse())
	})

	It("fails when the top-level value is not an object", func() {
		_, ok := partialjson.Strict(`["title"]`)
		Expect(ok).To(BeFalse())

		_, ok = partialjson.Strict(`"title"`)
		Expect(ok).To(BeFalse())
	})

	It("keeps numbers exact", func() {
		s, ok := partialjson.Strict(`{"n":12345678901234567890}`)
		Expect(ok).To(BeTrue())
		v, _ := s.Get("n")
		Expect(v).To(Equal(json.Number("12345678901234567890")))
	})

	It("lets the last duplicate win while keeping the first position", func() {
		s, ok := partialjson.Strict(`{"a":1,"b":2,"a":3}`)
		Expect(ok).To(BeTrue())
		Expect(s.Keys()).To(Equal([]string{"a", "b"}))
		v, _ := s.Get("a")
		Expect(v).To(Equal(json.Number("3")))
	})
})

var _ = Describe("Tolerant", func() {
	DescribeTable("returns only fully resolved members",
		func(buf string, expected map[string]any) {
			Expect(partialjson.Tolerant(buf).Map()).To(Equal(expected))
		},
		Entry("empty buffer", ``, map[string]any{}),
		Entry("no object yet", "```js", map[string]any{}),
		Entry("open brace only", `{`, map[string]any{}),
		Entry("open key", `{"tit`, map[string]any{}),
		Entry("key without value", `{"title":`, map[string]any{}),
		Entry("open string", `{"title":"Wo`, map[string]any{}),
		Entry("closed string", `{"title":"Work"`, map[string]any{"title": "Work"}),
		Entry("trailing comma", `{"title":"Work",`, map[string]any{"title": "Work"}),
		Entry("open array", `{"title":"Work","distortions":[`, map[string]any{"title": "Work"}),
		Entry("partial array", `{"title":"Work","distortions":["labeling",`, map[string]any{"title": "Work"}),
		Entry("closed array", `{"title":"Work","distortions":["labeling"]`, map[string]any{
			"title":       "Work",
			"distortions": []any{"labeling"},
		}),
		Entry("open nested object", `{"meta":{"confidence":0.9`, map[string]any{}),
		Entry("number at tail", `{"n":12`, map[string]any{}),
		Entry("delimited number", `{"n":12,`, map[string]any{"n": json.Number("12")}),
		Entry("number followed by whitespace", "{\"n\":12\n", map[string]any{"n": json.Number("12")}),
		Entry("partial literal", `{"done":tr`, map[string]any{}),
		Entry("complete literal", `{"done":true`, map[string]any{"done": true}),
		Entry("null literal", `{"reframe":null`, map[string]any{"reframe": nil}),
		Entry("escaped quote inside string", `{"title":"say \"hi`, map[string]any{}),
		Entry("string ending in escaped quote", `{"title":"say \"hi\""`, map[string]any{"title": `say "hi"`}),
		Entry("syntax error mid buffer", `{"title":"Work",oops,"reframe":"x"}`, map[string]any{"title": "Work"}),
		Entry("trailing fence after close", "{\"title\":\"Work\"}\n```", map[string]any{"title": "Work"}),
	)

	It("never returns a truncated fragment for any prefix of a complete record", func() {
		final, ok := partialjson.Strict(fullRecord)
		Expect(ok).To(BeTrue())

		for i := 0; i <= len(fullRecord); i++ {
			got := partialjson.Tolerant(fullRecord[:i])
			for _, k := range got.Keys() {
				want, _ := final.Get(k)
				v, _ := got.Get(k)
				Expect(snapshot.Equal(v, want)).To(BeTrue(), "prefix %q produced %s=%v", fullRecord[:i], k, v)
			}
		}
	})

	It("is idempotent on the same buffer", func() {
		for i := 0; i <= len(fullRecord); i++ {
			a := partialjson.Tolerant(fullRecord[:i])
			b := partialjson.Tolerant(fullRecord[:i])
			Expect(a.Keys()).To(Equal(b.Keys()))
			Expect(snapshot.Equal(a.Map(), b.Map())).To(BeTrue())
		}
	})
})

var _ = Describe("Extract", func() {
	It("reports no snapshot while the first value is still open", func() {
		_, ok := partialjson.Extract(`{"title":"Wo`)
		Expect(ok).To(BeFalse())
	})

	It("marks a complete object as strict", func() {
		res, ok := partialjson.Extract(`{"title":"Work"}`)
		Expect(ok).To(BeTrue())
		Expect(res.Strict).To(BeTrue())
		Expect(res.Snapshot.Map()).To(Equal(map[string]any{"title": "Work"}))
	})

	It("falls back to tolerant recovery", func() {
		res, ok := partialjson.Extract(`{"title":"Work","distortions":[`)
		Expect(ok).To(BeTrue())
		Expect(res.Strict).To(BeFalse())
		Expect(res.Snapshot.Keys()).To(Equal([]string{"title"}))
	})

	It("returns the empty object as a strict snapshot", func() {
		res, ok := partialjson.Extract(`{}`)
		Expect(ok).To(BeTrue())
		Expect(res.Strict).To(BeTrue())
		Expect(res.Snapshot.Len()).To(BeZero())
	})

	It("anchors on the first brace even inside a prose preamble", func() {
		buf := `Note {draft}: {"title":"Work"}`
		_, ok := partialjson.Strict(buf)
		Expect(ok).To(BeFalse())
		Expect(partialjson.Tolerant(buf).Len()).To(BeZero())

		_, ok = partialjson.Extract(buf)
		Expect(ok).To(BeFalse())
	})

	It("treats an empty object in the preamble as the whole document", func() {
		buf := `Use {} as a template: {"title":"Work"}`
		_, ok := partialjson.Strict(buf)
		Expect(ok).To(BeFalse())

		_, ok = partialjson.Extract(buf)
		Expect(ok).To(BeFalse())
	})
})
