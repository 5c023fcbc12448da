// Package storagetest holds the behaviour every storage.Driver must satisfy,
// as Ginkgo specs shared by the driver test suites.
package storagetest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/thoughtstream/pkg/reducer"
	"github.com/papercomputeco/thoughtstream/pkg/storage"
)

// NewRecord returns a record created minutes after a fixed epoch.
func NewRecord(id string, minutes int, status reducer.Status) *storage.Record {
	return &storage.Record{
		Record: reducer.Record{
			ID:        id,
			CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute),
			Status:    status,
			Fields: map[string]any{
				"title":       "Work",
				"distortions": []any{"labeling", "overgeneralization"},
				"scores":      map[string]any{"intensity": 0.8},
			},
		},
		Provider: "ollama",
		Model:    "llama3.2",
		Chunks:   12,
	}
}

// DescribeDriver registers the shared driver specs. newDriver is called
// before each test and the driver is closed after it.
func DescribeDriver(name string, newDriver func() storage.Driver) bool {
	return Describe(name+" driver behaviour", func() {
		var (
			driver storage.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = nil
			driver = newDriver()
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Close()).To(Succeed())
			}
		})

		It("round-trips a record", func() {
			rec := NewRecord("r1", 0, reducer.StatusComplete)
			rec.Meta = map[string]string{"user": "ana"}
			rec.PromptTokens = 30
			rec.CompletionTokens = 70
			rec.DurationMs = 1500
			Expect(driver.Put(ctx, rec)).To(Succeed())

			got, err := driver.Get(ctx, "r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal("r1"))
			Expect(got.CreatedAt).To(BeTemporally("==", rec.CreatedAt))
			Expect(got.Status).To(Equal(reducer.StatusComplete))
			Expect(got.Fields).To(Equal(rec.Fields))
			Expect(got.Meta).To(Equal(map[string]string{"user": "ana"}))
			Expect(got.Provider).To(Equal("ollama"))
			Expect(got.Model).To(Equal("llama3.2"))
			Expect(got.Chunks).To(Equal(12))
			Expect(got.DurationMs).To(Equal(int64(1500)))
			Expect(got.PromptTokens).To(Equal(30))
			Expect(got.CompletionTokens).To(Equal(70))
		})

		It("keeps the error reason of failed records", func() {
			rec := NewRecord("r1", 0, reducer.StatusError)
			rec.Error = "model stream failed"
			Expect(driver.Put(ctx, rec)).To(Succeed())

			got, err := driver.Get(ctx, "r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Error).To(Equal("model stream failed"))
			Expect(got.Meta).To(BeNil())
		})

		It("replaces a record with the same id", func() {
			Expect(driver.Put(ctx, NewRecord("r1", 0, reducer.StatusStreaming))).To(Succeed())

			updated := NewRecord("r1", 0, reducer.StatusComplete)
			updated.Fields["reframe"] = "One setback is not a pattern"
			Expect(driver.Put(ctx, updated)).To(Succeed())

			got, err := driver.Get(ctx, "r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(reducer.StatusComplete))
			Expect(got.Fields).To(HaveKeyWithValue("reframe", "One setback is not a pattern"))

			all, err := driver.List(ctx, storage.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("returns NotFoundError for a missing record", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
			Expect(err).To(MatchError("record not found: missing"))
		})

		It("rejects nil records", func() {
			Expect(driver.Put(ctx, nil)).To(MatchError(storage.ErrNilRecord))
		})

		It("lists newest first with limit and status filters", func() {
			Expect(driver.Put(ctx, NewRecord("old", 0, reducer.StatusComplete))).To(Succeed())
			Expect(driver.Put(ctx, NewRecord("mid", 5, reducer.StatusError))).To(Succeed())
			Expect(driver.Put(ctx, NewRecord("new", 10, reducer.StatusComplete))).To(Succeed())

			ids := func(recs []*storage.Record) []string {
				out := make([]string, 0, len(recs))
				for _, r := range recs {
					out = append(out, r.ID)
				}
				return out
			}

			all, err := driver.List(ctx, storage.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(all)).To(Equal([]string{"new", "mid", "old"}))

			limited, err := driver.List(ctx, storage.ListOptions{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(limited)).To(Equal([]string{"new", "mid"}))

			complete, err := driver.List(ctx, storage.ListOptions{Status: reducer.StatusComplete})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(complete)).To(Equal([]string{"new", "old"}))
		})

		It("returns copies that callers may mutate", func() {
			Expect(driver.Put(ctx, NewRecord("r1", 0, reducer.StatusComplete))).To(Succeed())

			got, err := driver.Get(ctx, "r1")
			Expect(err).NotTo(HaveOccurred())
			got.Fields["title"] = "changed"

			again, err := driver.Get(ctx, "r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Fields["title"]).To(Equal("Work"))
		})
	})
}
