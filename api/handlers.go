package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/thoughtstream/pkg/llm"
	"github.com/papercomputeco/thoughtstream/pkg/reducer"
	"github.com/papercomputeco/thoughtstream/pkg/storage"
)

// maxListLimit caps the limit query parameter.
const maxListLimit = 500

// RecordsResponse is the body of GET /v1/records.
type RecordsResponse struct {
	Records []*storage.Record `json:"records"`
	Count   int               `json:"count"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(s.StreamSettings())
}

// handleListRecords returns the most recent records, newest first.
// Query parameters: limit (1..500) and status (streaming, complete, error).
func (s *Server) handleListRecords(c *fiber.Ctx) error {
	opts := storage.ListOptions{}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "limit must be between 1 and 500"})
		}
		opts.Limit = limit
	}

	switch status := reducer.Status(c.Query("status")); status {
	case "":
	case reducer.StatusStreaming, reducer.StatusComplete, reducer.StatusError:
		opts.Status = status
	default:
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "unknown status " + string(status)})
	}

	recs, err := s.storer.List(c.Context(), opts)
	if err != nil {
		s.logger.Error("failed to list records", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list records"})
	}
	if recs == nil {
		recs = []*storage.Record{}
	}

	return c.JSON(RecordsResponse{Records: recs, Count: len(recs)})
}

// handleGetRecord returns a single record by its ID.
func (s *Server) handleGetRecord(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "id parameter required"})
	}

	rec, err := s.storer.Get(c.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "record not found"})
		}
		s.logger.Error("failed to get record", "id", id, "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get record"})
	}

	return c.JSON(rec)
}
