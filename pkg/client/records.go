package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/thoughtstream/pkg/reducer"
)

// RecordsClient queries stored records on a thoughtstream API server.
type RecordsClient struct {
	target string
	http   *http.Client
}

// NewRecordsClient returns a RecordsClient for the API server at target.
// A nil hc uses a client with a short timeout.
func NewRecordsClient(target string, hc *http.Client) *RecordsClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &RecordsClient{target: strings.TrimRight(target, "/"), http: hc}
}

// Get fetches one record by ID.
func (r *RecordsClient) Get(ctx context.Context, id string) (reducer.Record, error) {
	var rec reducer.Record
	err := r.getJSON(ctx, "/v1/records/"+url.PathEscape(id), &rec)
	return rec, err
}

// List fetches the most recent records, newest first. A non-positive limit
// uses the server default.
func (r *RecordsClient) List(ctx context.Context, limit int) ([]reducer.Record, error) {
	path := "/v1/records"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var body struct {
		Records []reducer.Record `json:"records"`
	}
	if err := r.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}
	return body.Records, nil
}

func (r *RecordsClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.target+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
