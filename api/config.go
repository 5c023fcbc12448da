// Package api provides an HTTP API server for querying stored thought records.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Stream is reported by /v1/config so clients can match the server's
	// reconciliation settings.
	Stream StreamSettings
}

// StreamSettings are the client-side reconciliation defaults.
type StreamSettings struct {
	PublishIntervalMs uint     `json:"publish_interval_ms"`
	ResultFields      []string `json:"result_fields"`
}
