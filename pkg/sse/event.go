// Package sse reads and writes text/event-stream framing.
//
// A TeeReader parses events from an upstream provider body, or from the
// gateway on the client side, while copying the raw bytes elsewhere. A Writer
// frames the gateway's own events. Framing follows
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event is one blank-line-delimited block of fields.
type Event struct {
	// Type is the "event:" field. Empty means "message".
	Type string

	// Data joins every "data:" line of the block with "\n".
	Data string

	ID string
}
