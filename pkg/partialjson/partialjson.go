// Package partialjson extracts a best-effort JSON object from a buffer that
// may still be growing, one LLM token at a time.
//
// Extraction runs in two stages. Strict succeeds only for a complete object.
// Tolerant is used when Strict fails and returns only the top-level members
// whose values are already fully resolved; a value still open at the tail of
// the buffer is left out rather than returned truncated.
package partialjson

import (
	"encoding/json"
	"strings"

	"github.com/papercomputeco/thoughtstream/pkg/snapshot"
)

// Result is the outcome of Extract.
type Result struct {
	// Snapshot holds the resolved top-level members in encounter order.
	Snapshot snapshot.Snapshot

	// Strict is true when the whole buffer parsed as one complete object.
	Strict bool
}

// Extract runs Strict, falling back to Tolerant. It reports false when
// neither stage resolved any member, meaning there is no snapshot this cycle.
func Extract(buf string) (Result, bool) {
	if s, ok := Strict(buf); ok {
		return Result{Snapshot: s, Strict: true}, true
	}

	s := Tolerant(buf)
	if s.Len() == 0 {
		return Result{}, false
	}
	return Result{Snapshot: s}, true
}

// Strict parses buf as exactly one JSON object. Anything before the first
// '{' is skipped, which tolerates a leading markdown fence; anything other
// than whitespace after the closing brace fails the parse.
func Strict(buf string) (snapshot.Snapshot, bool) {
	body, ok := objectBody(buf)
	if !ok {
		return snapshot.Snapshot{}, false
	}

	s, closed, end := decodeMembers(body)
	if !closed {
		return snapshot.Snapshot{}, false
	}
	if strings.TrimSpace(body[end:]) != "" {
		return snapshot.Snapshot{}, false
	}

	return s, true
}

// Tolerant returns every top-level member of the object in buf whose key and
// value are both complete. Recovery stops at the first member that is still
// open or syntactically broken; members before it are kept.
func Tolerant(buf string) snapshot.Snapshot {
	body, ok := objectBody(buf)
	if !ok {
		return snapshot.New()
	}

	s, _, _ := decodeMembers(body)
	return s
}

func objectBody(buf string) (string, bool) {
	i := strings.IndexByte(buf, '{')
	if i < 0 {
		return "", false
	}
	return buf[i:], true
}

// decodeMembers walks the members of the object at the start of body. It
// returns the members resolved so far, whether the closing brace was seen and
// the byte offset just past it.
func decodeMembers(body string) (snapshot.Snapshot, bool, int) {
	s := snapshot.New()

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return s, false, 0
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return s, false, 0
		}
		key, ok := tok.(string)
		if !ok {
			return s, false, 0
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return s, false, 0
		}

		// A number that runs into the end of the buffer may still grow.
		if _, isNumber := value.(json.Number); isNumber && int(dec.InputOffset()) >= len(body) {
			return s, false, 0
		}

		s.Set(key, value)
	}

	tok, err = dec.Token()
	if err != nil || tok != json.Delim('}') {
		return s, false, 0
	}

	return s, true, int(dec.InputOffset())
}
