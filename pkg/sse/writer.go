package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Writer frames SSE events onto an io.Writer. Each event is written as one or
// more "data:" lines followed by a blank line, then flushed when the
// underlying writer supports it. Writer is safe for concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteData writes data as a single event. Embedded newlines are split into
// separate data lines so that readers rejoin them verbatim.
func (w *Writer) WriteData(data string) error {
	var b strings.Builder
	for line := range strings.SplitSeq(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	return w.write(b.String())
}

// WriteJSON marshals v and writes it as one event.
func (w *Writer) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return w.WriteData(string(data))
}

// WriteComment writes an SSE comment line. Readers ignore it, which makes it
// usable as a keep-alive.
func (w *Writer) WriteComment(text string) error {
	return w.write(": " + text + "\n\n")
}

func (w *Writer) write(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := io.WriteString(w.w, s); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	switch f := w.w.(type) {
	case http.Flusher:
		f.Flush()
	case interface{ Flush() error }:
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush event: %w", err)
		}
	}
	return nil
}
