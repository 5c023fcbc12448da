package sse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultMaxLineSize bounds a single SSE line, "data: " prefix included.
// Longer lines fail Next with an error wrapping bufio.ErrTooLong.
const DefaultMaxLineSize = 16 * 1024 * 1024

const initialBufSize = 64 * 1024

// TeeReader reads SSE events from a source io.Reader while writing every raw
// line, newline included, to a destination io.Writer.
//
//	source ──▶ TeeReader.Next() ──▶ Event
//	                  │
//	                  ▼
//	            destination
//
// On the gateway the source is an upstream provider body. On the client it
// is the gateway response and the destination is an optional transcript.
type TeeReader struct {
	scanner *bufio.Scanner
	dest    io.Writer
	maxLine int

	// current accumulates fields for the event being built.
	current *Event
	hasData bool
}

// NewTeeReader returns a TeeReader over src that copies raw bytes to dest.
// A nil dest discards the copy. Lines are limited to DefaultMaxLineSize.
func NewTeeReader(src io.Reader, dest io.Writer) *TeeReader {
	return NewTeeReaderSize(src, dest, DefaultMaxLineSize)
}

// NewTeeReaderSize is NewTeeReader with a line limit of maxLine bytes. A
// non-positive maxLine uses DefaultMaxLineSize.
func NewTeeReaderSize(src io.Reader, dest io.Writer, maxLine int) *TeeReader {
	if dest == nil {
		dest = io.Discard
	}
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, min(initialBufSize, maxLine)), maxLine)

	return &TeeReader{
		scanner: scanner,
		dest:    dest,
		maxLine: maxLine,
		current: &Event{},
	}
}

// NewReader returns a TeeReader that only parses.
func NewReader(src io.Reader) *TeeReader {
	return NewTeeReader(src, nil)
}

// Next blocks until a complete event (terminated by a blank line) is
// available and returns it. It returns nil, nil once the source is exhausted.
// An event left open by a source that ends without a trailing blank line is
// still returned.
func (r *TeeReader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()

		// bufio.Scanner strips the newline, so it is put back for dest.
		if _, err := io.WriteString(r.dest, line+"\n"); err != nil {
			return nil, err
		}

		if line == "" {
			if !r.hasData {
				// Leading blank lines and keep-alive newlines.
				continue
			}
			return r.take(), nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		r.parseLine(line)
	}

	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("sse line exceeds %d bytes: %w", r.maxLine, err)
		}
		return nil, err
	}

	if r.hasData {
		return r.take(), nil
	}
	return nil, nil
}

// parseLine accumulates one "field:value" line into the current event. A
// single space after the colon is stripped; a line without a colon names a
// field with an empty value.
func (r *TeeReader) parseLine(line string) {
	field, value, found := strings.Cut(line, ":")
	if found {
		value = strings.TrimPrefix(value, " ")
	}

	switch field {
	case "data":
		if r.hasData && r.current.Data != "" {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasData = true
	case "event":
		r.current.Type = value
		r.hasData = true
	case "id":
		r.current.ID = value
		r.hasData = true
	default:
		// "retry" and unknown fields are ignored.
	}
}

func (r *TeeReader) take() *Event {
	ev := r.current
	r.current = &Event{}
	r.hasData = false
	return ev
}
