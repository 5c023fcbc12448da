package stream

import "strings"

// Buffer is the append-only text accumulated for one session.
type Buffer struct {
	b      strings.Builder
	chunks int
}

// Append adds fragment to the end of the buffer and returns the whole buffer.
func (b *Buffer) Append(fragment string) string {
	b.b.WriteString(fragment)
	b.chunks++
	return b.b.String()
}

// String returns the current buffer contents.
func (b *Buffer) String() string {
	return b.b.String()
}

// Chunks returns how many fragments have been appended.
func (b *Buffer) Chunks() int {
	return b.chunks
}

// Len returns the buffer length in bytes.
func (b *Buffer) Len() int {
	return b.b.Len()
}

// Release drops the accumulated text. The chunk counter is kept for
// reporting.
func (b *Buffer) Release() {
	b.b = strings.Builder{}
}
