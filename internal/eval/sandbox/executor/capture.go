package executor

import (
	"bytes"
	"sync"

	"codeval/internal/eval/sandbox/result"
)

// cappedBuffer captures a stream incrementally up to a byte ceiling.
// Writes past the ceiling are counted as consumed but discarded, so the
// child process never blocks on a full pipe.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func newCappedBuffer(max int64) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := b.max - int64(b.buf.Len())
	if remaining <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

// Contents returns the captured bytes with a truncation marker appended
// when the ceiling was hit, and whether truncation occurred.
func (b *cappedBuffer) Contents() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return b.buf.String() + result.TruncationMarker, true
	}
	return b.buf.String(), false
}
