package python

import (
	"bytes"
	"sync"
)

// tailBuffer is an io.Writer that keeps the last max bytes written to it.
// The interpreter reads the end of stdout, so the head is what gets dropped.
// It is safe for concurrent use.
type tailBuffer struct {
	mu      sync.Mutex
	buf     []byte
	max     int
	total   int64
	dropped bool
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

// Write implements io.Writer. It never fails.
func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total += int64(len(p))
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		// Copy to release the old backing array.
		trimmed := make([]byte, t.max)
		copy(trimmed, t.buf[len(t.buf)-t.max:])
		t.buf = trimmed
		t.dropped = true
	}
	return len(p), nil
}

// String returns the retained tail. When the head was dropped, the partial
// first line is discarded so that every returned line is whole.
func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.buf
	if t.dropped {
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			b = b[i+1:]
		}
	}
	return string(b)
}

// Dropped reports whether any output was discarded.
func (t *tailBuffer) Dropped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Total returns the number of bytes written, including dropped ones.
func (t *tailBuffer) Total() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}
