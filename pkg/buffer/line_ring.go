package buffer

import (
	"bytes"
	"sync"
)

// maxLineBytes caps a single buffered line. Longer lines are split into
// pieces of at most this size.
const maxLineBytes = 64 << 10

// LineRing is an io.Writer that keeps the last N complete lines written to
// it. A trailing partial line is held until its newline arrives or Flush is
// called.
type LineRing struct {
	ring *RingBuffer[string]

	mu      sync.Mutex
	partial []byte
}

// NewLineRing returns a LineRing keeping up to n lines.
func NewLineRing(n int) *LineRing {
	return &LineRing{ring: RingN[string](n)}
}

// Write implements io.Writer. It never fails.
func (lr *LineRing) Write(p []byte) (int, error) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		end := i
		if i < 0 {
			end = len(p)
		}
		if room := maxLineBytes - len(lr.partial); end > room {
			lr.partial = append(lr.partial, p[:room]...)
			lr.emit()
			p = p[room:]
			continue
		}
		lr.partial = append(lr.partial, p[:end]...)
		if i < 0 {
			break
		}
		lr.emit()
		p = p[i+1:]
	}
	return n, nil
}

// Flush stores any pending partial line.
func (lr *LineRing) Flush() {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if len(lr.partial) > 0 {
		lr.emit()
	}
}

// Lines returns the buffered lines, oldest first, without a pending
// partial line.
func (lr *LineRing) Lines() []string {
	return lr.ring.Snapshot()
}

func (lr *LineRing) emit() {
	lr.ring.Add(string(bytes.TrimSuffix(lr.partial, []byte{'\r'})))
	lr.partial = lr.partial[:0]
}
