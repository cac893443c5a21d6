package pandasim

import "sync"

// CaptureBuffer is the FIFO of capture words shared between the
// simulation clock (producer) and data connections (consumers).
//
// Words keep the exact order they were appended in, across any sequence
// of concurrent appends and drains. The buffer grows without bound and
// is only ever emptied by draining; end-of-stream is reported once the
// buffer has been closed and drained empty.
//
type CaptureBuffer struct {
	mu     sync.Mutex
	words  []uint32
	closed bool
}

// NewCaptureBuffer returns an empty, open capture buffer.
func NewCaptureBuffer() *CaptureBuffer {
	return &CaptureBuffer{}
}

// Append adds words to the tail of the buffer. Words appended after
// Close are dropped: the stream has already ended.
func (b *CaptureBuffer) Append(words ...uint32) {
	if len(words) == 0 {
		return
	}
	b.mu.Lock()
	if !b.closed {
		b.words = append(b.words, words...)
	}
	b.mu.Unlock()
}

// Drain removes and returns up to max of the oldest buffered words.
// It never blocks. endOfStream is true only when the buffer is closed
// and empty; an open empty buffer returns no words and false, and the
// caller is expected to poll.
func (b *CaptureBuffer) Drain(max uint32) (words []uint32, endOfStream bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.words) == 0 {
		return nil, b.closed
	}
	n := int(max)
	if uint64(max) > uint64(len(b.words)) {
		n = len(b.words)
	}
	if n == 0 {
		return nil, false
	}
	words = make([]uint32, n)
	copy(words, b.words)
	rest := len(b.words) - n
	copy(b.words, b.words[n:])
	b.words = b.words[:rest]
	if rest == 0 {
		b.words = nil
	}
	return words, false
}

// Close marks the stream's end condition. Buffered words remain
// drainable; once they are gone, every Drain reports end-of-stream
// until Reset.
func (b *CaptureBuffer) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Reset discards any buffered words and reopens the stream.
func (b *CaptureBuffer) Reset() {
	b.mu.Lock()
	b.words = nil
	b.closed = false
	b.mu.Unlock()
}

// Len returns the number of buffered words.
func (b *CaptureBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.words)
}
