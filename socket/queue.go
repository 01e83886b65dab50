package socket

import (
	"sync"

	"github.com/valyala/bytebufferpool"
)

// framePool recycles encoded outbound frames between SendMessage and
// the send loop.
var framePool bytebufferpool.Pool

// sendBuffer is one encoded frame waiting to be written, plus the
// progress cursor for partial writes.
// Invariant: 0 <= cursor <= len(bb.B).
type sendBuffer struct {
	bb     *bytebufferpool.ByteBuffer
	cursor int
}

// newSendBuffer encodes command and payload into a pooled buffer.
func newSendBuffer(command int32, payload []byte) *sendBuffer {
	bb := framePool.Get()
	bb.B = appendFrame(bb.B[:0], command, payload)
	return &sendBuffer{bb: bb}
}

// remaining returns the unwritten suffix of the frame.
func (b *sendBuffer) remaining() []byte { return b.bb.B[b.cursor:] }

// advance moves the cursor after a write of n bytes.
func (b *sendBuffer) advance(n int) {
	b.cursor += n
	if b.cursor > len(b.bb.B) {
		b.cursor = len(b.bb.B)
	}
}

// done reports whether the whole frame has been written.
func (b *sendBuffer) done() bool { return b.cursor >= len(b.bb.B) }

// size returns the wire size of the frame.
func (b *sendBuffer) size() int { return len(b.bb.B) }

// release returns the frame's bytes to the pool.  Calling it twice is
// a no-op, which keeps the queue's discard paths simple.
func (b *sendBuffer) release() {
	if b.bb != nil {
		framePool.Put(b.bb)
		b.bb = nil
	}
}

// releaseAll returns every frame in frames to the pool.
func releaseAll(frames []*sendBuffer) {
	for _, f := range frames {
		f.release()
	}
}

// outQueue is the unbounded FIFO of frames awaiting transmission.
// Producers are arbitrary caller goroutines; the sole consumer is the
// send loop.  A mutex plus slice keeps the ordering observable: once
// push returns, the frame is in line behind everything pushed before
// it.
type outQueue struct {
	mu sync.Mutex
	q  []*sendBuffer
}

// push appends one frame to the backlog.
func (q *outQueue) push(b *sendBuffer) {
	q.mu.Lock()
	q.q = append(q.q, b)
	q.mu.Unlock()
}

// drain takes the entire backlog, leaving the queue empty.  Ownership
// of the frames moves to the caller, release duties included.
func (q *outQueue) drain() []*sendBuffer {
	q.mu.Lock()
	out := q.q
	q.q = nil
	q.mu.Unlock()
	return out
}

// clear discards the backlog, releasing every frame, and returns the
// number discarded.
func (q *outQueue) clear() int {
	out := q.drain()
	releaseAll(out)
	return len(out)
}

// depth returns the current backlog length.
func (q *outQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.q)
}
