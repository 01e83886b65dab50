package util

import "sync"

// BytePool hands out fixed-size byte buffers for receive loops, reducing
// GC pressure on hot read paths. Unlike a package-level pool, each
// BytePool is sized by its owner (the read chunk size is per-socket
// configuration), so two sockets with different chunk sizes never share
// buffers.
type BytePool struct {
	size int
	pool sync.Pool
}

// NewBytePool returns a pool whose buffers are all exactly size bytes.
func NewBytePool(size int) *BytePool {
	p := &BytePool{size: size}
	p.pool.New = func() interface{} {
		buf := make([]byte, size)
		return &buf
	}
	return p
}

// Size returns the length of every buffer this pool hands out.
func (p *BytePool) Size() int { return p.size }

// Get retrieves a buffer from the pool.  Callers must return it with
// [BytePool.Put] when finished.
func (p *BytePool) Get() *[]byte {
	return p.pool.Get().(*[]byte)
}

// Put returns a buffer to the pool for reuse.  A nil buffer is ignored,
// and buffers of the wrong size are dropped rather than poisoning the
// pool.
func (p *BytePool) Put(buf *[]byte) {
	if buf == nil || cap(*buf) != p.size {
		return
	}
	*buf = (*buf)[:p.size]
	p.pool.Put(buf)
}
