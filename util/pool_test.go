package util

import "testing"

func TestBytePool_RoundTrip(t *testing.T) {
	p := NewBytePool(512)

	buf := p.Get()
	if buf == nil {
		t.Fatal("Get returned nil")
	}
	if len(*buf) != 512 {
		t.Errorf("buffer size = %d, want 512", len(*buf))
	}

	// Write some data and return.
	(*buf)[0] = 0xFF
	p.Put(buf)

	// Get another buffer; may or may not be the same one, but it must
	// come back at full length even if the previous user re-sliced it.
	buf2 := p.Get()
	if len(*buf2) != 512 {
		t.Errorf("recycled buffer size = %d, want 512", len(*buf2))
	}
	p.Put(buf2)
}

func TestBytePool_PutResetsLength(t *testing.T) {
	p := NewBytePool(64)

	buf := p.Get()
	*buf = (*buf)[:10]
	p.Put(buf)

	buf2 := p.Get()
	if len(*buf2) != 64 {
		t.Errorf("buffer length after Put = %d, want 64", len(*buf2))
	}
	p.Put(buf2)
}

func TestBytePool_PutNil(t *testing.T) {
	p := NewBytePool(64)
	// Should not panic.
	p.Put(nil)
}

func TestBytePool_PutWrongSize(t *testing.T) {
	p := NewBytePool(64)

	foreign := make([]byte, 8)
	p.Put(&foreign) // dropped, not pooled

	buf := p.Get()
	if len(*buf) != 64 {
		t.Errorf("pool handed out foreign buffer of size %d", len(*buf))
	}
	p.Put(buf)
}

func TestBytePool_Size(t *testing.T) {
	p := NewBytePool(8192)
	if p.Size() != 8192 {
		t.Errorf("Size() = %d, want 8192", p.Size())
	}
}
