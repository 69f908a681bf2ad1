package device

import (
	"fmt"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Buffer is an opaque device allocation under the buffer memory model.
// It is refcounted: every owner holds its own reference and drops it
// with Release. The backing bytes are freed exactly once, when the
// last reference goes away.
type Buffer struct {
	alloc memory.Allocator
	data  []byte
	size  int64
	refs  atomic.Int32
}

func newBuffer(alloc memory.Allocator, size int64) *Buffer {
	b := &Buffer{
		alloc: alloc,
		data:  alloc.Allocate(int(size)),
		size:  size,
	}
	b.refs.Store(1)
	buffersAllocated.Inc()
	bufferBytesInUse.Add(float64(size))
	return b
}

func (b *Buffer) Size() int64 { return b.size }

// Retain takes an additional independent reference. Each Retain must
// be balanced by one Release.
func (b *Buffer) Retain() *Buffer {
	b.refs.Add(1)
	return b
}

// Release drops one reference and frees the backing allocation when
// the count reaches zero. Releasing an already freed buffer fails
// with ErrDoubleFree.
func (b *Buffer) Release() error {
	n := b.refs.Add(-1)
	if n < 0 {
		b.refs.Add(1)
		return fmt.Errorf("%w: buffer released more times than retained", ErrDoubleFree)
	}
	if n == 0 {
		b.alloc.Free(b.data)
		b.data = nil
		buffersReleased.Inc()
		bufferBytesInUse.Sub(float64(b.size))
	}
	return nil
}

// Bytes exposes the backing storage. Valid only while at least one
// reference is held.
func (b *Buffer) Bytes() []byte { return b.data }
