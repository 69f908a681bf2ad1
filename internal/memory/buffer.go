package memory

import (
	"fmt"
	"sync"

	"github.com/23skdu/longbow-bodkin/internal/device"
)

var _ Storage = (*BufferStorage)(nil)

// BufferStorage backs a logical allocation with a refcounted buffer
// object. It may represent a sub-view: BaseOffset is the byte offset
// of the logical start within the backing buffer.
type BufferStorage struct {
	eng  *device.Engine
	size int64

	mu       sync.Mutex
	buf      *device.Buffer
	offset   int64
	mapped   []byte
	released bool
}

func newBufferStorage(eng *device.Engine, size int64) (*BufferStorage, error) {
	buf, err := eng.AllocBuffer(size)
	if err != nil {
		return nil, err
	}
	storagesCreated.WithLabelValues(device.MemoryBuffer.String()).Inc()
	return &BufferStorage{eng: eng, size: size, buf: buf}, nil
}

func (s *BufferStorage) Kind() device.MemoryModel { return device.MemoryBuffer }
func (s *BufferStorage) Engine() *device.Engine   { return s.eng }
func (s *BufferStorage) Size() int64              { return s.size }

func (s *BufferStorage) DataHandle() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf
}

// Buffer returns the backing buffer object.
func (s *BufferStorage) Buffer() *device.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf
}

// SetDataHandle rebinds the storage to an externally supplied buffer.
// The storage takes its own reference on the new buffer, so aliasing
// storages each hold an independent ownership entry, and drops its
// reference on the old one.
func (s *BufferStorage) SetDataHandle(h any) error {
	buf, ok := h.(*device.Buffer)
	if !ok || buf == nil {
		return fmt.Errorf("%w: buffer storage requires a *device.Buffer handle, got %T", device.ErrInvalidArg, h)
	}
	buf.Retain()
	s.mu.Lock()
	old := s.buf
	s.buf = buf
	s.mu.Unlock()
	if old != nil {
		return old.Release()
	}
	return nil
}

func (s *BufferStorage) Map() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, fmt.Errorf("%w: map of released storage", device.ErrInvalidArg)
	}
	if s.mapped != nil {
		return nil, fmt.Errorf("%w: storage is already mapped", device.ErrInvalidArg)
	}
	mapWaits.Inc()
	s.eng.Wait()
	data := s.buf.Bytes()
	if s.offset+s.size > int64(len(data)) {
		return nil, fmt.Errorf("%w: view [%d:%d) exceeds buffer of %d bytes",
			device.ErrInvalidArg, s.offset, s.offset+s.size, len(data))
	}
	s.mapped = data[s.offset : s.offset+s.size]
	return s.mapped, nil
}

func (s *BufferStorage) Unmap(mapped []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapped == nil {
		return fmt.Errorf("%w: storage is not mapped", device.ErrInvalidArg)
	}
	if !sameView(mapped, s.mapped) {
		return fmt.Errorf("%w: unmap of a foreign mapping", device.ErrInvalidArg)
	}
	s.mapped = nil
	return nil
}

func (s *BufferStorage) BaseOffset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

func (s *BufferStorage) SetOffset(off int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off < 0 {
		return fmt.Errorf("%w: negative offset %d", device.ErrInvalidArg, off)
	}
	if s.buf != nil && off+s.size > s.buf.Size() {
		return fmt.Errorf("%w: offset %d with size %d exceeds buffer of %d bytes",
			device.ErrInvalidArg, off, s.size, s.buf.Size())
	}
	s.offset = off
	return nil
}

// Release drops this storage's reference on the backing buffer.
func (s *BufferStorage) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return fmt.Errorf("%w: storage already released", device.ErrDoubleFree)
	}
	s.released = true
	return s.buf.Release()
}

func sameView(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}
