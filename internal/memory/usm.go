package memory

import (
	"fmt"
	"sync"

	"github.com/23skdu/longbow-bodkin/internal/device"
)

var _ Storage = (*USMStorage)(nil)

// USMStorage backs a logical allocation with a raw device pointer.
// The handle always points at the logical start, so BaseOffset is
// zero by construction; SetOffset advances the pointer instead.
type USMStorage struct {
	eng  *device.Engine
	size int64

	mu       sync.Mutex
	base     device.DevicePtr // handle as supplied or allocated
	off      int64
	owned    bool
	mapped   []byte
	released bool
}

func newUSMStorage(eng *device.Engine, size int64) (*USMStorage, error) {
	p, err := eng.AllocUSM(size)
	if err != nil {
		return nil, err
	}
	storagesCreated.WithLabelValues(device.MemoryUSM.String()).Inc()
	return &USMStorage{eng: eng, size: size, base: p, owned: true}, nil
}

func (s *USMStorage) Kind() device.MemoryModel { return device.MemoryUSM }
func (s *USMStorage) Engine() *device.Engine   { return s.eng }
func (s *USMStorage) Size() int64              { return s.size }

func (s *USMStorage) DataHandle() any {
	return s.Ptr()
}

// Ptr returns the pointer to the logical start of the data.
func (s *USMStorage) Ptr() device.DevicePtr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.Offset(int(s.off))
}

// SetDataHandle rebinds the storage to an externally owned pointer.
// The previous backing is freed if this storage allocated it; the new
// one is never freed by the storage.
func (s *USMStorage) SetDataHandle(h any) error {
	p, ok := h.(device.DevicePtr)
	if !ok {
		return fmt.Errorf("%w: usm storage requires a device.DevicePtr handle, got %T", device.ErrInvalidArg, h)
	}
	s.mu.Lock()
	old := s.base
	ownedOld := s.owned
	s.base = p
	s.off = 0
	s.owned = false
	s.mu.Unlock()
	if ownedOld {
		return s.eng.FreeUSM(old)
	}
	return nil
}

func (s *USMStorage) Map() ([]byte, error) {
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
	view := s.base.Offset(int(s.off)).Bytes()
	if int64(len(view)) < s.size {
		return nil, fmt.Errorf("%w: view of %d bytes exceeds allocation", device.ErrInvalidArg, s.size)
	}
	if view == nil {
		// Zero-size storage still gets a live mapping so the pairing
		// guards hold.
		view = make([]byte, 0)
	}
	s.mapped = view[:s.size]
	return s.mapped, nil
}

func (s *USMStorage) Unmap(mapped []byte) error {
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

// BaseOffset is always zero: the USM handle itself points at the
// logical start.
func (s *USMStorage) BaseOffset() int64 { return 0 }

func (s *USMStorage) SetOffset(off int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off < 0 {
		return fmt.Errorf("%w: negative offset %d", device.ErrInvalidArg, off)
	}
	if off+s.size > int64(s.base.Size()) {
		return fmt.Errorf("%w: offset %d with size %d exceeds allocation of %d bytes",
			device.ErrInvalidArg, off, s.size, s.base.Size())
	}
	s.off = off
	return nil
}

// Release frees the backing allocation if this storage owns it.
func (s *USMStorage) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return fmt.Errorf("%w: storage already released", device.ErrDoubleFree)
	}
	s.released = true
	if s.owned {
		return s.eng.FreeUSM(s.base)
	}
	return nil
}
