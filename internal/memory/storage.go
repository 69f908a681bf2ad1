// Package memory provides the storage abstraction that unifies the
// runtime's two memory models (opaque buffer objects and raw USM
// pointers) behind one interface. The variant is resolved once at
// construction from the owning engine's memory model; callers query
// Kind before any variant-specific operation instead of branching per
// call.
package memory

import (
	"fmt"

	"github.com/23skdu/longbow-bodkin/internal/device"
)

// Storage is one logical device allocation. Exactly one backing
// representation (buffer object or USM pointer) is active per
// instance; offsets are always relative to the backing allocation.
type Storage interface {
	// Kind returns the memory API variant resolved at construction.
	Kind() device.MemoryModel

	// Engine returns the owning engine.
	Engine() *device.Engine

	// Size returns the logical size in bytes.
	Size() int64

	// DataHandle returns the backing native handle: *device.Buffer for
	// buffer storage, device.DevicePtr for USM storage. Never fails
	// for a validly constructed storage.
	DataHandle() any

	// SetDataHandle rebinds the storage to an externally owned handle.
	// Buffer storage takes an independent reference on the supplied
	// buffer; USM storage aliases the pointer without owning it.
	SetDataHandle(h any) error

	// Map returns a host-visible view of the device memory, blocking
	// until pending device work on the owning engine completes. Every
	// Map must be paired with exactly one Unmap; the view is only
	// valid between the two calls.
	Map() ([]byte, error)

	// Unmap releases a mapping previously returned by Map.
	Unmap(mapped []byte) error

	// BaseOffset returns the byte offset of the logical start within
	// the backing allocation. Always zero for USM storage.
	BaseOffset() int64

	// SetOffset moves the logical start within the backing allocation.
	SetOffset(off int64) error

	// Release drops the backing resource. Exactly-once; the backing is
	// freed only if this storage owns the last reference.
	Release() error
}

// NewStorage allocates storage of the engine's memory model. Invalid
// size/alignment combinations fail here, not at first use.
func NewStorage(eng *device.Engine, size, alignment int64) (Storage, error) {
	if err := validate(eng, size, alignment); err != nil {
		return nil, err
	}
	switch eng.MemoryModel() {
	case device.MemoryBuffer:
		return newBufferStorage(eng, size)
	case device.MemoryUSM:
		return newUSMStorage(eng, size)
	default:
		return nil, fmt.Errorf("%w: memory model %s", device.ErrUnsupported, eng.MemoryModel())
	}
}

// WrapHandle builds storage around an externally supplied handle
// without allocating: a *device.Buffer under the buffer model, a
// device.DevicePtr under the USM model. The caller keeps ownership of
// USM pointers; buffer handles gain an independent reference.
func WrapHandle(eng *device.Engine, h any, size int64) (Storage, error) {
	if err := validate(eng, size, 0); err != nil {
		return nil, err
	}
	switch eng.MemoryModel() {
	case device.MemoryBuffer:
		s := &BufferStorage{eng: eng, size: size}
		if err := s.SetDataHandle(h); err != nil {
			return nil, err
		}
		return s, nil
	case device.MemoryUSM:
		s := &USMStorage{eng: eng, size: size}
		if err := s.SetDataHandle(h); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: memory model %s", device.ErrUnsupported, eng.MemoryModel())
	}
}

func validate(eng *device.Engine, size, alignment int64) error {
	if eng == nil {
		return fmt.Errorf("%w: nil engine", device.ErrInvalidArg)
	}
	if size < 0 {
		return fmt.Errorf("%w: negative storage size %d", device.ErrInvalidArg, size)
	}
	if alignment < 0 || (alignment != 0 && alignment&(alignment-1) != 0) {
		return fmt.Errorf("%w: alignment %d is not a power of two", device.ErrInvalidArg, alignment)
	}
	return nil
}
