package device

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog/log"
)

// Engine owns a device, its context and the memory model every
// allocation and dispatch on it must follow. The model is validated
// here, once, so a misconfigured build is rejected before any kernel
// is dispatched.
type Engine struct {
	dev   *Device
	ctx   *Context
	model MemoryModel
	alloc memory.Allocator

	mu      sync.Mutex
	streams []*Stream
	usm     map[uintptr][]byte
}

// NewEngine creates an engine for the device under the given memory
// model. The legacy vptr model is not supported by this runtime and
// fails here rather than at first dispatch.
func NewEngine(dev *Device, model MemoryModel) (*Engine, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", ErrInvalidArg)
	}
	switch model {
	case MemoryBuffer, MemoryUSM:
	default:
		return nil, fmt.Errorf("%w: memory model %s", ErrUnsupported, model)
	}
	e := &Engine{
		dev:   dev,
		ctx:   NewContext(dev),
		model: model,
		alloc: memory.NewGoAllocator(),
		usm:   map[uintptr][]byte{},
	}
	log.Debug().Str("device", dev.Name).Str("model", model.String()).Msg("Engine created")
	return e, nil
}

func (e *Engine) Device() *Device          { return e.dev }
func (e *Engine) Context() *Context        { return e.ctx }
func (e *Engine) MemoryModel() MemoryModel { return e.model }

// AllocBuffer allocates an opaque device buffer. Only valid under the
// buffer memory model.
func (e *Engine) AllocBuffer(size int64) (*Buffer, error) {
	if e.model != MemoryBuffer {
		return nil, fmt.Errorf("%w: buffer allocation under %s model", ErrUnsupported, e.model)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: negative buffer size %d", ErrInvalidArg, size)
	}
	return newBuffer(e.alloc, size), nil
}

// AllocUSM allocates unified shared memory. Only valid under the USM
// memory model.
func (e *Engine) AllocUSM(size int64) (DevicePtr, error) {
	if e.model != MemoryUSM {
		return DevicePtr{}, fmt.Errorf("%w: usm allocation under %s model", ErrUnsupported, e.model)
	}
	if size < 0 {
		return DevicePtr{}, fmt.Errorf("%w: negative usm size %d", ErrInvalidArg, size)
	}
	if size == 0 {
		return DevicePtr{}, nil
	}
	buf := e.alloc.Allocate(int(size))
	p := DevicePtr{ptr: unsafe.Pointer(&buf[0]), size: int(size)}
	e.mu.Lock()
	e.usm[uintptr(p.ptr)] = buf
	e.mu.Unlock()
	usmBytesInUse.Add(float64(size))
	return p, nil
}

// FreeUSM releases a USM allocation made by this engine.
func (e *Engine) FreeUSM(p DevicePtr) error {
	if p.IsNil() {
		return nil
	}
	e.mu.Lock()
	buf, ok := e.usm[uintptr(p.ptr)]
	if ok {
		delete(e.usm, uintptr(p.ptr))
	}
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: pointer not allocated by this engine", ErrDoubleFree)
	}
	e.alloc.Free(buf)
	usmBytesInUse.Sub(float64(len(buf)))
	return nil
}

func (e *Engine) addStream(s *Stream) {
	e.mu.Lock()
	e.streams = append(e.streams, s)
	e.mu.Unlock()
}

// Wait blocks until every stream created on this engine has drained.
// Host mappings use this to synchronize with pending device writes.
func (e *Engine) Wait() {
	e.mu.Lock()
	streams := append([]*Stream(nil), e.streams...)
	e.mu.Unlock()
	for _, s := range streams {
		s.Wait()
	}
}
