package device

import (
	"runtime"
	"sync/atomic"
)

// MemoryModel selects how device memory is exposed: opaque buffer
// objects with scoped access, raw USM pointers, or the legacy virtual
// pointer scheme. Exactly one model is active per engine; it is fixed
// at engine construction and every component behaves as if only that
// model exists.
type MemoryModel int

const (
	// MemoryBuffer exposes allocations as opaque, refcounted buffer
	// objects accessed through scoped views.
	MemoryBuffer MemoryModel = iota

	// MemoryUSM exposes allocations as raw addressable pointers usable
	// directly by host and device.
	MemoryUSM

	// MemoryVPtr is the legacy virtual-pointer model. Not supported by
	// this runtime; engine construction rejects it.
	MemoryVPtr
)

func (m MemoryModel) String() string {
	switch m {
	case MemoryBuffer:
		return "buffer"
	case MemoryUSM:
		return "usm"
	case MemoryVPtr:
		return "vptr"
	default:
		return "unknown"
	}
}

// Device describes one compute device of the emulated runtime.
type Device struct {
	ID           int
	Name         string
	TotalMem     uint64
	MaxGroupSize int
}

// DefaultDevice returns the host-emulated device.
func DefaultDevice() *Device {
	return &Device{
		ID:           0,
		Name:         "bodkin-emulated",
		TotalMem:     16 * 1024 * 1024 * 1024,
		MaxGroupSize: 1024,
	}
}

var contextIDs atomic.Uint64

// Context binds a device for kernel construction. Native kernel
// objects are only valid against the context they were built for.
type Context struct {
	id  uint64
	dev *Device
}

func NewContext(dev *Device) *Context {
	return &Context{id: contextIDs.Add(1), dev: dev}
}

func (c *Context) Device() *Device { return c.dev }

// workers bounds work-item parallelism during kernel execution.
var workers = runtime.NumCPU()
