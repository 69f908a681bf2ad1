package device

import "unsafe"

// DevicePtr is a raw USM allocation: an address usable directly by
// host and device code. The pointer already points at the logical
// start of the data, so storage built on top of it never carries a
// separate base offset.
type DevicePtr struct {
	ptr  unsafe.Pointer
	size int
}

func (d DevicePtr) IsNil() bool { return d.ptr == nil }

// Size returns the size in bytes of the region behind the pointer.
func (d DevicePtr) Size() int { return d.size }

// Offset returns a pointer advanced by the given number of bytes.
// The result shares the underlying allocation.
func (d DevicePtr) Offset(bytes int) DevicePtr {
	if d.ptr == nil {
		return d
	}
	return DevicePtr{
		ptr:  unsafe.Pointer(uintptr(d.ptr) + uintptr(bytes)),
		size: d.size - bytes,
	}
}

// Bytes returns a byte view over the whole region.
func (d DevicePtr) Bytes() []byte {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(d.ptr), d.size)
}

// Float32s returns a float32 view of the region.
func (d DevicePtr) Float32s() []float32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float32)(d.ptr), d.size/4)
}

// Float64s returns a float64 view of the region.
func (d DevicePtr) Float64s() []float64 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float64)(d.ptr), d.size/8)
}
