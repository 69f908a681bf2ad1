package device

import (
	"encoding/binary"
	"math"
	"unsafe"
)

type argClass uint8

const (
	argScalar argClass = iota
	argMem
	argNull
)

// BoundArg is an argument as bound into a command group: a sized
// scalar materialized by value, a host-visible view over device
// memory, or an explicit null reference.
type BoundArg struct {
	class argClass
	width int
	raw   [8]byte
	mem   []byte
}

// ScalarOf binds a scalar by value. The raw buffer is interpreted
// little-endian at the declared width.
func ScalarOf(width int, raw [8]byte) BoundArg {
	return BoundArg{class: argScalar, width: width, raw: raw}
}

// MemOf binds a read-write view over device memory.
func MemOf(view []byte) BoundArg {
	return BoundArg{class: argMem, mem: view}
}

// NullArg binds an explicit null memory reference.
func NullArg() BoundArg {
	return BoundArg{class: argNull}
}

func (a BoundArg) IsNull() bool   { return a.class == argNull }
func (a BoundArg) IsScalar() bool { return a.class == argScalar }
func (a BoundArg) IsMem() bool    { return a.class == argMem }

// Width returns the declared byte width of a scalar argument.
func (a BoundArg) Width() int { return a.width }

// Uint64 reinterprets the scalar at its declared width.
func (a BoundArg) Uint64() uint64 {
	switch a.width {
	case 1:
		return uint64(a.raw[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(a.raw[:2]))
	case 4:
		return uint64(binary.LittleEndian.Uint32(a.raw[:4]))
	default:
		return binary.LittleEndian.Uint64(a.raw[:8])
	}
}

func (a BoundArg) Uint8() uint8     { return a.raw[0] }
func (a BoundArg) Int32() int32     { return int32(binary.LittleEndian.Uint32(a.raw[:4])) }
func (a BoundArg) Int64() int64     { return int64(binary.LittleEndian.Uint64(a.raw[:8])) }
func (a BoundArg) Float32() float32 { return math.Float32frombits(binary.LittleEndian.Uint32(a.raw[:4])) }
func (a BoundArg) Float64() float64 { return math.Float64frombits(binary.LittleEndian.Uint64(a.raw[:8])) }

// Bytes returns the bound memory view, nil for null references.
func (a BoundArg) Bytes() []byte { return a.mem }

// Float32s reinterprets the bound memory view as float32s.
func (a BoundArg) Float32s() []float32 {
	if len(a.mem) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&a.mem[0])), len(a.mem)/4)
}

// Float64s reinterprets the bound memory view as float64s.
func (a BoundArg) Float64s() []float64 {
	if len(a.mem) < 8 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&a.mem[0])), len(a.mem)/8)
}
