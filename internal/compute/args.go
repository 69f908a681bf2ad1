package compute

import (
	"encoding/binary"
	"math"

	"github.com/23skdu/longbow-bodkin/internal/memory"
)

// Arg is one kernel argument: either an inline scalar with a declared
// byte width, or a reference to device memory (a "global" argument).
// The position in the list is the binding slot.
type Arg struct {
	global  bool
	storage memory.Storage
	width   int
	raw     [8]byte
}

// ScalarArg builds a scalar argument from a raw little-endian value.
// Width must be 1, 2, 4 or 8; the binder enforces this at submission.
func ScalarArg(width int, raw [8]byte) Arg {
	return Arg{width: width, raw: raw}
}

// GlobalArg builds a memory argument. A nil storage is valid and
// binds as an explicit null reference.
func GlobalArg(s memory.Storage) Arg {
	return Arg{global: true, storage: s}
}

func Uint8Arg(v uint8) Arg {
	var raw [8]byte
	raw[0] = v
	return Arg{width: 1, raw: raw}
}

func Uint16Arg(v uint16) Arg {
	var raw [8]byte
	binary.LittleEndian.PutUint16(raw[:2], v)
	return Arg{width: 2, raw: raw}
}

func Int32Arg(v int32) Arg {
	var raw [8]byte
	binary.LittleEndian.PutUint32(raw[:4], uint32(v))
	return Arg{width: 4, raw: raw}
}

func Int64Arg(v int64) Arg {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:8], uint64(v))
	return Arg{width: 8, raw: raw}
}

func Float32Arg(v float32) Arg {
	var raw [8]byte
	binary.LittleEndian.PutUint32(raw[:4], math.Float32bits(v))
	return Arg{width: 4, raw: raw}
}

func Float64Arg(v float64) Arg {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:8], math.Float64bits(v))
	return Arg{width: 8, raw: raw}
}

func (a Arg) IsGlobal() bool          { return a.global }
func (a Arg) Width() int              { return a.width }
func (a Arg) Storage() memory.Storage { return a.storage }

// ArgList is the ordered, positional argument list of one dispatch.
type ArgList struct {
	args []Arg
}

func NewArgList(args ...Arg) *ArgList {
	return &ArgList{args: args}
}

// Append adds an argument in the next binding slot.
func (l *ArgList) Append(a Arg) *ArgList {
	l.args = append(l.args, a)
	return l
}

func (l *ArgList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.args)
}

func (l *ArgList) At(i int) Arg { return l.args[i] }
