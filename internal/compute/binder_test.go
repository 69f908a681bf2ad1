package compute

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/23skdu/longbow-bodkin/internal/device"
	"github.com/23skdu/longbow-bodkin/internal/memory"
)

func TestBindArgs_SlotOrder(t *testing.T) {
	eng, err := device.NewEngine(device.DefaultDevice(), device.MemoryBuffer)
	require.NoError(t, err)

	st, err := memory.NewStorage(eng, 64, 0)
	require.NoError(t, err)
	defer st.Release()

	list := NewArgList(
		Uint8Arg(1),
		GlobalArg(st),
		Float64Arg(2.5),
		GlobalArg(nil),
		Int64Arg(-9),
	)

	cg := &device.CommandGroup{}
	bindArgs(cg, eng, list)

	order := cg.ArgOrder()
	require.Len(t, order, list.Len())
	for i, slot := range order {
		require.Equal(t, i, slot, "slot %d bound out of order", slot)
	}

	bound := cg.Args()
	require.Equal(t, uint64(1), bound[0].Uint64())
	require.True(t, bound[1].IsMem())
	require.Equal(t, 2.5, bound[2].Float64())
	require.True(t, bound[3].IsNull())
	require.Equal(t, int64(-9), bound[4].Int64())
}

func TestBindArgs_BufferViewHonorsOffset(t *testing.T) {
	eng, err := device.NewEngine(device.DefaultDevice(), device.MemoryBuffer)
	require.NoError(t, err)

	buf, err := eng.AllocBuffer(1024)
	require.NoError(t, err)
	defer buf.Release()
	buf.Bytes()[512] = 0x42

	st, err := memory.WrapHandle(eng, buf, 128)
	require.NoError(t, err)
	defer st.Release()
	require.NoError(t, st.SetOffset(512))

	cg := &device.CommandGroup{}
	bindArgs(cg, eng, NewArgList(GlobalArg(st)))

	view := cg.Args()[0].Bytes()
	require.Len(t, view, 128)
	require.Equal(t, byte(0x42), view[0])
}

func TestBindArgs_USMView(t *testing.T) {
	eng, err := device.NewEngine(device.DefaultDevice(), device.MemoryUSM)
	require.NoError(t, err)

	p, err := eng.AllocUSM(256)
	require.NoError(t, err)
	defer eng.FreeUSM(p)
	p.Bytes()[32] = 0x99

	st, err := memory.WrapHandle(eng, p, 64)
	require.NoError(t, err)
	defer st.Release()
	require.NoError(t, st.SetOffset(32))

	cg := &device.CommandGroup{}
	bindArgs(cg, eng, NewArgList(GlobalArg(st)))

	view := cg.Args()[0].Bytes()
	require.Len(t, view, 64)
	require.Equal(t, byte(0x99), view[0])
}

func TestBindArgs_BadScalarWidthPanics(t *testing.T) {
	eng, err := device.NewEngine(device.DefaultDevice(), device.MemoryBuffer)
	require.NoError(t, err)

	cg := &device.CommandGroup{}
	require.Panics(t, func() {
		bindArgs(cg, eng, NewArgList(ScalarArg(3, [8]byte{})))
	})
}

func TestBindArgs_ReleasedStoragePanics(t *testing.T) {
	eng, err := device.NewEngine(device.DefaultDevice(), device.MemoryBuffer)
	require.NoError(t, err)

	st, err := memory.NewStorage(eng, 64, 0)
	require.NoError(t, err)
	require.NoError(t, st.Release())

	// The freed backing must hit the deliberate fatal path, not a raw
	// slice panic.
	cg := &device.CommandGroup{}
	require.PanicsWithValue(t, "Storage backing was released before binding", func() {
		bindArgs(cg, eng, NewArgList(GlobalArg(st)))
	})
}

func TestBindArgs_ModelMismatchPanics(t *testing.T) {
	bufEng, err := device.NewEngine(device.DefaultDevice(), device.MemoryBuffer)
	require.NoError(t, err)
	usmEng, err := device.NewEngine(device.DefaultDevice(), device.MemoryUSM)
	require.NoError(t, err)

	st, err := memory.NewStorage(bufEng, 64, 0)
	require.NoError(t, err)
	defer st.Release()

	cg := &device.CommandGroup{}
	require.Panics(t, func() {
		bindArgs(cg, usmEng, NewArgList(GlobalArg(st)))
	})
}
