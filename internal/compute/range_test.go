package compute

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/23skdu/longbow-bodkin/internal/device"
)

func TestRange_Flat(t *testing.T) {
	r := NewRange(4, 5, 6)
	require.Equal(t, 3, r.Dims())
	require.False(t, r.HasLocal())
	require.Equal(t, [3]int{4, 5, 6}, r.Global())
	require.Equal(t, 120, r.GlobalSize())
	require.False(t, r.IsZero())
}

func TestRange_ZeroSentinel(t *testing.T) {
	require.True(t, ZeroRange.IsZero())
	require.Equal(t, 0, ZeroRange.GlobalSize())

	// Any zero extent collapses the range to the sentinel.
	require.True(t, NewRange(0).IsZero())
	require.True(t, NewRange(4, 0, 6).IsZero())
	require.False(t, NewRange(1).IsZero())
}

func TestNewGroupedRange(t *testing.T) {
	r, err := NewGroupedRange([]int{64, 32}, []int{8, 4})
	require.NoError(t, err)
	require.True(t, r.HasLocal())
	require.Equal(t, [3]int{8, 4, 0}, r.Local())
	require.Equal(t, 2048, r.GlobalSize())

	t.Run("DimMismatch", func(t *testing.T) {
		_, err := NewGroupedRange([]int{64, 32}, []int{8})
		require.ErrorIs(t, err, device.ErrInvalidArg)
	})

	t.Run("NonDivisible", func(t *testing.T) {
		_, err := NewGroupedRange([]int{10}, []int{3})
		require.ErrorIs(t, err, device.ErrInvalidArg)
	})

	t.Run("ZeroLocal", func(t *testing.T) {
		_, err := NewGroupedRange([]int{8}, []int{0})
		require.ErrorIs(t, err, device.ErrInvalidArg)
	})

	t.Run("TooManyDims", func(t *testing.T) {
		_, err := NewGroupedRange([]int{2, 2, 2, 2}, []int{1, 1, 1, 1})
		require.ErrorIs(t, err, device.ErrInvalidArg)
	})
}

func TestArgConstructors(t *testing.T) {
	require.Equal(t, 1, Uint8Arg(7).Width())
	require.Equal(t, 2, Uint16Arg(7).Width())
	require.Equal(t, 4, Int32Arg(7).Width())
	require.Equal(t, 8, Int64Arg(7).Width())
	require.Equal(t, 4, Float32Arg(1.5).Width())
	require.Equal(t, 8, Float64Arg(1.5).Width())

	require.False(t, Int32Arg(7).IsGlobal())
	require.True(t, GlobalArg(nil).IsGlobal())
	require.Nil(t, GlobalArg(nil).Storage())
}

func TestArgList(t *testing.T) {
	var nilList *ArgList
	require.Equal(t, 0, nilList.Len())

	l := NewArgList(Int32Arg(1))
	l.Append(GlobalArg(nil))
	require.Equal(t, 2, l.Len())
	require.False(t, l.At(0).IsGlobal())
	require.True(t, l.At(1).IsGlobal())
}
