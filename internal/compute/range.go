// Package compute holds the dispatch core: iteration ranges, kernel
// argument lists, the argument binder and the compiled-kernel wrapper
// that submits work to a stream's queue.
package compute

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/23skdu/longbow-bodkin/internal/device"
)

// Range is the iteration space of one dispatch: up to three global
// extents plus an optional local (work-group) shape. The zero value
// is the zero sentinel, a valid range meaning no work to dispatch.
type Range struct {
	dims     int
	global   [3]int
	local    [3]int
	hasLocal bool
}

// ZeroRange dispatches nothing.
var ZeroRange = Range{}

// NewRange builds a flat range over 1 to 3 global extents.
func NewRange(global ...int) Range {
	if len(global) == 0 || len(global) > 3 {
		log.Panic().Int("dims", len(global)).Msg("Range requires 1 to 3 dimensions")
	}
	r := Range{dims: len(global)}
	copy(r.global[:], global)
	return r
}

// NewGroupedRange builds a range with an explicit work-group shape.
// The local extent must evenly divide the global extent in every
// dimension.
func NewGroupedRange(global, local []int) (Range, error) {
	if len(global) == 0 || len(global) > 3 || len(global) != len(local) {
		return Range{}, fmt.Errorf("%w: malformed range: %d global / %d local dims",
			device.ErrInvalidArg, len(global), len(local))
	}
	r := Range{dims: len(global), hasLocal: true}
	copy(r.global[:], global)
	copy(r.local[:], local)
	for d := 0; d < r.dims; d++ {
		if local[d] <= 0 {
			return Range{}, fmt.Errorf("%w: malformed range: local extent %d in dim %d",
				device.ErrInvalidArg, local[d], d)
		}
		if global[d]%local[d] != 0 {
			return Range{}, fmt.Errorf("%w: malformed range: global %d not divisible by local %d in dim %d",
				device.ErrInvalidArg, global[d], local[d], d)
		}
	}
	return r, nil
}

func (r Range) Dims() int      { return r.dims }
func (r Range) HasLocal() bool { return r.hasLocal }
func (r Range) Global() [3]int { return r.global }
func (r Range) Local() [3]int  { return r.local }

// GlobalSize returns the total number of work-items.
func (r Range) GlobalSize() int {
	if r.dims == 0 {
		return 0
	}
	total := 1
	for d := 0; d < r.dims; d++ {
		total *= r.global[d]
	}
	return total
}

// IsZero reports whether this is the zero sentinel: no dimensions, or
// any global extent of zero.
func (r Range) IsZero() bool {
	if r.dims == 0 {
		return true
	}
	for d := 0; d < r.dims; d++ {
		if r.global[d] == 0 {
			return true
		}
	}
	return false
}
