package compute

import (
	"github.com/rs/zerolog/log"

	"github.com/23skdu/longbow-bodkin/internal/device"
	"github.com/23skdu/longbow-bodkin/internal/memory"
)

// bindArgs translates the argument list into native bindings on the
// command group, in strict slot order 0..N-1.
//
// Scalars are materialized by value at their declared width rather
// than bound as references; the sized copy keeps binding independent
// of the caller's storage for the value. A width outside {1,2,4,8}
// means the caller and the kernel signature disagree, which is a
// programming error rather than a runtime condition, so it panics.
func bindArgs(cg *device.CommandGroup, eng *device.Engine, list *ArgList) {
	for i := 0; i < list.Len(); i++ {
		arg := list.At(i)
		if !arg.IsGlobal() {
			switch arg.Width() {
			case 1, 2, 4, 8:
				cg.SetArg(i, device.ScalarOf(arg.Width(), arg.raw))
			default:
				log.Panic().Int("slot", i).Int("width", arg.Width()).
					Msg("Scalar argument width must be 1, 2, 4 or 8 bytes")
			}
			continue
		}

		st := arg.Storage()
		if st == nil {
			cg.SetArg(i, device.NullArg())
			continue
		}
		if st.Kind() != eng.MemoryModel() {
			// Storage from a different memory model reaching a dispatch
			// is a build/configuration mismatch, never recoverable.
			log.Panic().Int("slot", i).
				Str("storage", st.Kind().String()).
				Str("engine", eng.MemoryModel().String()).
				Msg("Storage memory model does not match engine")
		}
		switch s := st.(type) {
		case *memory.BufferStorage:
			data := s.Buffer().Bytes()
			if data == nil {
				log.Panic().Int("slot", i).Msg("Storage backing was released before binding")
			}
			view := data[s.BaseOffset() : s.BaseOffset()+s.Size()]
			cg.SetArg(i, device.MemOf(view))
		case *memory.USMStorage:
			view := s.Ptr().Bytes()
			if int64(len(view)) > s.Size() {
				view = view[:s.Size()]
			}
			cg.SetArg(i, device.MemOf(view))
		default:
			log.Panic().Int("slot", i).Msgf("Unsupported storage variant %T", st)
		}
	}
}
