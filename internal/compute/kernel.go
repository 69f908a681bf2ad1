package compute

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/23skdu/longbow-bodkin/internal/device"
)

var tracer = otel.Tracer("bodkin/compute")

// Kernel wraps a compiled kernel handle for dispatch. The wrapper
// exclusively owns the native object: Close releases it exactly once,
// and a released kernel can no longer be dispatched.
type Kernel struct {
	mu     sync.Mutex
	handle *device.KernelHandle
}

func NewKernel(h *device.KernelHandle) *Kernel {
	return &Kernel{handle: h}
}

func (k *Kernel) Name() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.handle == nil {
		return ""
	}
	return k.handle.Name()
}

// Close releases the native kernel object. The nil check makes a
// second release structurally impossible.
func (k *Kernel) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.handle != nil {
		k.handle.Release()
		k.handle = nil
	}
}

// ParallelFor submits one asynchronous execution of the kernel over
// the iteration range, with the arguments bound in slot order.
//
// A zero range is a valid no-op and returns success without touching
// the queue. The call is synchronous up to enqueue; completion is
// observed through the stream's Wait.
func (k *Kernel) ParallelFor(ctx context.Context, s *device.Stream, r Range, args *ArgList) error {
	if r.IsZero() {
		dispatchNoops.Inc()
		return nil
	}
	if s == nil {
		return fmt.Errorf("%w: nil stream", device.ErrInvalidArg)
	}

	k.mu.Lock()
	handle := k.handle
	k.mu.Unlock()
	if handle == nil {
		return fmt.Errorf("%w: dispatch on released kernel", device.ErrRuntime)
	}
	if want := len(handle.Args()); want != args.Len() {
		return fmt.Errorf("%w: kernel %q takes %d arguments, got %d",
			device.ErrInvalidArg, handle.Name(), want, args.Len())
	}

	eng := s.Engine()
	queue := s.Queue()

	// The native kernel is rebuilt against the engine's context on
	// every call; the compiled handle itself is cached by the caller.
	nk, err := device.NewKernel(handle, eng.Context())
	if err != nil {
		dispatchErrors.Inc()
		return err
	}

	_, span := tracer.Start(ctx, "bodkin.parallel_for", trace.WithAttributes(
		attribute.String("kernel", nk.Name()),
		attribute.Int("global_size", r.GlobalSize()),
		attribute.Bool("grouped", r.HasLocal()),
	))
	defer span.End()

	err = queue.Submit(func(cg *device.CommandGroup) error {
		bindArgs(cg, eng, args)
		if r.HasLocal() {
			cg.ParallelForGrouped(nk, r.Dims(), r.Global(), r.Local())
		} else {
			cg.ParallelFor(nk, r.Dims(), r.Global())
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		dispatchErrors.Inc()
		return fmt.Errorf("submitting kernel %q: %w", nk.Name(), err)
	}

	dispatchesTotal.Inc()
	log.Debug().Str("kernel", nk.Name()).Int("global_size", r.GlobalSize()).
		Bool("grouped", r.HasLocal()).Msg("Dispatched kernel")
	return nil
}
