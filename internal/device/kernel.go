package device

import "fmt"

// Kernel is a native kernel object bound to a context, constructed per
// dispatch from a compiled KernelHandle.
type Kernel struct {
	name string
	fn   KernelFunc
	ctx  *Context
}

// NewKernel builds a context-bound kernel from a compiled handle.
// An invalid or released handle is a native-runtime error.
func NewKernel(h *KernelHandle, ctx *Context) (*Kernel, error) {
	if h == nil || h.fn == nil {
		return nil, fmt.Errorf("%w: invalid kernel handle", ErrRuntime)
	}
	if h.released.Load() {
		return nil, fmt.Errorf("%w: kernel %q was released", ErrRuntime, h.name)
	}
	if ctx == nil {
		return nil, fmt.Errorf("%w: nil context", ErrRuntime)
	}
	return &Kernel{name: h.name, fn: h.fn, ctx: ctx}, nil
}

func (k *Kernel) Name() string { return k.name }
