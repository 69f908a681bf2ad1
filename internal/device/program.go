package device

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"
)

// ArgKind classifies a kernel parameter in a program manifest.
type ArgKind uint8

const (
	// ArgScalar is an inline value with a fixed byte width.
	ArgScalar ArgKind = iota
	// ArgGlobal refers to device memory.
	ArgGlobal
)

// ArgSpec declares one kernel parameter.
type ArgSpec struct {
	Kind  ArgKind `cbor:"kind"`
	Width int     `cbor:"width,omitempty"`
}

// KernelSpec declares one kernel entry point and its signature.
type KernelSpec struct {
	Name string    `cbor:"name"`
	Args []ArgSpec `cbor:"args"`
}

// Manifest is the decoded form of a compiled program blob. Kernel
// bodies live in the implementation registry; the manifest carries the
// metadata the binder validates against.
type Manifest struct {
	Name    string       `cbor:"name"`
	Kernels []KernelSpec `cbor:"kernels"`
}

// EncodeManifest serializes a manifest into the program blob format.
func EncodeManifest(m Manifest) ([]byte, error) {
	return cbor.Marshal(m)
}

// KernelFunc is the body of a device kernel, invoked once per
// work-item with the arguments bound for the enclosing submission.
type KernelFunc func(it Item, args []BoundArg)

var (
	registryMu sync.RWMutex
	registry   = map[string]KernelFunc{}
)

// RegisterKernel installs the implementation for a kernel entry point.
// Registering the same name twice is a programming error.
func RegisterKernel(name string, fn KernelFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("device: kernel %q registered twice", name))
	}
	registry[name] = fn
}

func lookupKernel(name string) (KernelFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// KernelHandle is a compiled kernel entry: the native object a
// dispatch wrapper owns. It is released exactly once; construction of
// context-bound kernels from a released handle fails.
type KernelHandle struct {
	name     string
	spec     KernelSpec
	fn       KernelFunc
	released atomic.Bool
}

func (h *KernelHandle) Name() string { return h.name }

// Args returns the declared parameter signature.
func (h *KernelHandle) Args() []ArgSpec { return h.spec.Args }

// Release drops the native kernel object. Safe to call once; the
// owning wrapper guards against further calls.
func (h *KernelHandle) Release() {
	h.released.Store(true)
}

// Program is a loaded compiled program: manifest metadata resolved
// against registered kernel implementations.
type Program struct {
	name    string
	kernels map[string]*KernelHandle
}

// LoadProgram decodes a CBOR program blob and resolves every declared
// kernel against the implementation registry.
func LoadProgram(blob []byte) (*Program, error) {
	var m Manifest
	if err := cbor.Unmarshal(blob, &m); err != nil {
		return nil, fmt.Errorf("%w: decoding program manifest: %v", ErrRuntime, err)
	}
	p := &Program{name: m.Name, kernels: make(map[string]*KernelHandle, len(m.Kernels))}
	for _, ks := range m.Kernels {
		fn, ok := lookupKernel(ks.Name)
		if !ok {
			return nil, fmt.Errorf("%w: kernel %q has no registered implementation", ErrRuntime, ks.Name)
		}
		p.kernels[ks.Name] = &KernelHandle{name: ks.Name, spec: ks, fn: fn}
	}
	return p, nil
}

func (p *Program) Name() string { return p.name }

// Kernel returns the handle for a kernel entry point.
func (p *Program) Kernel(name string) (*KernelHandle, error) {
	h, ok := p.kernels[name]
	if !ok {
		return nil, fmt.Errorf("%w: program %q has no kernel %q", ErrRuntime, p.name, name)
	}
	return h, nil
}
