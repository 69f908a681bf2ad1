package device

import (
	"errors"
	"testing"
)

func init() {
	RegisterKernel("test_noop", func(it Item, args []BoundArg) {})
}

func testManifest() []byte {
	blob, err := EncodeManifest(Manifest{
		Name: "test_prog",
		Kernels: []KernelSpec{{
			Name: "test_noop",
			Args: []ArgSpec{
				{Kind: ArgScalar, Width: 4},
				{Kind: ArgGlobal},
			},
		}},
	})
	if err != nil {
		panic(err)
	}
	return blob
}

func TestLoadProgram(t *testing.T) {
	p, err := LoadProgram(testManifest())
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	if p.Name() != "test_prog" {
		t.Errorf("Program name %q", p.Name())
	}

	h, err := p.Kernel("test_noop")
	if err != nil {
		t.Fatalf("Kernel: %v", err)
	}
	if h.Name() != "test_noop" {
		t.Errorf("Handle name %q", h.Name())
	}
	if len(h.Args()) != 2 {
		t.Errorf("Expected 2 declared args, got %d", len(h.Args()))
	}
	if h.Args()[0].Kind != ArgScalar || h.Args()[0].Width != 4 {
		t.Errorf("Arg 0 spec %+v", h.Args()[0])
	}

	if _, err := p.Kernel("missing"); !errors.Is(err, ErrRuntime) {
		t.Errorf("Expected ErrRuntime for unknown kernel, got %v", err)
	}
}

func TestLoadProgram_UnregisteredKernel(t *testing.T) {
	blob, err := EncodeManifest(Manifest{
		Name:    "bad",
		Kernels: []KernelSpec{{Name: "test_never_registered"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProgram(blob); !errors.Is(err, ErrRuntime) {
		t.Fatalf("Expected ErrRuntime, got %v", err)
	}
}

func TestLoadProgram_BadBlob(t *testing.T) {
	if _, err := LoadProgram([]byte{0xff, 0x00, 0x13}); !errors.Is(err, ErrRuntime) {
		t.Fatalf("Expected ErrRuntime, got %v", err)
	}
}

func TestRegisterKernel_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Expected panic on duplicate registration")
		}
	}()
	RegisterKernel("test_noop", func(it Item, args []BoundArg) {})
}

func TestNewKernel(t *testing.T) {
	p, err := LoadProgram(testManifest())
	if err != nil {
		t.Fatal(err)
	}
	h, err := p.Kernel("test_noop")
	if err != nil {
		t.Fatal(err)
	}
	ctx := NewContext(DefaultDevice())

	t.Run("Valid", func(t *testing.T) {
		k, err := NewKernel(h, ctx)
		if err != nil {
			t.Fatalf("NewKernel: %v", err)
		}
		if k.Name() != "test_noop" {
			t.Errorf("Kernel name %q", k.Name())
		}
	})

	t.Run("NilContext", func(t *testing.T) {
		if _, err := NewKernel(h, nil); !errors.Is(err, ErrRuntime) {
			t.Errorf("Expected ErrRuntime, got %v", err)
		}
	})

	t.Run("NilHandle", func(t *testing.T) {
		if _, err := NewKernel(nil, ctx); !errors.Is(err, ErrRuntime) {
			t.Errorf("Expected ErrRuntime, got %v", err)
		}
	})

	t.Run("ReleasedHandle", func(t *testing.T) {
		h.Release()
		if _, err := NewKernel(h, ctx); !errors.Is(err, ErrRuntime) {
			t.Errorf("Expected ErrRuntime, got %v", err)
		}
	})
}
