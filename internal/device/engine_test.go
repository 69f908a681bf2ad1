package device

import (
	"errors"
	"testing"
)

func TestNewEngine_RejectsVPtr(t *testing.T) {
	if _, err := NewEngine(DefaultDevice(), MemoryVPtr); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Expected ErrUnsupported for vptr model, got %v", err)
	}
	if _, err := NewEngine(nil, MemoryBuffer); !errors.Is(err, ErrInvalidArg) {
		t.Fatalf("Expected ErrInvalidArg for nil device, got %v", err)
	}
}

func TestEngine_ModelGuardsAllocation(t *testing.T) {
	bufEng, err := NewEngine(DefaultDevice(), MemoryBuffer)
	if err != nil {
		t.Fatal(err)
	}
	usmEng, err := NewEngine(DefaultDevice(), MemoryUSM)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := bufEng.AllocUSM(64); !errors.Is(err, ErrUnsupported) {
		t.Errorf("USM allocation on buffer engine: %v", err)
	}
	if _, err := usmEng.AllocBuffer(64); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Buffer allocation on usm engine: %v", err)
	}
}

func TestBuffer_Refcount(t *testing.T) {
	eng, err := NewEngine(DefaultDevice(), MemoryBuffer)
	if err != nil {
		t.Fatal(err)
	}
	buf, err := eng.AllocBuffer(128)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Size() != 128 || len(buf.Bytes()) != 128 {
		t.Fatalf("Buffer size %d, view %d", buf.Size(), len(buf.Bytes()))
	}

	buf.Retain()
	if err := buf.Release(); err != nil {
		t.Fatalf("First release: %v", err)
	}
	if buf.Bytes() == nil {
		t.Fatal("Backing freed while a reference is still held")
	}
	if err := buf.Release(); err != nil {
		t.Fatalf("Last release: %v", err)
	}
	if buf.Bytes() != nil {
		t.Fatal("Backing still live after last release")
	}
	if err := buf.Release(); !errors.Is(err, ErrDoubleFree) {
		t.Fatalf("Expected ErrDoubleFree, got %v", err)
	}
}

func TestEngine_USMAllocFree(t *testing.T) {
	eng, err := NewEngine(DefaultDevice(), MemoryUSM)
	if err != nil {
		t.Fatal(err)
	}

	p, err := eng.AllocUSM(256)
	if err != nil {
		t.Fatal(err)
	}
	if p.IsNil() || p.Size() != 256 {
		t.Fatalf("Unexpected allocation %v size %d", p.IsNil(), p.Size())
	}

	view := p.Bytes()
	view[0] = 0xAB
	if p.Bytes()[0] != 0xAB {
		t.Fatal("View does not alias the allocation")
	}

	if err := eng.FreeUSM(p); err != nil {
		t.Fatalf("FreeUSM: %v", err)
	}
	if err := eng.FreeUSM(p); !errors.Is(err, ErrDoubleFree) {
		t.Fatalf("Expected ErrDoubleFree, got %v", err)
	}
}

func TestDevicePtr_Offset(t *testing.T) {
	eng, err := NewEngine(DefaultDevice(), MemoryUSM)
	if err != nil {
		t.Fatal(err)
	}
	p, err := eng.AllocUSM(64)
	if err != nil {
		t.Fatal(err)
	}
	defer eng.FreeUSM(p)

	p.Bytes()[8] = 42
	q := p.Offset(8)
	if q.Size() != 56 {
		t.Fatalf("Offset size %d", q.Size())
	}
	if q.Bytes()[0] != 42 {
		t.Fatal("Offset pointer does not share the allocation")
	}

	f := p.Float32s()
	if len(f) != 16 {
		t.Fatalf("Float32 view length %d", len(f))
	}
}
