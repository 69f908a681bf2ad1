// Package gemm exposes column-major GEMM entry points over
// caller-supplied device memory. It is a thin client of the dispatch
// core: handles are wrapped into storage per the engine's memory
// model, offsets applied in elements, and one work-item computes one
// output element.
package gemm

import (
	"context"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/23skdu/longbow-bodkin/internal/cache"
	"github.com/23skdu/longbow-bodkin/internal/compute"
	"github.com/23skdu/longbow-bodkin/internal/device"
	"github.com/23skdu/longbow-bodkin/internal/memory"
)

const (
	sgemmName = "bodkin_sgemm"
	dgemmName = "bodkin_dgemm"
)

func init() {
	device.RegisterKernel(sgemmName, sgemmKernel)
	device.RegisterKernel(dgemmName, dgemmKernel)
}

var (
	mu       sync.Mutex
	programs = cache.NewMapCache()
	kernels  = map[string]*compute.Kernel{}
)

func gemmSignature(scalarWidth int) []device.ArgSpec {
	return []device.ArgSpec{
		{Kind: device.ArgScalar, Width: 1}, // transA
		{Kind: device.ArgScalar, Width: 1}, // transB
		{Kind: device.ArgScalar, Width: 4}, // m
		{Kind: device.ArgScalar, Width: 4}, // n
		{Kind: device.ArgScalar, Width: 4}, // k
		{Kind: device.ArgScalar, Width: 4}, // lda
		{Kind: device.ArgScalar, Width: 4}, // ldb
		{Kind: device.ArgScalar, Width: 4}, // ldc
		{Kind: device.ArgScalar, Width: scalarWidth}, // alpha
		{Kind: device.ArgScalar, Width: scalarWidth}, // beta
		{Kind: device.ArgGlobal},
		{Kind: device.ArgGlobal},
		{Kind: device.ArgGlobal},
	}
}

// kernel returns the cached dispatch wrapper for one of the gemm
// entry points, loading the program on first use.
func kernel(name string) (*compute.Kernel, error) {
	mu.Lock()
	defer mu.Unlock()
	if k, ok := kernels[name]; ok {
		return k, nil
	}
	prog, ok := programs.Get("gemm")
	if !ok {
		blob, err := device.EncodeManifest(device.Manifest{
			Name: "bodkin_gemm",
			Kernels: []device.KernelSpec{
				{Name: sgemmName, Args: gemmSignature(4)},
				{Name: dgemmName, Args: gemmSignature(8)},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("encoding gemm manifest: %w", err)
		}
		prog, err = device.LoadProgram(blob)
		if err != nil {
			return nil, err
		}
		programs.Put("gemm", prog)
	}
	h, err := prog.Kernel(name)
	if err != nil {
		return nil, err
	}
	k := compute.NewKernel(h)
	kernels[name] = k
	return k, nil
}

// checkInput mirrors the usual BLAS argument screening for
// column-major gemm.
func checkInput(transA, transB bool, m, n, k, lda, ldb, ldc int) error {
	if m < 0 || n < 0 || k < 0 {
		return fmt.Errorf("%w: negative dimension m=%d n=%d k=%d", device.ErrInvalidArg, m, n, k)
	}
	rowsA, rowsB := m, k
	if transA {
		rowsA = k
	}
	if transB {
		rowsB = n
	}
	if lda < max(1, rowsA) {
		return fmt.Errorf("%w: lda=%d below %d", device.ErrInvalidArg, lda, max(1, rowsA))
	}
	if ldb < max(1, rowsB) {
		return fmt.Errorf("%w: ldb=%d below %d", device.ErrInvalidArg, ldb, max(1, rowsB))
	}
	if ldc < max(1, m) {
		return fmt.Errorf("%w: ldc=%d below %d", device.ErrInvalidArg, ldc, max(1, m))
	}
	return nil
}

// wrap builds storage around the caller's handle with an element
// offset applied in bytes.
func wrap(eng *device.Engine, h any, sizeBytes int64, offElems, elemSize int) (memory.Storage, error) {
	st, err := memory.WrapHandle(eng, h, sizeBytes)
	if err != nil {
		return nil, err
	}
	if err := st.SetOffset(int64(offElems * elemSize)); err != nil {
		_ = st.Release()
		return nil, err
	}
	return st, nil
}

func dispatch(ctx context.Context, s *device.Stream, name string, m, n int,
	args *compute.ArgList, storages ...memory.Storage) error {
	k, err := kernel(name)
	if err != nil {
		return err
	}
	err = k.ParallelFor(ctx, s, compute.NewRange(m, n), args)
	for _, st := range storages {
		_ = st.Release()
	}
	return err
}

// SGEMM computes C = alpha*op(A)*op(B) + beta*C in single precision,
// column-major. a, b and c are native memory handles of the engine's
// model (*device.Buffer or device.DevicePtr); offsets are in
// elements, as are the leading dimensions. The call returns once the
// dispatch is enqueued; synchronize through the stream.
func SGEMM(ctx context.Context, s *device.Stream, transA, transB bool,
	m, n, k int, alpha float32,
	a any, offA, lda int,
	b any, offB, ldb int,
	beta float32,
	c any, offC, ldc int) error {

	if err := checkInput(transA, transB, m, n, k, lda, ldb, ldc); err != nil {
		return err
	}
	if m == 0 || n == 0 {
		return nil
	}
	eng := s.Engine()

	colsA, colsB := k, n
	if transA {
		colsA = m
	}
	if transB {
		colsB = k
	}
	aSt, err := wrap(eng, a, int64(lda*colsA*4), offA, 4)
	if err != nil {
		return err
	}
	bSt, err := wrap(eng, b, int64(ldb*colsB*4), offB, 4)
	if err != nil {
		_ = aSt.Release()
		return err
	}
	cSt, err := wrap(eng, c, int64(ldc*n*4), offC, 4)
	if err != nil {
		_ = aSt.Release()
		_ = bSt.Release()
		return err
	}

	args := compute.NewArgList(
		boolArg(transA), boolArg(transB),
		compute.Int32Arg(int32(m)), compute.Int32Arg(int32(n)), compute.Int32Arg(int32(k)),
		compute.Int32Arg(int32(lda)), compute.Int32Arg(int32(ldb)), compute.Int32Arg(int32(ldc)),
		compute.Float32Arg(alpha), compute.Float32Arg(beta),
		compute.GlobalArg(aSt), compute.GlobalArg(bSt), compute.GlobalArg(cSt),
	)
	return dispatch(ctx, s, sgemmName, m, n, args, aSt, bSt, cSt)
}

// DGEMM is the double-precision counterpart of SGEMM.
func DGEMM(ctx context.Context, s *device.Stream, transA, transB bool,
	m, n, k int, alpha float64,
	a any, offA, lda int,
	b any, offB, ldb int,
	beta float64,
	c any, offC, ldc int) error {

	if err := checkInput(transA, transB, m, n, k, lda, ldb, ldc); err != nil {
		return err
	}
	if m == 0 || n == 0 {
		return nil
	}
	eng := s.Engine()

	colsA, colsB := k, n
	if transA {
		colsA = m
	}
	if transB {
		colsB = k
	}
	aSt, err := wrap(eng, a, int64(lda*colsA*8), offA, 8)
	if err != nil {
		return err
	}
	bSt, err := wrap(eng, b, int64(ldb*colsB*8), offB, 8)
	if err != nil {
		_ = aSt.Release()
		return err
	}
	cSt, err := wrap(eng, c, int64(ldc*n*8), offC, 8)
	if err != nil {
		_ = aSt.Release()
		_ = bSt.Release()
		return err
	}

	args := compute.NewArgList(
		boolArg(transA), boolArg(transB),
		compute.Int32Arg(int32(m)), compute.Int32Arg(int32(n)), compute.Int32Arg(int32(k)),
		compute.Int32Arg(int32(lda)), compute.Int32Arg(int32(ldb)), compute.Int32Arg(int32(ldc)),
		compute.Float64Arg(alpha), compute.Float64Arg(beta),
		compute.GlobalArg(aSt), compute.GlobalArg(bSt), compute.GlobalArg(cSt),
	)
	return dispatch(ctx, s, dgemmName, m, n, args, aSt, bSt, cSt)
}

func boolArg(v bool) compute.Arg {
	if v {
		return compute.Uint8Arg(1)
	}
	return compute.Uint8Arg(0)
}

// sgemmKernel computes one element of C per work-item.
func sgemmKernel(it device.Item, args []device.BoundArg) {
	transA := args[0].Uint8() != 0
	transB := args[1].Uint8() != 0
	k := int(args[4].Int32())
	lda := int(args[5].Int32())
	ldb := int(args[6].Int32())
	ldc := int(args[7].Int32())
	alpha := args[8].Float32()
	beta := args[9].Float32()
	a := args[10].Float32s()
	b := args[11].Float32s()
	c := args[12].Float32s()

	i := it.GlobalID(0)
	j := it.GlobalID(1)

	var dot float32
	if k > 0 {
		var x, y blas32.Vector
		if transA {
			x = blas32.Vector{N: k, Inc: 1, Data: a[i*lda:]}
		} else {
			x = blas32.Vector{N: k, Inc: lda, Data: a[i:]}
		}
		if transB {
			y = blas32.Vector{N: k, Inc: ldb, Data: b[j:]}
		} else {
			y = blas32.Vector{N: k, Inc: 1, Data: b[j*ldb:]}
		}
		dot = blas32.Dot(x, y)
	}
	c[j*ldc+i] = alpha*dot + beta*c[j*ldc+i]
}

// dgemmKernel computes one element of C per work-item.
func dgemmKernel(it device.Item, args []device.BoundArg) {
	transA := args[0].Uint8() != 0
	transB := args[1].Uint8() != 0
	k := int(args[4].Int32())
	lda := int(args[5].Int32())
	ldb := int(args[6].Int32())
	ldc := int(args[7].Int32())
	alpha := args[8].Float64()
	beta := args[9].Float64()
	a := args[10].Float64s()
	b := args[11].Float64s()
	c := args[12].Float64s()

	i := it.GlobalID(0)
	j := it.GlobalID(1)

	var dot float64
	if k > 0 {
		var x, y blas64.Vector
		if transA {
			x = blas64.Vector{N: k, Inc: 1, Data: a[i*lda:]}
		} else {
			x = blas64.Vector{N: k, Inc: lda, Data: a[i:]}
		}
		if transB {
			y = blas64.Vector{N: k, Inc: ldb, Data: b[j:]}
		} else {
			y = blas64.Vector{N: k, Inc: 1, Data: b[j*ldb:]}
		}
		dot = blas64.Dot(x, y)
	}
	c[j*ldc+i] = alpha*dot + beta*c[j*ldc+i]
}
