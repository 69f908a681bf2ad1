package main

import (
	"context"
	"encoding/binary"
	"flag"
	"math"
	"net/http"
	"os"
	"runtime/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/23skdu/longbow-bodkin/internal/compute"
	"github.com/23skdu/longbow-bodkin/internal/device"
	"github.com/23skdu/longbow-bodkin/internal/gemm"
	"github.com/23skdu/longbow-bodkin/internal/memory"
)

var (
	memModel   = flag.String("model", "buffer", "Memory model: buffer or usm")
	listenAddr = flag.String("listen", "", "Address to serve /metrics on (e.g. :8080)")
	enableOTel = flag.Bool("otel", false, "Enable OpenTelemetry tracing (stdout)")
	cpuProfile = flag.String("cpuprofile", "", "Write cpu profile to file")
	gemmSize   = flag.Int("size", 256, "Square GEMM dimension for the benchmark")
	iters      = flag.Int("iters", 10, "Benchmark iterations")
	duration   = flag.Duration("duration", 0, "Run soak test for specified duration (e.g. 10s, 20m)")
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	flag.Parse()

	if *enableOTel {
		shutdown, err := initTracer()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer shutdown(context.Background())
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create CPU profile file")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("Could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	if *listenAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			log.Info().Str("addr", *listenAddr).Msg("Metrics server listening")
			if err := http.ListenAndServe(*listenAddr, nil); err != nil {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	var model device.MemoryModel
	switch *memModel {
	case "buffer":
		model = device.MemoryBuffer
	case "usm":
		model = device.MemoryUSM
	default:
		log.Fatal().Str("model", *memModel).Msg("Unknown memory model, want buffer or usm")
	}

	eng, err := device.NewEngine(device.DefaultDevice(), model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine")
	}
	stream, err := device.NewStream(eng)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create stream")
	}
	defer stream.Close()

	log.Info().Str("device", eng.Device().Name).Str("model", model.String()).Msg("Runtime ready")

	if err := runVecAdd(context.Background(), stream); err != nil {
		log.Fatal().Err(err).Msg("vecadd smoke test failed")
	}

	if *duration > 0 {
		runSoak(context.Background(), stream, *gemmSize, *duration)
		return
	}
	runBench(context.Background(), stream, *gemmSize, *iters)
}

const vecAddName = "bodkin_vecadd"

func init() {
	device.RegisterKernel(vecAddName, func(it device.Item, args []device.BoundArg) {
		n := int(args[0].Int32())
		i := it.GlobalID(0)
		if i >= n {
			return
		}
		a := args[1].Float32s()
		b := args[2].Float32s()
		c := args[3].Float32s()
		c[i] = a[i] + b[i]
	})
}

// runVecAdd pushes a small element-wise kernel through the whole
// pipeline: manifest, program, storage, binding and dispatch.
func runVecAdd(ctx context.Context, stream *device.Stream) error {
	const n = 1 << 16
	eng := stream.Engine()

	blob, err := device.EncodeManifest(device.Manifest{
		Name: "bodkin_demo",
		Kernels: []device.KernelSpec{{
			Name: vecAddName,
			Args: []device.ArgSpec{
				{Kind: device.ArgScalar, Width: 4},
				{Kind: device.ArgGlobal},
				{Kind: device.ArgGlobal},
				{Kind: device.ArgGlobal},
			},
		}},
	})
	if err != nil {
		return err
	}
	prog, err := device.LoadProgram(blob)
	if err != nil {
		return err
	}
	h, err := prog.Kernel(vecAddName)
	if err != nil {
		return err
	}
	k := compute.NewKernel(h)
	defer k.Close()

	a, err := newFilledStorage(eng, n, 1.0)
	if err != nil {
		return err
	}
	defer a.Release()
	b, err := newFilledStorage(eng, n, 2.0)
	if err != nil {
		return err
	}
	defer b.Release()
	c, err := memory.NewStorage(eng, n*4, 64)
	if err != nil {
		return err
	}
	defer c.Release()

	args := compute.NewArgList(
		compute.Int32Arg(n),
		compute.GlobalArg(a),
		compute.GlobalArg(b),
		compute.GlobalArg(c),
	)
	if err := k.ParallelFor(ctx, stream, compute.NewRange(n), args); err != nil {
		return err
	}
	stream.Wait()

	view, err := c.Map()
	if err != nil {
		return err
	}
	defer c.Unmap(view)
	got := math.Float32frombits(binary.LittleEndian.Uint32(view[:4]))
	log.Info().Int("n", n).Float32("c0", got).Msg("vecadd complete")
	return nil
}

// newFilledStorage allocates n float32 elements set to v.
func newFilledStorage(eng *device.Engine, n int, v float32) (memory.Storage, error) {
	st, err := memory.NewStorage(eng, int64(n*4), 64)
	if err != nil {
		return nil, err
	}
	view, err := st.Map()
	if err != nil {
		_ = st.Release()
		return nil, err
	}
	bits := math.Float32bits(v)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(view[i*4:], bits)
	}
	if err := st.Unmap(view); err != nil {
		_ = st.Release()
		return nil, err
	}
	return st, nil
}

func runBench(ctx context.Context, stream *device.Stream, size, iters int) {
	a, b, c, cleanup, err := gemmOperands(stream.Engine(), size)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to allocate GEMM operands")
	}
	defer cleanup()

	start := time.Now()
	for i := 0; i < iters; i++ {
		err := gemm.SGEMM(ctx, stream, false, false, size, size, size, 1.0,
			a, 0, size, b, 0, size, 0.0, c, 0, size)
		if err != nil {
			log.Fatal().Err(err).Msg("SGEMM dispatch failed")
		}
	}
	stream.Wait()
	elapsed := time.Since(start)

	flops := 2 * float64(size) * float64(size) * float64(size) * float64(iters)
	log.Info().
		Int("size", size).
		Int("iters", iters).
		Dur("elapsed", elapsed).
		Float64("gflops", flops/elapsed.Seconds()/1e9).
		Msg("SGEMM benchmark complete")
}

func runSoak(ctx context.Context, stream *device.Stream, size int, d time.Duration) {
	a, b, c, cleanup, err := gemmOperands(stream.Engine(), size)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to allocate GEMM operands")
	}
	defer cleanup()

	log.Info().Str("duration", d.String()).Int("size", size).Msg("Starting soak test")
	startTime := time.Now()
	endTime := startTime.Add(d)
	var iter int

	for time.Now().Before(endTime) {
		err := gemm.SGEMM(ctx, stream, false, false, size, size, size, 1.0,
			a, 0, size, b, 0, size, 0.0, c, 0, size)
		if err != nil {
			log.Fatal().Err(err).Msg("SGEMM dispatch failed")
		}
		stream.Wait()
		iter++

		if iter%10 == 0 {
			elapsed := time.Since(startTime)
			log.Info().
				Str("elapsed", elapsed.Round(time.Second).String()).
				Int("iter", iter).
				Msg("Soak test progress")
		}
	}

	totalElapsed := time.Since(startTime)
	log.Info().
		Int("iters", iter).
		Dur("total_time", totalElapsed).
		Msg("Soak test complete")
}

// gemmOperands allocates three size x size operands and returns their
// native handles, ready to pass to the GEMM entry points.
func gemmOperands(eng *device.Engine, size int) (a, b, c any, cleanup func(), err error) {
	sa, err := newFilledStorage(eng, size*size, 1.0)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	sb, err := newFilledStorage(eng, size*size, 0.5)
	if err != nil {
		_ = sa.Release()
		return nil, nil, nil, nil, err
	}
	sc, err := memory.NewStorage(eng, int64(size*size*4), 64)
	if err != nil {
		_ = sa.Release()
		_ = sb.Release()
		return nil, nil, nil, nil, err
	}
	cleanup = func() {
		_ = sa.Release()
		_ = sb.Release()
		_ = sc.Release()
	}
	return sa.DataHandle(), sb.DataHandle(), sc.DataHandle(), cleanup, nil
}

func initTracer() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("bodkin"),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}
