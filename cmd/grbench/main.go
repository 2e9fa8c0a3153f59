package main

import (
	"context"
	"flag"
	"math/rand"
	"net/http"
	"os"
	"runtime/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	graphblas "github.com/cjnolet/GraphBLAS"
	"github.com/cjnolet/GraphBLAS/semiring"
)

var (
	flagN        = flag.Int64("n", 4096, "Matrix dimension (n x n)")
	flagDensity  = flag.Float64("density", 0.001, "Fraction of entries present in the operands")
	flagIters    = flag.Int("iters", 10, "Number of multiply iterations")
	flagVariant  = flag.String("variant", "auto", "Multiply variant (auto, gustavson, dot, heap)")
	flagWorkers  = flag.Int("workers", 0, "Worker goroutines (0 = GOMAXPROCS)")
	flagSeed     = flag.Int64("seed", 1, "RNG seed for operand generation")
	flagDuration = flag.Duration("duration", 0, "Run soak test for specified duration (e.g. 10s, 20m)")
	flagOut      = flag.String("out", "", "Serialize the final result to this file")
	flagBurble   = flag.Bool("burble", false, "Log format conversion decisions")
	cpuProfile   = flag.String("cpuprofile", "", "Write cpu profile to file")
	listenAddr   = flag.String("listen", "", "Address to serve /metrics on (e.g. :8080)")
	enableOTel   = flag.Bool("otel", false, "Enable OpenTelemetry tracing (stdout)")
)

func parseVariant(s string) graphblas.Variant {
	switch s {
	case "gustavson":
		return graphblas.VariantGustavson
	case "dot":
		return graphblas.VariantDot
	case "heap":
		return graphblas.VariantHeap
	default:
		return graphblas.VariantAuto
	}
}

func randomMatrix(e *graphblas.Engine, rng *rand.Rand, n int64, density float64) (*graphblas.Matrix[float64], error) {
	nvals := int(float64(n) * float64(n) * density)
	rows := make([]int64, nvals)
	cols := make([]int64, nvals)
	vals := make([]float64, nvals)
	for k := range rows {
		rows[k] = rng.Int63n(n)
		cols[k] = rng.Int63n(n)
		vals[k] = rng.Float64()
	}
	m := graphblas.New[float64](n, n)
	if err := m.Build(e, rows, cols, vals, func(x, y float64) float64 { return y }); err != nil {
		return nil, err
	}
	return m, m.Conform(e)
}

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
			log.Info().Str("addr", *listenAddr).Msg("Serving metrics")
			if err := http.ListenAndServe(*listenAddr, nil); err != nil {
				log.Error().Err(err).Msg("Metrics listener failed")
			}
		}()
	}

	if *flagBurble {
		graphblas.Burble(true)
	}

	e := graphblas.NewEngine(graphblas.WithWorkers(*flagWorkers))
	rng := rand.New(rand.NewSource(*flagSeed))
	printer := message.NewPrinter(language.English)

	genStart := time.Now()
	a, err := randomMatrix(e, rng, *flagN, *flagDensity)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build operand A")
	}
	b, err := randomMatrix(e, rng, *flagN, *flagDensity)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build operand B")
	}
	log.Info().
		Int64("n", *flagN).
		Str("nvals_a", printer.Sprintf("%d", a.NVals())).
		Str("nvals_b", printer.Sprintf("%d", b.NVals())).
		Str("format_a", a.Format().String()).
		Dur("elapsed", time.Since(genStart)).
		Msg("Generated operands")

	variant := parseVariant(*flagVariant)
	s := semiring.PlusTimesFP64()
	ctx := context.Background()
	tracer := otel.Tracer("grbench")

	iters := *flagIters
	deadline := time.Time{}
	if *flagDuration > 0 {
		deadline = time.Now().Add(*flagDuration)
		iters = int(^uint(0) >> 1)
		log.Info().Str("duration", flagDuration.String()).Msg("Starting soak test")
	}

	var c *graphblas.Matrix[float64]
	var totalEntries int64
	start := time.Now()
	for i := 0; i < iters; i++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			iters = i
			break
		}
		iterCtx, span := tracer.Start(ctx, "mxm", trace.WithAttributes(attribute.Int("iter", i)))
		c = graphblas.New[float64](*flagN, *flagN)
		if err := graphblas.MxM(iterCtx, e, c, a, b, s, graphblas.WithVariant(variant)); err != nil {
			span.End()
			log.Fatal().Err(err).Int("iter", i).Msg("Multiply failed")
		}
		span.End()
		totalEntries += c.NVals()

		if !deadline.IsZero() && (i+1)%10 == 0 {
			elapsed := time.Since(start)
			log.Info().
				Str("elapsed", elapsed.Round(time.Second).String()).
				Int("iter", i+1).
				Str("total_entries", printer.Sprintf("%d", totalEntries)).
				Float64("mxm_per_sec", float64(i+1)/elapsed.Seconds()).
				Msg("Soak test progress")
		}
	}
	elapsed := time.Since(start)

	if c == nil {
		log.Fatal().Msg("No iterations ran")
	}
	log.Info().
		Int("iters", iters).
		Str("variant", *flagVariant).
		Str("nvals_c", printer.Sprintf("%d", c.NVals())).
		Str("format_c", c.Format().String()).
		Dur("total_time", elapsed).
		Float64("avg_ms", float64(elapsed.Milliseconds())/float64(iters)).
		Msg("Multiply benchmark complete")

	if *flagOut != "" {
		f, err := os.Create(*flagOut)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create output file")
		}
		defer f.Close()
		if err := c.Serialize(e, f); err != nil {
			log.Fatal().Err(err).Msg("Serialize failed")
		}
		log.Info().Str("path", *flagOut).Msg("Wrote result")
	}
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
			semconv.ServiceNameKey.String("grbench"),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}
