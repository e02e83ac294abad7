// Package metrics implements the metrics wrapper (C12): per-operation
// latency sample arrays, an error counter, and a window-start
// timestamp, snapshotted into p50/p99/ops-per-second/error-rate and
// reset after each publish. Grounded on the teacher's
// pkg/observability/observability.go RED-metrics instrument set
// (request/error counters + duration histogram), generalized from a
// global OTel provider to a per-backend recorder and adapted from an
// OTLP-exporting MeterProvider to one with a manual reader (this
// module has no OTLP collector to export to; it still feeds real OTel
// instruments so a host process can plug in whatever reader it wants).
package metrics

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OpSnapshot is one operation's windowed statistics (spec.md §4.10).
type OpSnapshot struct {
	Op           string
	P50Ms        float64
	P99Ms        float64
	OpsPerSecond float64
	ErrorRate    float64
	TotalOps     int64
	TotalErrors  int64
}

// Snapshot is a publishable metrics document (see NodeMetrics, spec.md §6).
type Snapshot struct {
	WindowStart time.Time
	WindowEnd   time.Time
	Ops         []OpSnapshot
}

// Recorder accumulates per-operation latency samples between publishes.
// Safe for concurrent use; spec.md §4.10 requires serializing recording
// "via a mailbox/mutex" under a parallel runtime.
type Recorder struct {
	mu          sync.Mutex
	samples     map[string][]float64
	errors      map[string]int64
	ops         map[string]int64
	windowStart time.Time

	opsCounter   metric.Int64Counter
	errCounter   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// New returns a Recorder wired to meter's instruments, and a new
// ManualReader. That reader is not registered with meter's provider, so
// it does not see the Recorder's instruments. Those are seen only by
// the reader registered with the provider that created meter, such as
// the reader NewReader returns with its meter.
func New(meter metric.Meter) (*Recorder, *sdkmetric.ManualReader, error) {
	opsCounter, err := meter.Int64Counter("fabric.ops.total",
		metric.WithDescription("Total number of backend operations processed"),
		metric.WithUnit("{operation}"))
	if err != nil {
		return nil, nil, err
	}
	errCounter, err := meter.Int64Counter("fabric.errors.total",
		metric.WithDescription("Total number of backend operation errors"),
		metric.WithUnit("{error}"))
	if err != nil {
		return nil, nil, err
	}
	durationHist, err := meter.Float64Histogram("fabric.op.duration",
		metric.WithDescription("Backend operation duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000))
	if err != nil {
		return nil, nil, err
	}

	return &Recorder{
		samples:      make(map[string][]float64),
		errors:       make(map[string]int64),
		ops:          make(map[string]int64),
		windowStart:  time.Now(),
		opsCounter:   opsCounter,
		errCounter:   errCounter,
		durationHist: durationHist,
	}, sdkmetric.NewManualReader(), nil
}

// NewReader builds a MeterProvider backed by a ManualReader and returns
// its meter alongside the reader, for callers that have no provider yet.
func NewReader(instrumentationName string) (metric.Meter, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return provider.Meter(instrumentationName), reader
}

// RecordLatency records one completed op's duration.
func (r *Recorder) RecordLatency(ctx context.Context, op string, d time.Duration) {
	ms := float64(d.Microseconds()) / 1000.0

	r.mu.Lock()
	r.samples[op] = append(r.samples[op], ms)
	r.ops[op]++
	r.mu.Unlock()

	attrs := metric.WithAttributes(opAttr(op))
	r.opsCounter.Add(ctx, 1, attrs)
	r.durationHist.Record(ctx, ms, attrs)
}

// RecordError records one failed op.
func (r *Recorder) RecordError(ctx context.Context, op string) {
	r.mu.Lock()
	r.errors[op]++
	r.mu.Unlock()

	r.errCounter.Add(ctx, 1, metric.WithAttributes(opAttr(op)))
}

// Snapshot computes the current window's statistics and resets the
// window, per spec.md §4.9's metricsCollector ("publish; then reset
// window") and §4.10's percentile formula.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsedSec := math.Max(1, now.Sub(r.windowStart).Seconds())

	snap := Snapshot{WindowStart: r.windowStart, WindowEnd: now}
	for op, samples := range r.samples {
		sorted := append([]float64(nil), samples...)
		sort.Float64s(sorted)

		totalOps := r.ops[op]
		totalErrors := r.errors[op]

		var errRate float64
		if totalOps > 0 {
			errRate = float64(totalErrors) / float64(totalOps)
		}

		snap.Ops = append(snap.Ops, OpSnapshot{
			Op:           op,
			P50Ms:        percentile(sorted, 0.5),
			P99Ms:        percentile(sorted, 0.99),
			OpsPerSecond: math.Round(float64(totalOps) / elapsedSec),
			ErrorRate:    errRate,
			TotalOps:     totalOps,
			TotalErrors:  totalErrors,
		})
	}

	r.samples = make(map[string][]float64)
	r.errors = make(map[string]int64)
	r.ops = make(map[string]int64)
	r.windowStart = now

	return snap
}

// percentile returns sorted[ceil(p*n)-1], the index spec.md §4.10 names
// for both p50 and p99.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func opAttr(op string) attribute.KeyValue {
	return attribute.String("op", op)
}
