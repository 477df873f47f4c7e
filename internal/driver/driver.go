// Package driver orchestrates inputs and outputs around the rule
// engine: it accumulates raw triples, advances logical time, recomputes
// the closure, and drains the arranged trace into a sink.
package driver

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rhodf/closure/internal/collection"
	"github.com/rhodf/closure/internal/encoder"
	"github.com/rhodf/closure/internal/metrics"
	"github.com/rhodf/closure/internal/rules"
	apperrors "github.com/rhodf/closure/pkg/errors"
	"github.com/rhodf/closure/pkg/triple"
	"github.com/rhodf/closure/pkg/tracing"
	"github.com/rhodf/closure/pkg/workerpool"
)

// Sink receives drained triples: a per-triple write and a terminal
// close.
type Sink interface {
	Write(t triple.EncodedTriple) error
	Close() error
}

// Driver holds the accumulated raw input collection, the schema
// constants, and the arranged trace, and exposes insert, delta,
// drain, and compaction operations over them.
type Driver struct {
	mu sync.Mutex

	pool   *workerpool.Pool
	sc     encoder.SchemaConstants
	logger *logrus.Logger
	tracer *tracing.Manager

	// raw is the accumulated net delta of every insert/retract applied
	// so far. It is the base collection Compose closes over on every
	// advance.
	raw collection.Multiset

	trace       *collection.Trace
	currentTime uint64
}

// New creates a Driver with workers parallel workers for every rule
// stage and join.
func New(workers int, sc encoder.SchemaConstants, logger *logrus.Logger, tracer *tracing.Manager) *Driver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if tracer == nil {
		tracer, _ = tracing.New(tracing.Config{Enabled: false}, logger)
	}
	return &Driver{
		pool:   workerpool.New(workers, logger),
		sc:     sc,
		logger: logger,
		tracer: tracer,
		raw:    collection.New(),
		trace:  collection.NewTrace(),
	}
}

// Trace exposes the underlying arranged trace, e.g. for tests that want
// to inspect historical snapshots directly.
func (d *Driver) Trace() *collection.Trace { return d.trace }

// InsertInitial inserts all supplied a-box and t-box triples, then
// advances input time to 1 and flushes the closure.
func (d *Driver) InsertInitial(ctx context.Context, aTriples, tTriples []triple.EncodedTriple) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range append(append([]triple.EncodedTriple{}, aTriples...), tTriples...) {
		d.raw[t]++
		metrics.TriplesInsertedTotal.Inc()
	}

	return d.advanceLocked(ctx, 1)
}

// ApplyDelta inserts each of adds, retracts each of retracts, then
// advances input time to targetTime (strictly greater than the
// previous advance) and flushes the closure. A batch that both inserts
// and retracts the same triple nets to a no-op.
func (d *Driver) ApplyDelta(ctx context.Context, adds, retracts []triple.EncodedTriple, targetTime uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if targetTime <= d.currentTime {
		return apperrors.EngineStalled("apply_delta", "target time must be strictly greater than the current time")
	}

	for _, t := range adds {
		d.raw[t]++
		metrics.TriplesInsertedTotal.Inc()
	}
	for _, t := range retracts {
		d.raw[t]--
		metrics.TriplesRetractedTotal.Inc()
	}

	return d.advanceLocked(ctx, targetTime)
}

// advanceLocked recomputes the full closure from the accumulated raw
// input and arranges it at the given logical time, under d.mu.
func (d *Driver) advanceLocked(ctx context.Context, at uint64) error {
	closure, err := rules.Compose(ctx, d.pool, d.raw, d.sc, d.logger, d.tracer)
	if err != nil {
		return apperrors.EngineStalled("advance", "rule composition failed").Wrap(err)
	}

	positive := collection.Positive(closure)
	d.trace.Arrange(at, positive)
	d.currentTime = at

	metrics.TraceSize.Set(float64(len(positive)))

	d.logger.WithFields(logrus.Fields{
		"time":         at,
		"closure_size": len(positive),
	}).Info("materialization advanced")

	return nil
}

// DrainAt pulls from the arranged trace the set of triples with
// positive net count at the given time and sends each to sink, stopping
// at the first failure the sink reports. A drain failure leaves the
// trace and raw input untouched.
func (d *Driver) DrainAt(ctx context.Context, at uint64, sink Sink) error {
	start := time.Now()
	_, end := d.tracer.StartSpan(ctx, "drain_at")
	defer end()
	defer func() { metrics.DrainDuration.Observe(time.Since(start).Seconds()) }()

	d.mu.Lock()
	snapshot, ok := d.trace.At(at)
	d.mu.Unlock()

	if !ok {
		return apperrors.EngineStalled("drain_at", "no trace entry retained at the requested time")
	}

	for _, t := range encoder.SortedTriples(snapshot.Keys()) {
		if err := sink.Write(t); err != nil {
			return apperrors.SinkFailed("drain_at", "sink rejected a write").Wrap(err)
		}
	}
	return nil
}

// AdvanceTrace notifies the trace that updates strictly before the
// given time will no longer be observed, permitting compaction. Call
// this after every batch whose outputs have been drained, or the trace
// accumulates unbounded history.
func (d *Driver) AdvanceTrace(at uint64) {
	d.trace.Compact(at)
}
