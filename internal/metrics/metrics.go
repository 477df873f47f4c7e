// Package metrics exposes the engine's Prometheus instrumentation:
// counters for triple throughput, gauges for working-set size, and a
// histogram for per-stage duration.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/v3/process"
)

var (
	// TriplesInsertedTotal counts encoded triples fed into insert_initial
	// or apply_delta's "adds" list.
	TriplesInsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rhodf_triples_inserted_total",
		Help: "Total number of encoded triples inserted via insert_initial or apply_delta.",
	})

	// TriplesRetractedTotal counts triples passed to apply_delta's
	// "retracts" list.
	TriplesRetractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rhodf_triples_retracted_total",
		Help: "Total number of encoded triples retracted via apply_delta.",
	})

	// InputLinesSkippedTotal counts malformed input lines recorded by
	// the encoder's SkippedRecords collector.
	InputLinesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rhodf_input_lines_skipped_total",
		Help: "Total number of input lines skipped as malformed.",
	})

	// DictionarySize is the current number of distinct terms encoded.
	DictionarySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rhodf_dictionary_size",
		Help: "Number of distinct terms in the bijective dictionary.",
	})

	// TraceSize is the number of positively-counted triples in the most
	// recently arranged trace entry. Arranged traces grow monotonically
	// unless compacted, so a climbing value with no matching Compact
	// calls signals unbounded retention.
	TraceSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rhodf_trace_size",
		Help: "Number of positively-counted triples in the latest arranged trace entry.",
	})

	// RuleStageDuration times each named rule-engine stage.
	RuleStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rhodf_rule_stage_duration_seconds",
		Help:    "Time spent composing each rule-engine stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// DrainDuration times drain_at calls.
	DrainDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rhodf_drain_duration_seconds",
		Help:    "Time spent draining the trace at a requested timestamp.",
		Buckets: prometheus.DefBuckets,
	})

	// ProcessRSSBytes samples the process's resident set size, the
	// operational proxy for unbounded trace/working-set growth.
	ProcessRSSBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rhodf_process_rss_bytes",
		Help: "Resident set size of the engine process, sampled periodically.",
	})
)

// ObserveStage is a small helper: call it with time.Now() from a defer
// to record a rule stage's duration.
func ObserveStage(stage string, start time.Time) {
	RuleStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// SampleRSS periodically samples the current process's RSS into
// ProcessRSSBytes until ctx is done.
func SampleRSS(ctx context.Context, interval time.Duration) {
	proc, err := process.NewProcess(int32(processPID()))
	if err != nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if info, err := proc.MemoryInfo(); err == nil && info != nil {
				ProcessRSSBytes.Set(float64(info.RSS))
			}
		}
	}
}
