package encoder

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rhodf/closure/pkg/triple"
	"github.com/rhodf/closure/pkg/workerpool"
)

// Encoder turns raw text lines into EncodedTriple values under a shared
// Dictionary, and the reverse for output.
type Encoder struct {
	Dict    *Dictionary
	Skipped *SkippedRecords
	logger  *logrus.Logger
	workers *workerpool.Pool
}

// New creates an Encoder backed by dict, logging skipped lines through
// skipped and running parallel work across pool.
func New(dict *Dictionary, skipped *SkippedRecords, pool *workerpool.Pool, logger *logrus.Logger) *Encoder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Encoder{Dict: dict, Skipped: skipped, workers: pool, logger: logger}
}

// EncodeLines parses and encodes every line in lines, partitioning the
// work across the encoder's worker pool by contiguous line ranges. The
// dictionary's own single-writer discipline is what makes this safe to
// parallelize: workers race only on dictionary misses, which take the
// write lock. Malformed lines are recorded in e.Skipped and do not
// appear in the result or abort the stream.
//
// The result holds one entry per surviving line and, decoded, the same
// triples regardless of worker count. The ids a fresh dictionary assigns
// to new terms depend on which worker reaches each term first, so the
// encoded values themselves can differ between runs with different
// worker counts.
func (e *Encoder) EncodeLines(ctx context.Context, source string, lines []string) ([]triple.EncodedTriple, error) {
	shards := e.workers.Partition(len(lines))
	results := make([][]triple.EncodedTriple, len(shards))

	tasks := make([]workerpool.Task, len(shards))
	for i, shard := range shards {
		i, shard := i, shard
		tasks[i] = func(ctx context.Context) error {
			out := make([]triple.EncodedTriple, 0, shard[1]-shard[0])
			for idx := shard[0]; idx < shard[1]; idx++ {
				t, err := ParseLine(lines[idx])
				if err != nil {
					e.Skipped.Add(source, lines[idx], err.Error())
					continue
				}
				enc, err := e.Dict.EncodeTriple(t)
				if err != nil {
					return err
				}
				out = append(out, enc)
			}
			results[i] = out
			return nil
		}
	}

	if err := e.workers.Run(ctx, tasks); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]triple.EncodedTriple, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// DecodeTriples decodes a slice of EncodedTriple back to text, in
// parallel; out[i] is the decoding of triples[i].
func (e *Encoder) DecodeTriples(ctx context.Context, triples []triple.EncodedTriple) ([]triple.Triple, error) {
	out := make([]triple.Triple, len(triples))
	var mu sync.Mutex
	var firstErr error

	shards := e.workers.Partition(len(triples))
	tasks := make([]workerpool.Task, len(shards))
	for i, shard := range shards {
		shard := shard
		tasks[i] = func(ctx context.Context) error {
			for idx := shard[0]; idx < shard[1]; idx++ {
				t, err := e.Dict.DecodeTriple(triples[idx])
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return err
				}
				out[idx] = t
			}
			return nil
		}
	}
	if err := e.workers.Run(ctx, tasks); err != nil {
		return nil, err
	}
	return out, firstErr
}

// SortedTriples returns triples in canonical (S, P, O) order, for
// deterministic drain output.
func SortedTriples(triples []triple.EncodedTriple) []triple.EncodedTriple {
	out := make([]triple.EncodedTriple, len(triples))
	copy(out, triples)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
