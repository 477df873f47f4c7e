package collection

import (
	"context"

	"github.com/rhodf/closure/pkg/triple"
	"github.com/rhodf/closure/pkg/workerpool"
)

// KeyFunc extracts the join key (one of a triple's three id
// components) from an EncodedTriple.
type KeyFunc func(triple.EncodedTriple) uint64

// Subject, Predicate, Object are the three KeyFuncs every rule's join
// is expressed in terms of; every join here is an equi-join on exactly
// one of them.
func Subject(t triple.EncodedTriple) uint64   { return t.S }
func Predicate(t triple.EncodedTriple) uint64 { return t.P }
func Object(t triple.EncodedTriple) uint64    { return t.O }

// CombineFunc builds the head triple from a matching (left, right)
// pair.
type CombineFunc func(left, right triple.EncodedTriple) triple.EncodedTriple

// Join is the engine's only join primitive; multi-way joins are always
// expressed as repeated two-way joins. It equi-joins left and right on
// leftKey(l) == rightKey(r), emitting combine(l, r) for every matching
// pair with multiplicity countL * countR, and runs the work in parallel
// by hash-partitioning both sides on the join key: a pair can only
// match across workers if it was routed to the same worker, so
// partitioning both sides by the same hash is what makes the parallel
// join correct regardless of worker count.
func Join(ctx context.Context, pool *workerpool.Pool, left, right Multiset, leftKey, rightKey KeyFunc, combine CombineFunc) (Multiset, error) {
	workers := pool.Workers()
	if workers < 1 {
		workers = 1
	}

	leftBuckets := make([]Multiset, workers)
	rightBuckets := make([]Multiset, workers)
	for i := range leftBuckets {
		leftBuckets[i] = make(Multiset)
		rightBuckets[i] = make(Multiset)
	}

	for t, c := range left {
		b := triple.HashUint64(leftKey(t)) % uint64(workers)
		leftBuckets[b][t] = c
	}
	for t, c := range right {
		b := triple.HashUint64(rightKey(t)) % uint64(workers)
		rightBuckets[b][t] = c
	}

	partials := make([]Multiset, workers)
	tasks := make([]workerpool.Task, workers)
	for i := 0; i < workers; i++ {
		i := i
		tasks[i] = func(ctx context.Context) error {
			partials[i] = joinBucket(leftBuckets[i], rightBuckets[i], leftKey, rightKey, combine)
			return nil
		}
	}

	if err := pool.Run(ctx, tasks); err != nil {
		return nil, err
	}

	return Concat(partials...), nil
}

// joinBucket performs the local nested-loop join within one worker's
// shard, after both sides have already been routed there by key hash.
func joinBucket(left, right Multiset, leftKey, rightKey KeyFunc, combine CombineFunc) Multiset {
	rightByKey := make(map[uint64][]triple.EncodedTriple)
	rightCount := make(map[triple.EncodedTriple]int64, len(right))
	for t, c := range right {
		k := rightKey(t)
		rightByKey[k] = append(rightByKey[k], t)
		rightCount[t] = c
	}

	out := make(Multiset)
	for lt, lc := range left {
		k := leftKey(lt)
		for _, rt := range rightByKey[k] {
			head := combine(lt, rt)
			out[head] += lc * rightCount[rt]
		}
	}
	return out
}
