// Package rules implements the six RDFS entailment rules as three
// shared templates over internal/collection, composed in the fixed
// order R1->R2->R4->R5->R6->R3.
package rules

import (
	"context"

	"github.com/rhodf/closure/internal/collection"
	"github.com/rhodf/closure/pkg/triple"
	"github.com/rhodf/closure/pkg/workerpool"
)

// TransitiveClosure is the R1/R2 template: compute the transitive
// closure of a single-predicate collection by repeatedly re-keying it
// by object and by subject and joining the two re-keyings to obtain
// two-hop compositions (s1, pi, o2), unioning them back in and
// thresholding, until a round adds nothing new.
func TransitiveClosure(ctx context.Context, pool *workerpool.Pool, seed collection.Multiset) (collection.Multiset, error) {
	return collection.Iterate(ctx, seed, func(ctx context.Context, cur collection.Multiset) (collection.Multiset, error) {
		return collection.Join(ctx, pool, cur, cur, collection.Object, collection.Subject,
			func(l, r triple.EncodedTriple) triple.EncodedTriple {
				return triple.EncodedTriple{S: l.S, P: l.P, O: r.O}
			})
	})
}

// ExternalJoinClosure is the R3/R4 template: identical in shape to
// TransitiveClosure, but the join's other side is a filtered external
// collection (SCO-only for R3, SPO-only for R4) entered into the inner
// scope unchanged each round, rather than the inner collection itself.
// candidates is pre-filtered by the caller to triples whose join key
// already appears in external, which bounds the fixpoint.
func ExternalJoinClosure(ctx context.Context, pool *workerpool.Pool, candidates, external collection.Multiset, candidateKey, externalKey collection.KeyFunc, combine collection.CombineFunc) (collection.Multiset, error) {
	return collection.Iterate(ctx, candidates, func(ctx context.Context, cur collection.Multiset) (collection.Multiset, error) {
		return collection.Join(ctx, pool, cur, external, candidateKey, externalKey, combine)
	})
}

// Projection is the R5/R6 template: a single equi-join between the
// working collection and a schema sub-collection (DOM for R5, RNG for
// R6), with no fixed point — the head predicate (TYPE) never reappears
// in the body of either rule, so one join suffices.
func Projection(ctx context.Context, pool *workerpool.Pool, working, schema collection.Multiset, workingKey, schemaKey collection.KeyFunc, combine collection.CombineFunc) (collection.Multiset, error) {
	return collection.Join(ctx, pool, working, schema, workingKey, schemaKey, combine)
}
