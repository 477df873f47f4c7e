package rules

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rhodf/closure/internal/collection"
	"github.com/rhodf/closure/internal/encoder"
	"github.com/rhodf/closure/internal/metrics"
	"github.com/rhodf/closure/pkg/triple"
	"github.com/rhodf/closure/pkg/tracing"
	"github.com/rhodf/closure/pkg/workerpool"
)

// R1 closes T(a,SCO,c) <- T(a,SCO,b), T(b,SCO,c): the transitive closure
// of the subClassOf sub-collection of working.
func R1(ctx context.Context, pool *workerpool.Pool, working collection.Multiset, sc encoder.SchemaConstants) (collection.Multiset, error) {
	seed := collection.Filter(working, func(t triple.EncodedTriple) bool { return t.P == sc.SubClassOf })
	return TransitiveClosure(ctx, pool, seed)
}

// R2 closes T(a,SPO,c) <- T(a,SPO,b), T(b,SPO,c): the transitive closure
// of the subPropertyOf sub-collection of working.
func R2(ctx context.Context, pool *workerpool.Pool, working collection.Multiset, sc encoder.SchemaConstants) (collection.Multiset, error) {
	seed := collection.Filter(working, func(t triple.EncodedTriple) bool { return t.P == sc.SubPropertyOf })
	return TransitiveClosure(ctx, pool, seed)
}

// R3 closes T(x,TYPE,b) <- T(a,SCO,b), T(x,TYPE,a): class membership
// propagated along the (already-closed, by composition order) subclass
// hierarchy.
func R3(ctx context.Context, pool *workerpool.Pool, working collection.Multiset, sc encoder.SchemaConstants) (collection.Multiset, error) {
	external := collection.Filter(working, func(t triple.EncodedTriple) bool { return t.P == sc.SubClassOf })
	subjects := make(map[uint64]struct{}, len(external))
	for t := range external {
		subjects[t.S] = struct{}{}
	}
	candidates := collection.Filter(working, func(t triple.EncodedTriple) bool {
		_, ok := subjects[t.O]
		return t.P == sc.Type && ok
	})

	return ExternalJoinClosure(ctx, pool, candidates, external,
		collection.Object, collection.Subject,
		func(l, r triple.EncodedTriple) triple.EncodedTriple {
			return triple.EncodedTriple{S: l.S, P: sc.Type, O: r.O}
		})
}

// R4 closes T(x,p,y) <- T(p1,SPO,p), T(x,p1,y): predicate generalization
// rewriting along the (already-closed, by composition order)
// subPropertyOf hierarchy.
func R4(ctx context.Context, pool *workerpool.Pool, working collection.Multiset, sc encoder.SchemaConstants) (collection.Multiset, error) {
	external := collection.Filter(working, func(t triple.EncodedTriple) bool { return t.P == sc.SubPropertyOf })
	subjects := make(map[uint64]struct{}, len(external))
	for t := range external {
		subjects[t.S] = struct{}{}
	}
	candidates := collection.Filter(working, func(t triple.EncodedTriple) bool {
		_, ok := subjects[t.P]
		return ok
	})

	return ExternalJoinClosure(ctx, pool, candidates, external,
		collection.Predicate, collection.Subject,
		func(l, r triple.EncodedTriple) triple.EncodedTriple {
			return triple.EncodedTriple{S: l.S, P: r.O, O: l.O}
		})
}

// R5 derives T(a,TYPE,D) <- T(p,DOM,D), T(a,p,b): domain typing.
// Non-iterative: TYPE, the head predicate, never recurs in the body.
func R5(ctx context.Context, pool *workerpool.Pool, working collection.Multiset, sc encoder.SchemaConstants) (collection.Multiset, error) {
	schema := collection.Filter(working, func(t triple.EncodedTriple) bool { return t.P == sc.Domain })
	return Projection(ctx, pool, working, schema, collection.Predicate, collection.Subject,
		func(l, r triple.EncodedTriple) triple.EncodedTriple {
			return triple.EncodedTriple{S: l.S, P: sc.Type, O: r.O}
		})
}

// R6 derives T(b,TYPE,R) <- T(p,RNG,R), T(a,p,b): range typing.
func R6(ctx context.Context, pool *workerpool.Pool, working collection.Multiset, sc encoder.SchemaConstants) (collection.Multiset, error) {
	schema := collection.Filter(working, func(t triple.EncodedTriple) bool { return t.P == sc.Range })
	return Projection(ctx, pool, working, schema, collection.Predicate, collection.Subject,
		func(l, r triple.EncodedTriple) triple.EncodedTriple {
			return triple.EncodedTriple{S: l.O, P: sc.Type, O: r.O}
		})
}

// stage runs one rule against the current working collection,
// concatenates its output back in, and applies the signed-distinct
// threshold so a triple derived by more than one path, or retracted
// along one path while still standing on another, nets to the right
// multiplicity before the next stage sees it.
func stage(ctx context.Context, name string, working collection.Multiset, run func() (collection.Multiset, error), logger *logrus.Logger, tracer *tracing.Manager) (collection.Multiset, error) {
	start := time.Now()
	_, end := tracer.StartSpan(ctx, "rule_stage:"+name)
	defer end()
	defer metrics.ObserveStage(name, start)

	derived, err := run()
	if err != nil {
		return nil, err
	}
	result := collection.Threshold(collection.Concat(working, derived))

	logger.WithFields(logrus.Fields{
		"stage":       name,
		"derived":     len(derived),
		"working_in":  len(working),
		"working_out": len(result),
	}).Debug("rule stage complete")

	return result, nil
}

// Compose runs the six rules in the fixed order R1->R2->R4->R5->R6->R3.
// That order is chosen so that no rule's output is consumed by an
// earlier-positioned rule within the same pass, so a single linear
// traversal reaches the full closure. seed is the accumulated raw input
// collection (a-box + t-box, already net of all retractions through the
// current timestamp).
func Compose(ctx context.Context, pool *workerpool.Pool, seed collection.Multiset, sc encoder.SchemaConstants, logger *logrus.Logger, tracer *tracing.Manager) (collection.Multiset, error) {
	working := collection.Threshold(seed)

	var err error
	working, err = stage(ctx, "R1_subclassof_closure", working, func() (collection.Multiset, error) { return R1(ctx, pool, working, sc) }, logger, tracer)
	if err != nil {
		return nil, err
	}
	working, err = stage(ctx, "R2_subpropertyof_closure", working, func() (collection.Multiset, error) { return R2(ctx, pool, working, sc) }, logger, tracer)
	if err != nil {
		return nil, err
	}
	working, err = stage(ctx, "R4_predicate_generalization", working, func() (collection.Multiset, error) { return R4(ctx, pool, working, sc) }, logger, tracer)
	if err != nil {
		return nil, err
	}
	working, err = stage(ctx, "R5_domain_typing", working, func() (collection.Multiset, error) { return R5(ctx, pool, working, sc) }, logger, tracer)
	if err != nil {
		return nil, err
	}
	working, err = stage(ctx, "R6_range_typing", working, func() (collection.Multiset, error) { return R6(ctx, pool, working, sc) }, logger, tracer)
	if err != nil {
		return nil, err
	}
	working, err = stage(ctx, "R3_type_propagation", working, func() (collection.Multiset, error) { return R3(ctx, pool, working, sc) }, logger, tracer)
	if err != nil {
		return nil, err
	}

	return working, nil
}
