package collection

import "context"

// StepFunc computes one round's new derivations from the current inner
// collection. Iterate concatenates its output with the current
// collection and applies Threshold until a round produces no net
// change.
type StepFunc func(ctx context.Context, cur Multiset) (Multiset, error)

// Iterate runs the self-recursive transitive-closure template shared by
// R1-R4: seed the inner collection, then repeatedly re-derive, union
// with the running total, and threshold, until a round changes nothing.
// Cyclic schema graphs (e.g. a SCO b SCO a) terminate naturally here
// because Threshold caps every key's count at {-1, 0, +1} — a cycle can
// only ever add triples already present, so the fixed point is reached
// as soon as no new key appears.
//
// There is no iteration cap and no timeout: termination is guaranteed
// because the domain of possible triples (over the ids already
// encoded) is finite, so the thresholded collection can only grow,
// never shrink, as long as step is monotone in cur — true of every rule
// here, since each step only ever adds compositions of existing
// triples.
func Iterate(ctx context.Context, seed Multiset, step StepFunc) (Multiset, error) {
	cur := Threshold(seed)
	for {
		derived, err := step(ctx, cur)
		if err != nil {
			return nil, err
		}
		next := Threshold(Concat(cur, derived))
		if Equal(next, cur) {
			return cur, nil
		}
		cur = next
	}
}
