// Package collection implements a signed-multiset collection runtime
// over EncodedTriple, with filter/map/join/concat/iterate/threshold/
// arrange operators, built on the exchange hash and worker pool the
// rest of the engine already uses.
package collection

import "github.com/rhodf/closure/pkg/triple"

// Multiset maps an EncodedTriple to its signed multiplicity. A triple
// absent from the map is equivalent to multiplicity 0. Threshold is
// what enforces a {-1,0,+1} count before a multiset is handed to a
// caller outside this package.
type Multiset map[triple.EncodedTriple]int64

// New returns an empty Multiset.
func New() Multiset {
	return make(Multiset)
}

// FromSlice builds a Multiset from a slice of distinct-or-not triples,
// each occurrence contributing +1 — the shape insert_initial and
// apply_delta's "adds" list arrive in.
func FromSlice(triples []triple.EncodedTriple) Multiset {
	m := make(Multiset, len(triples))
	for _, t := range triples {
		m[t]++
	}
	return m
}

// Clone returns a shallow copy; every operator below returns a new
// Multiset rather than mutating its input.
func (m Multiset) Clone() Multiset {
	out := make(Multiset, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Filter returns a new Multiset containing only the triples for which
// pred returns true, with their multiplicities unchanged.
func Filter(m Multiset, pred func(triple.EncodedTriple) bool) Multiset {
	out := make(Multiset)
	for t, c := range m {
		if pred(t) {
			out[t] = c
		}
	}
	return out
}

// MapTriples applies fn to every triple in m, summing multiplicities
// when two input triples map to the same output triple (as a join
// output rewritten by R4's predicate substitution might).
func MapTriples(m Multiset, fn func(triple.EncodedTriple) triple.EncodedTriple) Multiset {
	out := make(Multiset, len(m))
	for t, c := range m {
		out[fn(t)] += c
	}
	return out
}

// Concat sums multiplicities across any number of multisets — the
// union operator the rule engine uses after every stage, before
// Threshold coalesces the result.
func Concat(sets ...Multiset) Multiset {
	out := make(Multiset)
	for _, m := range sets {
		for t, c := range m {
			out[t] += c
		}
	}
	return out
}

// Threshold is the signed-distinct operator: it maps each key's raw
// count c to sign(c) in {-1, 0, +1}, dropping zero-count
// entries entirely. Preserving -1 (rather than collapsing it to 0 the
// way a naive distinct would) is what lets a retraction that is not yet
// compensated by a surviving derivation propagate downstream instead of
// silently vanishing.
func Threshold(m Multiset) Multiset {
	out := make(Multiset, len(m))
	for t, c := range m {
		switch {
		case c > 0:
			out[t] = 1
		case c < 0:
			out[t] = -1
		}
	}
	return out
}

// Positive returns the sub-multiset of triples currently present (those
// with positive count).
func Positive(m Multiset) Multiset {
	out := make(Multiset)
	for t, c := range m {
		if c > 0 {
			out[t] = c
		}
	}
	return out
}

// Equal reports whether two multisets have identical keys and counts,
// used by Iterate to detect a fixed point.
func Equal(a, b Multiset) bool {
	if len(a) != len(b) {
		return false
	}
	for t, c := range a {
		if bc, ok := b[t]; !ok || bc != c {
			return false
		}
	}
	return true
}

// Keys returns every triple with a nonzero count, in no particular
// order.
func (m Multiset) Keys() []triple.EncodedTriple {
	out := make([]triple.EncodedTriple, 0, len(m))
	for t, c := range m {
		if c != 0 {
			out = append(out, t)
		}
	}
	return out
}
