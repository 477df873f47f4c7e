// Package triple defines the RDF term and triple types shared by every
// stage of the closure engine: the textual Term seen by the parser, and
// the integer-identifier EncodedTriple the dictionary produces from it.
package triple

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Term is an opaque RDF term: an IRI, a literal, or a blank-node id.
// The engine never inspects a Term's internal structure; it is a string
// until the Encoder turns it into an id.
type Term string

// Triple is an ordered (subject, predicate, object) tuple of textual
// terms, as produced by the parser before encoding.
type Triple struct {
	S, P, O Term
}

func (t Triple) String() string {
	return fmt.Sprintf("(%s, %s, %s)", t.S, t.P, t.O)
}

// EncodedTriple is a Triple whose components have been replaced by the
// dictionary's integer ids. It is totally ordered, hashable, and cheap
// to move across worker goroutines — the representation the rule engine
// and collection runtime operate on exclusively.
type EncodedTriple struct {
	S, P, O uint64
}

func (t EncodedTriple) String() string {
	return fmt.Sprintf("(%d, %d, %d)", t.S, t.P, t.O)
}

// Less gives EncodedTriple a canonical lexicographic order on (S, P, O),
// used by the driver when it needs a deterministic iteration order (e.g.
// when draining a trace to a sink).
func (t EncodedTriple) Less(other EncodedTriple) bool {
	if t.S != other.S {
		return t.S < other.S
	}
	if t.P != other.P {
		return t.P < other.P
	}
	return t.O < other.O
}

// Hash is a hash of the whole triple, stable across processes and
// worker counts, which xxhash over the packed 24-byte representation
// guarantees. The join's data exchange does not use it: it routes on a
// single key component through HashUint64.
func (t EncodedTriple) Hash() uint64 {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:8], t.S)
	binary.BigEndian.PutUint64(buf[8:16], t.P)
	binary.BigEndian.PutUint64(buf[16:24], t.O)
	return xxhash.Sum64(buf[:])
}

// HashUint64 hashes a single id, used to partition a join on a single
// key component (object, subject, or predicate) rather than the full
// triple.
func HashUint64(id uint64) uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return xxhash.Sum64(buf[:])
}
