// Package encoder implements the bijective term dictionary: the map
// between textual RDF terms and the fixed-width integer ids the rest of
// the engine operates on, plus the parser and persistence contracts
// that feed it.
package encoder

import (
	"sync"

	"github.com/sirupsen/logrus"

	apperrors "github.com/rhodf/closure/pkg/errors"
	"github.com/rhodf/closure/pkg/triple"
)

// Dictionary is a pair of inverse mappings (term -> id, id -> term),
// extended monotonically and never shrunk. A single-writer discipline
// (an exclusive lock on miss) makes it safe to share across worker
// goroutines without a lock-free bimap.
type Dictionary struct {
	mu       sync.RWMutex
	termToID map[triple.Term]uint64
	idToTerm map[uint64]triple.Term
	next     uint64
	logger   *logrus.Logger
}

// New creates an empty Dictionary, created once at process startup and
// held for the process lifetime.
func New(logger *logrus.Logger) *Dictionary {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dictionary{
		termToID: make(map[triple.Term]uint64),
		idToTerm: make(map[uint64]triple.Term),
		logger:   logger,
	}
}

// EncodeTerm returns the id bound to term, allocating the next id from
// the monotone counter and installing both directions of the mapping if
// term has not been seen before. Ids are never reused for a different
// term within the dictionary's lifetime.
func (d *Dictionary) EncodeTerm(term triple.Term) (uint64, error) {
	d.mu.RLock()
	if id, ok := d.termToID[term]; ok {
		d.mu.RUnlock()
		return id, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Re-check under the write lock: another writer may have installed
	// this term while we waited.
	if id, ok := d.termToID[term]; ok {
		return id, nil
	}

	id := d.next
	if existing, ok := d.idToTerm[id]; ok && existing != term {
		return 0, apperrors.DictionaryInconsistent("encode_term",
			"next id already bound to a different term")
	}

	d.termToID[term] = id
	d.idToTerm[id] = term
	d.next++

	return id, nil
}

// DecodeID returns the term bound to id, or UnknownID if no term has
// ever been assigned that id.
func (d *Dictionary) DecodeID(id uint64) (triple.Term, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	term, ok := d.idToTerm[id]
	if !ok {
		return "", apperrors.UnknownID("decode_id", "id not bound to any term")
	}
	return term, nil
}

// Len returns the number of distinct terms encoded so far, exported as
// a gauge by internal/metrics.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.termToID)
}

// EncodeTriple encodes all three components of t under the shared
// dictionary.
func (d *Dictionary) EncodeTriple(t triple.Triple) (triple.EncodedTriple, error) {
	s, err := d.EncodeTerm(t.S)
	if err != nil {
		return triple.EncodedTriple{}, err
	}
	p, err := d.EncodeTerm(t.P)
	if err != nil {
		return triple.EncodedTriple{}, err
	}
	o, err := d.EncodeTerm(t.O)
	if err != nil {
		return triple.EncodedTriple{}, err
	}
	return triple.EncodedTriple{S: s, P: p, O: o}, nil
}

// DecodeTriple decodes all three components of an EncodedTriple back to
// text, for the output sink boundary.
func (d *Dictionary) DecodeTriple(t triple.EncodedTriple) (triple.Triple, error) {
	s, err := d.DecodeID(t.S)
	if err != nil {
		return triple.Triple{}, err
	}
	p, err := d.DecodeID(t.P)
	if err != nil {
		return triple.Triple{}, err
	}
	o, err := d.DecodeID(t.O)
	if err != nil {
		return triple.Triple{}, err
	}
	return triple.Triple{S: s, P: p, O: o}, nil
}
