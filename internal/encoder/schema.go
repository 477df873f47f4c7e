package encoder

import (
	apperrors "github.com/rhodf/closure/pkg/errors"
	"github.com/rhodf/closure/pkg/triple"
)

// Reserved schema term IRIs. Encoded once at startup and never again
// referenced by string inside the engine.
const (
	TermSubClassOf    triple.Term = "http://www.w3.org/2000/01/rdf-schema#subClassOf"
	TermSubPropertyOf triple.Term = "http://www.w3.org/2000/01/rdf-schema#subPropertyOf"
	TermType          triple.Term = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	TermDomain        triple.Term = "http://www.w3.org/2000/01/rdf-schema#domain"
	TermRange         triple.Term = "http://www.w3.org/2000/01/rdf-schema#range"
)

// SchemaConstants is a named vector of the five reserved schema term
// ids, used in place of a bare array so a wrong-index bug fails to
// compile rather than silently misrouting a rule.
type SchemaConstants struct {
	SubClassOf    uint64
	SubPropertyOf uint64
	Type          uint64
	Domain        uint64
	Range         uint64
}

// NewSchemaConstants encodes the five reserved terms under dict and
// returns the resulting ids. Encoding rather than merely looking them
// up means the first call in any process populates the dictionary with
// these five terms before any triple is parsed.
func NewSchemaConstants(dict *Dictionary) (SchemaConstants, error) {
	sco, err := dict.EncodeTerm(TermSubClassOf)
	if err != nil {
		return SchemaConstants{}, err
	}
	spo, err := dict.EncodeTerm(TermSubPropertyOf)
	if err != nil {
		return SchemaConstants{}, err
	}
	typ, err := dict.EncodeTerm(TermType)
	if err != nil {
		return SchemaConstants{}, err
	}
	dom, err := dict.EncodeTerm(TermDomain)
	if err != nil {
		return SchemaConstants{}, err
	}
	rng, err := dict.EncodeTerm(TermRange)
	if err != nil {
		return SchemaConstants{}, err
	}
	return SchemaConstants{
		SubClassOf:    sco,
		SubPropertyOf: spo,
		Type:          typ,
		Domain:        dom,
		Range:         rng,
	}, nil
}

// Verify confirms all five ids are still resolvable in dict, returning
// SchemaConstantMissing if any is absent. The ids are immutable once
// setup has completed; this is meant to be called once right after
// NewSchemaConstants, not on every access.
func (sc SchemaConstants) Verify(dict *Dictionary) error {
	ids := map[string]uint64{
		"subClassOf":    sc.SubClassOf,
		"subPropertyOf": sc.SubPropertyOf,
		"type":          sc.Type,
		"domain":        sc.Domain,
		"range":         sc.Range,
	}
	for name, id := range ids {
		if _, err := dict.DecodeID(id); err != nil {
			return apperrors.SchemaConstantMissing("verify", "schema constant not present: "+name)
		}
	}
	return nil
}
