package encoder

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/rhodf/closure/pkg/errors"
	"github.com/rhodf/closure/pkg/triple"
)

// ParseLine parses one whitespace-separated textual triple line, in an
// N-Triples-shaped "subject predicate object" format, with an optional
// trailing "." terminator. Blank and "#" comment lines are rejected with
// InputMalformed like any other unusable line. The rule
// engine is indifferent to serialization syntax; this is the parser
// collaborator's contract, not the engine's.
func ParseLine(line string) (triple.Triple, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return triple.Triple{}, apperrors.InputMalformed("parse_line", "blank or comment line")
	}
	trimmed = strings.TrimSuffix(trimmed, ".")
	trimmed = strings.TrimSpace(trimmed)

	fields := strings.Fields(trimmed)
	if len(fields) != 3 {
		return triple.Triple{}, apperrors.InputMalformed("parse_line",
			fmt.Sprintf("expected 3 whitespace-separated terms, got %d", len(fields)))
	}

	return triple.Triple{
		S: triple.Term(unwrapTerm(fields[0])),
		P: triple.Term(unwrapTerm(fields[1])),
		O: triple.Term(unwrapTerm(fields[2])),
	}, nil
}

// unwrapTerm strips the "<...>" IRI delimiters N-Triples uses, if
// present, leaving any other lexical form (literal, blank-node id)
// untouched — every term is treated as an opaque string alike.
func unwrapTerm(field string) string {
	if len(field) >= 2 && field[0] == '<' && field[len(field)-1] == '>' {
		return field[1 : len(field)-1]
	}
	return field
}

// ParsePersisted parses one line of the persistent encoded format,
// "(s_id,p_id,o_id)" — three decimal integers separated by commas,
// wrapped in parentheses. Loading this format bypasses ParseLine and
// the dictionary entirely.
func ParsePersisted(line string) (triple.EncodedTriple, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return triple.EncodedTriple{}, apperrors.InputMalformed("parse_persisted", "blank line")
	}
	if !strings.HasPrefix(trimmed, "(") || !strings.HasSuffix(trimmed, ")") {
		return triple.EncodedTriple{}, apperrors.InputMalformed("parse_persisted",
			"line not wrapped in parentheses")
	}
	inner := trimmed[1 : len(trimmed)-1]
	parts := strings.Split(inner, ",")
	if len(parts) != 3 {
		return triple.EncodedTriple{}, apperrors.InputMalformed("parse_persisted",
			fmt.Sprintf("expected 3 comma-separated ids, got %d", len(parts)))
	}

	ids := make([]uint64, 3)
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return triple.EncodedTriple{}, apperrors.InputMalformed("parse_persisted",
				"non-integer id: "+p)
		}
		ids[i] = v
	}

	return triple.EncodedTriple{S: ids[0], P: ids[1], O: ids[2]}, nil
}

// FormatPersisted renders t in the persistent encoded format.
func FormatPersisted(t triple.EncodedTriple) string {
	return fmt.Sprintf("(%d,%d,%d)", t.S, t.P, t.O)
}
