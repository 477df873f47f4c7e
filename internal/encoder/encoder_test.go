package encoder

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhodf/closure/pkg/triple"
	"github.com/rhodf/closure/pkg/workerpool"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.FatalLevel)
	return l
}

func TestEncodeLinesSkipsMalformed(t *testing.T) {
	dict := New(quietLogger())
	skipped := NewSkippedRecords(quietLogger())
	pool := workerpool.New(2, quietLogger())
	enc := New(dict, skipped, pool, quietLogger())

	lines := []string{
		"a p b",
		"not a valid triple",
		"c p d",
		"",
	}
	out, err := enc.EncodeLines(context.Background(), "test", lines)
	require.NoError(t, err)

	assert.Len(t, out, 2)
	assert.Equal(t, 2, skipped.Count())
}

func TestEncodeLinesDeterministicAcrossWorkerCounts(t *testing.T) {
	lines := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		lines = append(lines, "s p o"+string(rune('a'+i%10)))
	}

	run := func(workers int) map[triple.EncodedTriple]bool {
		dict := New(quietLogger())
		skipped := NewSkippedRecords(quietLogger())
		pool := workerpool.New(workers, quietLogger())
		enc := New(dict, skipped, pool, quietLogger())

		out, err := enc.EncodeLines(context.Background(), "test", lines)
		require.NoError(t, err)

		set := make(map[triple.EncodedTriple]bool, len(out))
		for _, t := range out {
			set[t] = true
		}
		return set
	}

	one := run(1)
	many := run(8)
	assert.Equal(t, len(one), len(many))
}

func TestDecodeTriplesRoundTrip(t *testing.T) {
	dict := New(quietLogger())
	skipped := NewSkippedRecords(quietLogger())
	pool := workerpool.New(2, quietLogger())
	enc := New(dict, skipped, pool, quietLogger())

	encoded, err := enc.EncodeLines(context.Background(), "test", []string{"s p o"})
	require.NoError(t, err)
	require.Len(t, encoded, 1)

	decoded, err := enc.DecodeTriples(context.Background(), encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, triple.Triple{S: "s", P: "p", O: "o"}, decoded[0])
}

func TestSortedTriplesOrdersCanonically(t *testing.T) {
	in := []triple.EncodedTriple{
		{S: 2, P: 0, O: 0},
		{S: 1, P: 2, O: 0},
		{S: 1, P: 1, O: 0},
	}
	out := SortedTriples(in)
	want := []triple.EncodedTriple{
		{S: 1, P: 1, O: 0},
		{S: 1, P: 2, O: 0},
		{S: 2, P: 0, O: 0},
	}
	assert.Equal(t, want, out)
}
