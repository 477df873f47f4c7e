package collection

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

// TestJoinTransitiveChain exercises the shape R1 relies on: left keyed
// on object, right keyed on subject, combine builds the transitive
// head, one worker.
func TestJoinTransitiveChain(t *testing.T) {
	pool := workerpool.New(1, quietLogger())

	// a SCO b, b SCO c -> expect a SCO c
	left := Multiset{tr(1, 99, 2): 1}  // (a, p, b)
	right := Multiset{tr(2, 99, 3): 1} // (b, p, c)

	combine := func(l, r triple.EncodedTriple) triple.EncodedTriple {
		return tr(l.S, l.P, r.O)
	}

	out, err := Join(context.Background(), pool, left, right, Object, Subject, combine)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out[tr(1, 99, 3)])
}

func TestJoinDeterministicAcrossWorkerCounts(t *testing.T) {
	left := Multiset{}
	right := Multiset{}
	for i := uint64(0); i < 50; i++ {
		left[tr(i, 1, i%7)] = 1
		right[tr(i%7, 2, i)] = 1
	}
	combine := func(l, r triple.EncodedTriple) triple.EncodedTriple {
		return tr(l.S, l.P, r.O)
	}

	one, err := Join(context.Background(), workerpool.New(1, quietLogger()), left, right, Object, Subject, combine)
	require.NoError(t, err)

	many, err := Join(context.Background(), workerpool.New(8, quietLogger()), left, right, Object, Subject, combine)
	require.NoError(t, err)

	assert.True(t, Equal(one, many), "join result must not depend on worker count")
}

func TestJoinMultipliesMultiplicities(t *testing.T) {
	pool := workerpool.New(2, quietLogger())
	left := Multiset{tr(1, 0, 9): 2}
	right := Multiset{tr(9, 0, 3): 3}
	combine := func(l, r triple.EncodedTriple) triple.EncodedTriple {
		return tr(l.S, l.P, r.O)
	}

	out, err := Join(context.Background(), pool, left, right, Object, Subject, combine)
	require.NoError(t, err)
	assert.Equal(t, int64(6), out[tr(1, 0, 3)])
}

func TestJoinNoMatchesIsEmpty(t *testing.T) {
	pool := workerpool.New(4, quietLogger())
	left := Multiset{tr(1, 0, 9): 1}
	right := Multiset{tr(8, 0, 3): 1}
	combine := func(l, r triple.EncodedTriple) triple.EncodedTriple {
		return tr(l.S, l.P, r.O)
	}

	out, err := Join(context.Background(), pool, left, right, Object, Subject, combine)
	require.NoError(t, err)
	assert.Empty(t, out)
}
