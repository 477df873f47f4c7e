package encoder

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhodf/closure/pkg/triple"
)

func TestEncodeTermBijection(t *testing.T) {
	d := New(nil)
	id, err := d.EncodeTerm("http://example.org/a")
	require.NoError(t, err)

	term, err := d.DecodeID(id)
	require.NoError(t, err)
	assert.Equal(t, triple.Term("http://example.org/a"), term)
}

func TestEncodeTermIsIdempotent(t *testing.T) {
	d := New(nil)
	id1, err := d.EncodeTerm("a")
	require.NoError(t, err)
	id2, err := d.EncodeTerm("a")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestEncodeTermMonotoneIDs(t *testing.T) {
	d := New(nil)
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		id, err := d.EncodeTerm(triple.Term(string(rune('a' + i%26))))
		require.NoError(t, err)
		seen[id] = true
	}
	assert.Less(t, len(seen), 27, "only 26 distinct terms were fed in")
}

func TestDecodeIDUnknown(t *testing.T) {
	d := New(nil)
	_, err := d.DecodeID(999)
	assert.Error(t, err)
}

func TestEncodeTermConcurrentSafe(t *testing.T) {
	d := New(nil)
	var wg sync.WaitGroup
	ids := make([]uint64, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := d.EncodeTerm("shared-term")
			require.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id, "every goroutine encoding the same term must get the same id")
	}
}

func TestEncodeTripleRoundTrip(t *testing.T) {
	d := New(nil)
	in := triple.Triple{S: "s", P: "p", O: "o"}
	enc, err := d.EncodeTriple(in)
	require.NoError(t, err)

	out, err := d.DecodeTriple(enc)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLenCountsDistinctTerms(t *testing.T) {
	d := New(nil)
	_, _ = d.EncodeTerm("a")
	_, _ = d.EncodeTerm("b")
	_, _ = d.EncodeTerm("a")
	assert.Equal(t, 2, d.Len())
}
