package encoder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhodf/closure/pkg/triple"
)

func TestPersistAndLoadPlain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triples.out")

	in := []triple.EncodedTriple{{S: 1, P: 2, O: 3}, {S: 4, P: 5, O: 6}}
	require.NoError(t, Persist(path, in, false))

	out, err := Load(path, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, in, out)
}

func TestPersistAndLoadGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triples.out.gz")

	in := []triple.EncodedTriple{{S: 1, P: 2, O: 3}}
	require.NoError(t, Persist(path, in, true))

	out, err := Load(path, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, in, out)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/should/not/exist.out", false)
	assert.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.out")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	out, err := Load(path, false)
	require.NoError(t, err)
	assert.Empty(t, out)
}
