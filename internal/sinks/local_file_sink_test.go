package sinks

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhodf/closure/internal/encoder"
	"github.com/rhodf/closure/pkg/triple"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.FatalLevel)
	return l
}

func TestLocalFileSinkWritesPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	s, err := NewLocalFileSink(LocalFileConfig{Path: path}, quietLogger())
	require.NoError(t, err)

	in := []triple.EncodedTriple{{S: 1, P: 2, O: 3}, {S: 4, P: 5, O: 6}}
	for _, tr := range in {
		require.NoError(t, s.Write(tr))
	}
	require.NoError(t, s.Close())

	out, err := encoder.Load(path, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, in, out)
}

func TestLocalFileSinkWritesGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt.gz")

	s, err := NewLocalFileSink(LocalFileConfig{Path: path, Compress: true}, quietLogger())
	require.NoError(t, err)

	in := []triple.EncodedTriple{{S: 7, P: 8, O: 9}}
	require.NoError(t, s.Write(in[0]))
	require.NoError(t, s.Close())

	out, err := encoder.Load(path, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, in, out)
}

func TestLocalFileSinkCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	s, err := NewLocalFileSink(LocalFileConfig{Path: path}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestLocalFileSinkWriteAfterCloseErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	s, err := NewLocalFileSink(LocalFileConfig{Path: path}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Error(t, s.Write(triple.EncodedTriple{S: 1, P: 2, O: 3}))
}

func TestLocalFileSinkRejectsUnwritablePath(t *testing.T) {
	_, err := NewLocalFileSink(LocalFileConfig{Path: "/nonexistent/dir/out.txt"}, quietLogger())
	assert.Error(t, err)
}
