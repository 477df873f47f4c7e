package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhodf/closure/internal/driver"
	"github.com/rhodf/closure/internal/encoder"
	"github.com/rhodf/closure/internal/sinks"
	"github.com/rhodf/closure/pkg/workerpool"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.FatalLevel)
	return l
}

func TestParseDeltaFileSplitsSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "delta.txt")
	require.NoError(t, os.WriteFile(path, []byte(`
ADD
a p b
c p d
RETRACT
e p f
`), 0o644))

	df, err := ParseDeltaFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a p b", "c p d"}, df.Adds)
	assert.Equal(t, []string{"e p f"}, df.Retracts)
}

func TestParseDeltaFileHeaderlessIsAllAdds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "delta.txt")
	require.NoError(t, os.WriteFile(path, []byte("a p b\nc p d\n"), 0o644))

	df, err := ParseDeltaFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a p b", "c p d"}, df.Adds)
	assert.Empty(t, df.Retracts)
}

func TestParseDeltaFileSkipsBlankAndComment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "delta.txt")
	require.NoError(t, os.WriteFile(path, []byte("# a comment\n\na p b\n"), 0o644))

	df, err := ParseDeltaFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a p b"}, df.Adds)
}

func TestParseDeltaFileMissingPathErrors(t *testing.T) {
	_, err := ParseDeltaFile("/nonexistent/delta.txt")
	assert.Error(t, err)
}

func newTestApplier(t *testing.T) (*Applier, *driver.Driver, *sinks.MemorySink) {
	dict := encoder.New(quietLogger())
	sc, err := encoder.NewSchemaConstants(dict)
	require.NoError(t, err)
	skipped := encoder.NewSkippedRecords(quietLogger())
	pool := workerpool.New(2, quietLogger())
	enc := encoder.New(dict, skipped, pool, quietLogger())

	drv := driver.New(2, sc, quietLogger(), nil)
	require.NoError(t, drv.InsertInitial(context.Background(), nil, nil))

	sink := sinks.NewMemorySink()
	return NewApplier(enc, drv, 1), drv, sink
}

func TestApplierApplyAppliesAddsAndRetracts(t *testing.T) {
	applier, drv, sink := newTestApplier(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "delta.txt")
	require.NoError(t, os.WriteFile(path, []byte("ADD\na p b\nc p d\nRETRACT\nc p d\n"), 0o644))

	require.NoError(t, applier.Apply(context.Background(), path))
	require.NoError(t, drv.DrainAt(context.Background(), 2, sink))
	assert.Len(t, sink.Triples(), 1)
}

func TestApplierApplyLineRetract(t *testing.T) {
	applier, drv, sink := newTestApplier(t)

	require.NoError(t, applier.ApplyLine(context.Background(), "a p b", false))
	require.NoError(t, applier.ApplyLine(context.Background(), "a p b", true))

	require.NoError(t, drv.DrainAt(context.Background(), 3, sink))
	assert.Empty(t, sink.Triples())
}

func TestWatcherAppliesFilesDroppedInDirectory(t *testing.T) {
	dir := t.TempDir()

	applied := make(chan string, 4)
	apply := func(ctx context.Context, path string) error {
		applied <- path
		return nil
	}

	w, err := New(dir, apply, quietLogger())
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher goroutine a moment to register its event loop.
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(dir, "delta.txt")
	require.NoError(t, os.WriteFile(path, []byte("a p b\n"), 0o644))

	select {
	case got := <-applied:
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher to apply dropped file")
	}
}
