package app

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhodf/closure/internal/config"
	"github.com/rhodf/closure/internal/sinks"
)

func TestNewWiresMemorySink(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.Kind = "memory"
	cfg.Metrics.Enabled = false

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, ok := a.Sink.(*sinks.MemorySink)
	assert.True(t, ok)
}

func TestNewRejectsUnknownSinkKind(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.Kind = "carrier-pigeon"

	_, err := New(cfg)
	assert.Error(t, err)
}

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadInitialAndDrainEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Sink.Kind = "memory"
	cfg.Metrics.Enabled = false
	cfg.ABoxPath = writeFixture(t, dir, "abox.nt", "felix type Cat\n")
	cfg.TBoxPath = writeFixture(t, dir, "tbox.nt", "Cat subClassOf Mammal\n")

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	require.NoError(t, a.LoadInitial(context.Background()))
	require.NoError(t, a.Drain(context.Background(), 1))

	sink := a.Sink.(*sinks.MemorySink)
	assert.NotEmpty(t, sink.Triples())
}

func TestLoadInitialMissingFileErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.Kind = "memory"
	cfg.Metrics.Enabled = false
	cfg.ABoxPath = "/nonexistent/abox.nt"

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Error(t, a.LoadInitial(context.Background()))
}

func TestCloseIsIdempotent(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.Kind = "memory"
	cfg.Metrics.Enabled = false

	a, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, a.Close(context.Background()))
	assert.NoError(t, a.Close(context.Background()))
}

func TestHandleHealthzReportsOK(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.Kind = "memory"
	cfg.Metrics.Enabled = false
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	a.handleHealthz(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHandleStatsReportsCounts(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Sink.Kind = "memory"
	cfg.Metrics.Enabled = false
	cfg.ABoxPath = writeFixture(t, dir, "abox.nt", "a p b\nnot a valid triple\n")
	cfg.TBoxPath = writeFixture(t, dir, "tbox.nt", "")

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())
	require.NoError(t, a.LoadInitial(context.Background()))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/stats", nil)
	a.handleStats(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"skipped_lines":1`)
}

func TestStartWatchNoopWhenDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.Kind = "memory"
	cfg.Metrics.Enabled = false
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.NoError(t, a.StartWatch(context.Background(), 1))
}

func TestStartWatchWithDirectory(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Sink.Kind = "memory"
	cfg.Metrics.Enabled = false
	cfg.Watch.Enabled = true
	cfg.Watch.Directory = dir

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())
	require.NoError(t, a.StartWatch(context.Background(), 1))
}
