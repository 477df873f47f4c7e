// Package app wires the engine's collaborators together from a loaded
// configuration: dictionary, schema constants, driver, sink, optional
// HTTP server, and optional directory watch, so cmd/rhodfd stays a
// thin flag-parsing shell around this package.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rhodf/closure/internal/config"
	"github.com/rhodf/closure/internal/driver"
	"github.com/rhodf/closure/internal/encoder"
	"github.com/rhodf/closure/internal/metrics"
	"github.com/rhodf/closure/internal/sinks"
	"github.com/rhodf/closure/internal/watch"
	apperrors "github.com/rhodf/closure/pkg/errors"
	"github.com/rhodf/closure/pkg/tracing"
	"github.com/rhodf/closure/pkg/workerpool"
)

// App holds every long-lived collaborator the engine needs for one
// run: a dictionary, an encoder, a driver, a sink, and the optional
// HTTP server and directory watcher.
type App struct {
	Config config.Config
	Logger *logrus.Logger

	Dict    *encoder.Dictionary
	Skipped *encoder.SkippedRecords
	Encoder *encoder.Encoder
	Driver  *driver.Driver
	Sink    driver.Sink
	Tracer  *tracing.Manager

	pool     *workerpool.Pool
	server   *http.Server
	watcher  *watch.Watcher
	streamer *watch.StreamTailer
}

// New builds an App from cfg, constructing the dictionary, schema
// constants, driver, and sink, but starting no background goroutines.
// Call LoadInitial for the batch load, and ServeHTTP and StartWatch for
// any configured servers.
func New(cfg config.Config) (*App, error) {
	logger := newLogger(cfg)

	tracer, err := tracing.New(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "rhodf-closure",
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
	}, logger)
	if err != nil {
		return nil, apperrors.EngineStalled("new_app", "set up tracing").Wrap(err)
	}

	dict := encoder.New(logger)
	sc, err := encoder.NewSchemaConstants(dict)
	if err != nil {
		return nil, err
	}

	drv := driver.New(cfg.Workers, sc, logger, tracer)

	sink, err := buildSink(cfg.Sink, logger)
	if err != nil {
		return nil, err
	}

	skipped := encoder.NewSkippedRecords(logger)
	pool := workerpool.New(cfg.Workers, logger)

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Dict:    dict,
		Skipped: skipped,
		Driver:  drv,
		Sink:    sink,
		Tracer:  tracer,
		pool:    pool,
	}
	a.Encoder = encoder.New(dict, skipped, pool, logger)
	return a, nil
}

func newLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogFormat == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

func buildSink(cfg config.SinkConfig, logger *logrus.Logger) (driver.Sink, error) {
	switch cfg.Kind {
	case "memory":
		return sinks.NewMemorySink(), nil
	case "file":
		return sinks.NewLocalFileSink(sinks.LocalFileConfig{
			Path:     cfg.Path,
			Compress: cfg.Compress,
		}, logger)
	case "kafka":
		return sinks.NewKafkaSink(sinks.KafkaSinkConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, logger)
	default:
		return nil, apperrors.InputMalformed("build_sink", fmt.Sprintf("unknown sink kind %q", cfg.Kind))
	}
}

// LoadInitial reads the a-box and t-box files named in the config,
// encodes every line under the shared dictionary, and inserts the
// result as the initial materialization at logical time 1.
func (a *App) LoadInitial(ctx context.Context) error {
	aLines, err := readLines(a.Config.ABoxPath)
	if err != nil {
		return err
	}
	tLines, err := readLines(a.Config.TBoxPath)
	if err != nil {
		return err
	}

	aEncoded, err := a.Encoder.EncodeLines(ctx, a.Config.ABoxPath, aLines)
	if err != nil {
		return err
	}
	tEncoded, err := a.Encoder.EncodeLines(ctx, a.Config.TBoxPath, tLines)
	if err != nil {
		return err
	}

	metrics.DictionarySize.Set(float64(a.Dict.Len()))
	metrics.InputLinesSkippedTotal.Add(float64(a.Skipped.Count()))

	return a.Driver.InsertInitial(ctx, aEncoded, tEncoded)
}

func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.InputMalformed("read_lines", "read "+filepath.Base(path)).Wrap(err)
	}
	lines := strings.Split(string(data), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

// Drain drains the closure materialized at the given logical time into
// the app's sink.
func (a *App) Drain(ctx context.Context, at uint64) error {
	return a.Driver.DrainAt(ctx, at, a.Sink)
}

// Close shuts down the sink, the HTTP server if running, the watcher
// if running, and the tracer provider.
func (a *App) Close(ctx context.Context) error {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.streamer != nil {
		a.streamer.Stop()
	}
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		a.server.Shutdown(shutdownCtx)
	}
	var firstErr error
	if a.Sink != nil {
		if err := a.Sink.Close(); err != nil {
			firstErr = err
		}
	}
	if err := a.Tracer.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// ServeHTTP starts the health/metrics/stats HTTP server in the
// background if metrics are enabled, returning immediately.
func (a *App) ServeHTTP() {
	if !a.Config.Metrics.Enabled {
		return
	}
	r := mux.NewRouter()
	r.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/stats", a.handleStats).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	a.server = &http.Server{
		Addr:    a.Config.Metrics.Addr,
		Handler: r,
	}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.WithError(err).Error("http server stopped unexpectedly")
		}
	}()
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"dictionary_size":%d,"skipped_lines":%d}`, a.Dict.Len(), a.Skipped.Count())
}

// StartWatch begins watching the configured directory for dropped
// delta files and/or tailing the configured stream file, applying each
// as it arrives. startAt must be at least the logical time LoadInitial
// already advanced to; the first delta is applied at startAt+1.
func (a *App) StartWatch(ctx context.Context, startAt uint64) error {
	if !a.Config.Watch.Enabled {
		return nil
	}
	applier := watch.NewApplier(a.Encoder, a.Driver, startAt)

	if a.Config.Watch.Directory != "" {
		w, err := watch.New(a.Config.Watch.Directory, applier.Apply, a.Logger)
		if err != nil {
			return err
		}
		a.watcher = w
		go w.Run(ctx)
	}

	if a.Config.Watch.StreamPath != "" {
		s, err := watch.NewStreamTailer(a.Config.Watch.StreamPath, applier.ApplyLine, a.Logger)
		if err != nil {
			return err
		}
		a.streamer = s
		go s.Run(ctx)
	}

	return nil
}
