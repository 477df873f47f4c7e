// Package config loads engine configuration from a YAML file, then
// layers environment variable and flag overrides on top, the same
// precedence order the rest of the stack uses: file defaults, env
// overrides, explicit flags last.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"

	apperrors "github.com/rhodf/closure/pkg/errors"
)

// Config is the engine's full runtime configuration.
type Config struct {
	ABoxPath   string `yaml:"abox_path"`
	TBoxPath   string `yaml:"tbox_path"`
	OutputDir  string `yaml:"output_dir"`
	Workers    int    `yaml:"workers"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"` // "json" or "text"

	Sink SinkConfig `yaml:"sink"`

	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Watch   WatchConfig   `yaml:"watch"`
}

// SinkConfig selects and configures the output sink.
type SinkConfig struct {
	Kind        string   `yaml:"kind"` // "file", "memory", or "kafka"
	Path        string   `yaml:"path"`
	Compress    bool     `yaml:"compress"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic  string   `yaml:"kafka_topic"`
}

// MetricsConfig controls the Prometheus HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Exporter   string  `yaml:"exporter"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate"`
}

// WatchConfig controls the optional directory-watch mode that turns
// dropped delta files into apply_delta calls, and the optional stream
// tail mode that follows a single continuously-appended delta file.
type WatchConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Directory  string `yaml:"directory"`
	StreamPath string `yaml:"stream_path"`
}

// Default returns a Config with every field set to its default value.
func Default() Config {
	return Config{
		OutputDir: ".",
		Workers:   0, // 0 means runtime.NumCPU() at the worker pool
		LogLevel:  "info",
		LogFormat: "json",
		Sink: SinkConfig{
			Kind: "file",
			Path: "closure.out",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "otlp",
			Endpoint:   "http://localhost:4318/v1/traces",
			SampleRate: 1.0,
		},
		Watch: WatchConfig{
			Enabled: false,
		},
	}
}

// Load builds a Config starting from defaults, optionally overlaying a
// YAML file at path (if non-empty), then applying environment variable
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, apperrors.InputMalformed("load_config", "read config file").Wrap(err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, apperrors.InputMalformed("load_config", "parse config file").Wrap(err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.ABoxPath = getEnvString("RHODF_ABOX_PATH", cfg.ABoxPath)
	cfg.TBoxPath = getEnvString("RHODF_TBOX_PATH", cfg.TBoxPath)
	cfg.OutputDir = getEnvString("RHODF_OUTPUT_DIR", cfg.OutputDir)
	cfg.Workers = getEnvInt("RHODF_WORKERS", cfg.Workers)
	cfg.LogLevel = getEnvString("RHODF_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvString("RHODF_LOG_FORMAT", cfg.LogFormat)

	cfg.Sink.Kind = getEnvString("RHODF_SINK_KIND", cfg.Sink.Kind)
	cfg.Sink.Path = getEnvString("RHODF_SINK_PATH", cfg.Sink.Path)
	cfg.Sink.Compress = getEnvBool("RHODF_SINK_COMPRESS", cfg.Sink.Compress)
	cfg.Sink.KafkaTopic = getEnvString("RHODF_KAFKA_TOPIC", cfg.Sink.KafkaTopic)

	cfg.Metrics.Enabled = getEnvBool("RHODF_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Addr = getEnvString("RHODF_METRICS_ADDR", cfg.Metrics.Addr)

	cfg.Tracing.Enabled = getEnvBool("RHODF_TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Endpoint = getEnvString("RHODF_TRACING_ENDPOINT", cfg.Tracing.Endpoint)

	cfg.Watch.Enabled = getEnvBool("RHODF_WATCH_ENABLED", cfg.Watch.Enabled)
	cfg.Watch.Directory = getEnvString("RHODF_WATCH_DIR", cfg.Watch.Directory)
	cfg.Watch.StreamPath = getEnvString("RHODF_WATCH_STREAM_PATH", cfg.Watch.StreamPath)
}

func getEnvString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// Validate rejects a configuration that cannot be run: an unknown sink
// kind, a Kafka sink with no brokers or topic, or a watch mode with
// neither a directory nor a stream path.
func Validate(cfg Config) error {
	switch cfg.Sink.Kind {
	case "file", "memory":
	case "kafka":
		if len(cfg.Sink.KafkaBrokers) == 0 {
			return apperrors.InputMalformed("validate_config", "kafka sink requires at least one broker")
		}
		if cfg.Sink.KafkaTopic == "" {
			return apperrors.InputMalformed("validate_config", "kafka sink requires a topic")
		}
	default:
		return apperrors.InputMalformed("validate_config", fmt.Sprintf("unknown sink kind %q", cfg.Sink.Kind))
	}

	if cfg.Watch.Enabled && cfg.Watch.Directory == "" && cfg.Watch.StreamPath == "" {
		return apperrors.InputMalformed("validate_config", "watch mode requires a directory or a stream path")
	}

	return nil
}
