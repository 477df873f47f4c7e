package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rhodf/closure/internal/app"
	"github.com/rhodf/closure/internal/config"
	apperrors "github.com/rhodf/closure/pkg/errors"
)

const (
	exitOK          = 0
	exitInputError  = 2
	exitEngineStall = 3
	exitSinkFailure = 4
)

// updateFlags collects repeated -update path=mode_scope flags.
type updateFlags []string

func (u *updateFlags) String() string     { return strings.Join(*u, ",") }
func (u *updateFlags) Set(v string) error { *u = append(*u, v); return nil }

func main() {
	var (
		configFile string
		aboxPath   string
		tboxPath   string
		outputDir  string
		workers    int
		updates    updateFlags
	)

	flag.StringVar(&configFile, "config", "", "path to a YAML configuration file")
	flag.StringVar(&aboxPath, "abox", "", "path to the initial a-box triple file")
	flag.StringVar(&tboxPath, "tbox", "", "path to the initial t-box triple file")
	flag.StringVar(&outputDir, "output", "", "output directory for drained triples")
	flag.IntVar(&workers, "workers", 0, "worker count (0 selects runtime.NumCPU())")
	flag.Var(&updates, "update", "repeatable: path=mode_scope, e.g. delta1.nt=insertion_abox")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rhodfd: %v\n", err)
		os.Exit(exitInputError)
	}
	if aboxPath != "" {
		cfg.ABoxPath = aboxPath
	}
	if tboxPath != "" {
		cfg.TBoxPath = tboxPath
	}
	if outputDir != "" {
		cfg.Sink.Path = outputDir + "/closure.out"
	}
	if workers != 0 {
		cfg.Workers = workers
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "rhodfd: %v\n", err)
		os.Exit(exitInputError)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rhodfd: %v\n", err)
		os.Exit(exitForError(err))
	}
	defer application.Close(context.Background())

	application.ServeHTTP()

	if err := application.LoadInitial(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "rhodfd: initial load failed: %v\n", err)
		os.Exit(exitForError(err))
	}

	at := uint64(1)
	for _, spec := range updates {
		next, err := applyUpdateSpec(ctx, application, spec, at)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rhodfd: update %q failed: %v\n", spec, err)
			os.Exit(exitForError(err))
		}
		at = next
	}

	if err := application.Drain(ctx, at); err != nil {
		fmt.Fprintf(os.Stderr, "rhodfd: drain failed: %v\n", err)
		os.Exit(exitForError(err))
	}
	application.Driver.AdvanceTrace(at)

	if cfg.Watch.Enabled {
		if err := application.StartWatch(ctx, at+1); err != nil {
			fmt.Fprintf(os.Stderr, "rhodfd: watch mode failed to start: %v\n", err)
			os.Exit(exitForError(err))
		}
		<-ctx.Done()
	}

	os.Exit(exitOK)
}

// applyUpdateSpec parses one "path=mode_scope" update flag, reads the
// named file, encodes its lines, and applies them as an insertion or
// deletion against the given scope (a-box or t-box triples are both
// fed through the same delta path; scope only affects how the caller
// chose to organize the files).
func applyUpdateSpec(ctx context.Context, application *app.App, spec string, currentTime uint64) (uint64, error) {
	path, modeScope, ok := cut(spec, "=")
	if !ok {
		return 0, apperrors.InputMalformed("apply_update_spec", "expected path=mode_scope, got "+spec)
	}
	mode, scope, ok := cut(modeScope, "_")
	if !ok {
		return 0, apperrors.InputMalformed("apply_update_spec", "expected mode_scope, got "+modeScope)
	}
	if mode != "insertion" && mode != "deletion" {
		return 0, apperrors.InputMalformed("apply_update_spec", "mode must be insertion or deletion, got "+mode)
	}
	if scope != "abox" && scope != "tbox" {
		return 0, apperrors.InputMalformed("apply_update_spec", "scope must be abox or tbox, got "+scope)
	}

	lines, err := readDeltaLines(path)
	if err != nil {
		return 0, err
	}

	encoded, err := application.Encoder.EncodeLines(ctx, path, lines)
	if err != nil {
		return 0, err
	}

	next := currentTime + 1
	if mode == "insertion" {
		return next, application.Driver.ApplyDelta(ctx, encoded, nil, next)
	}
	return next, application.Driver.ApplyDelta(ctx, nil, encoded, next)
}

func cut(s, sep string) (before, after string, found bool) {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}

func readDeltaLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.InputMalformed("read_delta_lines", "read "+path).Wrap(err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

// exitForError maps an AppError's code to this program's documented
// exit codes: input errors, engine stalls, and sink failures get
// distinct codes so a calling script can branch on failure kind.
func exitForError(err error) int {
	switch {
	case apperrors.Is(err, "INPUT_MALFORMED"):
		return exitInputError
	case apperrors.Is(err, "SINK_FAILED"):
		return exitSinkFailure
	case apperrors.Is(err, "ENGINE_STALLED"),
		apperrors.Is(err, "DICTIONARY_INCONSISTENT"),
		apperrors.Is(err, "SCHEMA_CONSTANT_MISSING"),
		apperrors.Is(err, "UNKNOWN_ID"):
		return exitEngineStall
	default:
		return exitEngineStall
	}
}
