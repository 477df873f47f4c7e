// Package watch turns a directory of dropped delta files into
// apply_delta calls against a driver.Driver, so the engine can run as
// a long-lived process instead of a one-shot batch job. A delta file
// has two newline-delimited sections, "ADD" and "RETRACT", each
// holding textual triple lines in the same "subject predicate object"
// format insert_initial's input files use.
package watch

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/rhodf/closure/internal/driver"
	"github.com/rhodf/closure/internal/encoder"
	apperrors "github.com/rhodf/closure/pkg/errors"
)

// DeltaFile is a delta file split into its two sections, still in raw
// textual form.
type DeltaFile struct {
	Adds     []string
	Retracts []string
}

// ParseDeltaFile reads path and splits it into ADD and RETRACT
// sections. A file with no section headers at all is treated as
// all-adds, so an a-box-shaped file dropped into the watch directory
// loads the same way it would through insert_initial.
func ParseDeltaFile(path string) (DeltaFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return DeltaFile{}, apperrors.InputMalformed("parse_delta_file", "open delta file").Wrap(err)
	}
	defer f.Close()

	var result DeltaFile
	section := &result.Adds

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToUpper(line) {
		case "ADD", "ADD:":
			section = &result.Adds
			continue
		case "RETRACT", "RETRACT:":
			section = &result.Retracts
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		*section = append(*section, line)
	}
	if err := scanner.Err(); err != nil {
		return DeltaFile{}, apperrors.InputMalformed("parse_delta_file", "scan delta file").Wrap(err)
	}
	return result, nil
}

// Applier encodes a delta file's lines under the shared dictionary and
// hands the result to a driver, allocating a fresh logical time for
// every file it applies.
type Applier struct {
	enc    *encoder.Encoder
	drv    *driver.Driver
	nextAt uint64
}

// NewApplier builds an Applier over enc and drv. startAt is the last
// logical time already used (normally whatever insert_initial advanced
// to, or later); the first delta is applied at startAt+1.
func NewApplier(enc *encoder.Encoder, drv *driver.Driver, startAt uint64) *Applier {
	return &Applier{enc: enc, drv: drv, nextAt: startAt}
}

// Apply parses and encodes the delta file at path and applies it to
// the driver at the next logical time.
func (a *Applier) Apply(ctx context.Context, path string) error {
	df, err := ParseDeltaFile(path)
	if err != nil {
		return err
	}

	adds, err := a.enc.EncodeLines(ctx, path, df.Adds)
	if err != nil {
		return err
	}
	retracts, err := a.enc.EncodeLines(ctx, path, df.Retracts)
	if err != nil {
		return err
	}

	at := atomic.AddUint64(&a.nextAt, 1)
	return a.drv.ApplyDelta(ctx, adds, retracts, at)
}

// ApplyFunc applies one delta file found at path. Implemented by
// Applier.Apply; factored out as a function type so tests can stub it.
type ApplyFunc func(ctx context.Context, path string) error

// ApplyLine encodes a single stream line and applies it as a one-
// triple batch at the next logical time, satisfying ApplyLineFunc for
// a StreamTailer built over the same Applier.
func (a *Applier) ApplyLine(ctx context.Context, line string, retract bool) error {
	encoded, err := a.enc.EncodeLines(ctx, "stream", []string{line})
	if err != nil {
		return err
	}

	at := atomic.AddUint64(&a.nextAt, 1)
	if retract {
		return a.drv.ApplyDelta(ctx, nil, encoded, at)
	}
	return a.drv.ApplyDelta(ctx, encoded, nil, at)
}

// Watcher watches a directory for newly created or written delta
// files and applies each one in turn, serially, in the order fsnotify
// reports events.
type Watcher struct {
	dir    string
	apply  ApplyFunc
	logger *logrus.Logger

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Watcher over dir, applying each qualifying file through
// apply. The directory is watched non-recursively, matching the
// teacher's single-directory config watch.
func New(dir string, apply ApplyFunc, logger *logrus.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperrors.InputMalformed("new_watcher", "create file watcher").Wrap(err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, apperrors.InputMalformed("new_watcher", "watch directory "+dir).Wrap(err)
	}
	return &Watcher{dir: dir, apply: apply, logger: logger, watcher: w}, nil
}

// Run processes events until ctx is canceled or Stop is called. It
// blocks the caller; run it in its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	defer w.wg.Done()

	lastSeen := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.shouldProcess(event) {
				continue
			}
			if last, seen := lastSeen[event.Name]; seen && time.Since(last) < 200*time.Millisecond {
				continue
			}
			lastSeen[event.Name] = time.Now()

			if err := w.apply(ctx, event.Name); err != nil {
				w.logger.WithError(err).WithField("path", event.Name).Error("apply_delta failed for watched file")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("directory watcher error")
		}
	}
}

// shouldProcess filters events down to creates and writes, ignoring
// chmod, rename, and remove, which never indicate a new delta to load.
func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	return event.Op&(fsnotify.Write|fsnotify.Create) != 0
}

// Stop cancels Run and waits for it to return.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.watcher.Close()
}
