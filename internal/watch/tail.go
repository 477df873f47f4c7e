package watch

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/nxadm/tail"
	"github.com/sirupsen/logrus"

	apperrors "github.com/rhodf/closure/pkg/errors"
)

// StreamTailer follows a single continuously-appended delta stream
// file, applying each line as it is written rather than waiting for a
// whole file to be dropped. A line is prefixed "+" for an insertion or
// "-" for a retraction, followed by the same "subject predicate
// object" triple text ParseDeltaFile's sections use; every line is
// applied as its own one-triple batch at the next logical time.
type StreamTailer struct {
	path   string
	apply  ApplyLineFunc
	logger *logrus.Logger

	tailer *tail.Tail
	wg     sync.WaitGroup
}

// ApplyLineFunc applies one already-parsed stream line: the triple
// text and whether it is a retraction.
type ApplyLineFunc func(ctx context.Context, line string, retract bool) error

// NewStreamTailer starts following path from its end, so a tailer
// attached to an already-large stream file only sees lines appended
// after it starts — matching the "end" seek strategy a live feed
// should use by default.
func NewStreamTailer(path string, apply ApplyLineFunc, logger *logrus.Logger) (*StreamTailer, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Location: &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Poll:     false,
	})
	if err != nil {
		return nil, apperrors.InputMalformed("new_stream_tailer", "tail "+path).Wrap(err)
	}

	return &StreamTailer{path: path, apply: apply, logger: logger, tailer: t}, nil
}

// Run consumes tailed lines until ctx is canceled or the underlying
// file is removed and the tailer's line channel closes.
func (s *StreamTailer) Run(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.tailer.Cleanup()

	for {
		select {
		case <-ctx.Done():
			if err := s.tailer.Stop(); err != nil {
				s.logger.WithError(err).Warn("stream tailer stop failed")
			}
			return

		case line, ok := <-s.tailer.Lines:
			if !ok {
				if err := s.tailer.Err(); err != nil {
					s.logger.WithError(err).Error("stream tailer ended with error")
				}
				return
			}
			if line.Err != nil {
				s.logger.WithError(line.Err).Warn("stream tailer line error")
				continue
			}
			s.processLine(ctx, line.Text)
		}
	}
}

func (s *StreamTailer) processLine(ctx context.Context, text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return
	}

	var retract bool
	switch trimmed[0] {
	case '+':
		retract = false
	case '-':
		retract = true
	default:
		s.logger.WithField("line", trimmed).Warn("stream line missing +/- prefix, ignored")
		return
	}

	body := strings.TrimSpace(trimmed[1:])
	if err := s.apply(ctx, body, retract); err != nil {
		s.logger.WithError(err).WithField("path", s.path).Error("apply_delta failed for tailed line")
	}
}

// Stop waits for Run to return after its context is canceled.
func (s *StreamTailer) Stop() {
	s.wg.Wait()
}
