package sinks

import (
	"bufio"
	"context"
	"os"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"

	"github.com/rhodf/closure/internal/encoder"
	apperrors "github.com/rhodf/closure/pkg/errors"
	"github.com/rhodf/closure/pkg/triple"
)

// LocalFileConfig configures a LocalFileSink.
type LocalFileConfig struct {
	Path      string
	Compress  bool
	QueueSize int
}

// LocalFileSink writes drained triples to a local file through a
// bounded queue and a single writer goroutine, so Write never blocks
// the driver on disk I/O except under sustained backpressure.
type LocalFileSink struct {
	config LocalFileConfig
	logger *logrus.Logger

	queue chan triple.EncodedTriple
	done  chan struct{}

	mu        sync.Mutex
	isRunning bool
	writeErr  error
	inflight  sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewLocalFileSink creates and starts a LocalFileSink writing to
// config.Path.
func NewLocalFileSink(config LocalFileConfig, logger *logrus.Logger) (*LocalFileSink, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 4096
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &LocalFileSink{
		config: config,
		logger: logger,
		queue:  make(chan triple.EncodedTriple, config.QueueSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	f, err := os.Create(config.Path)
	if err != nil {
		cancel()
		return nil, apperrors.SinkFailed("new_local_file_sink", "create output file").Wrap(err)
	}

	s.isRunning = true
	go s.writeLoop(f)

	return s, nil
}

func (s *LocalFileSink) writeLoop(f *os.File) {
	defer close(s.done)
	defer f.Close()

	var gz *gzip.Writer
	var target *bufio.Writer
	if s.config.Compress {
		gz = gzip.NewWriter(f)
		target = bufio.NewWriter(gz)
	} else {
		target = bufio.NewWriter(f)
	}

	for {
		select {
		case t, ok := <-s.queue:
			if !ok {
				s.flushAndClose(target, gz)
				return
			}
			if _, err := target.WriteString(encoder.FormatPersisted(t)); err != nil {
				s.recordWriteErr(err)
				continue
			}
			if err := target.WriteByte('\n'); err != nil {
				s.recordWriteErr(err)
			}
		case <-s.ctx.Done():
			s.flushAndClose(target, gz)
			return
		}
	}
}

func (s *LocalFileSink) flushAndClose(target *bufio.Writer, gz *gzip.Writer) {
	if err := target.Flush(); err != nil {
		s.recordWriteErr(err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			s.recordWriteErr(err)
		}
	}
}

func (s *LocalFileSink) recordWriteErr(err error) {
	s.logger.WithError(err).Error("local file sink write failed")
	s.mu.Lock()
	if s.writeErr == nil {
		s.writeErr = err
	}
	s.mu.Unlock()
}

// Write enqueues t for the writer goroutine. It blocks if the queue is
// full, applying backpressure to the drain loop rather than dropping
// triples.
func (s *LocalFileSink) Write(t triple.EncodedTriple) error {
	s.mu.Lock()
	if err := s.writeErr; err != nil {
		s.mu.Unlock()
		return apperrors.SinkFailed("write", "sink writer goroutine failed earlier").Wrap(err)
	}
	if !s.isRunning {
		s.mu.Unlock()
		return apperrors.SinkFailed("write", "sink is closed")
	}
	// Registered under the lock so Close cannot close the queue between
	// this check and the send below.
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	select {
	case s.queue <- t:
		return nil
	case <-s.ctx.Done():
		return apperrors.SinkFailed("write", "sink is closed")
	}
}

// Close stops the writer goroutine after it drains the queue, and
// waits for the file to be flushed and closed.
func (s *LocalFileSink) Close() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	s.inflight.Wait()
	close(s.queue)
	<-s.done
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return apperrors.SinkFailed("close", "one or more writes failed").Wrap(s.writeErr)
	}
	return nil
}
