package sinks

import (
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"github.com/rhodf/closure/internal/encoder"
	apperrors "github.com/rhodf/closure/pkg/errors"
	"github.com/rhodf/closure/pkg/triple"
)

// KafkaSinkConfig configures a KafkaSink.
type KafkaSinkConfig struct {
	Brokers      []string
	Topic        string
	Compression  string // "gzip", "snappy", "lz4", "zstd", or "" for none
	RequiredAcks int16
}

// KafkaSink publishes drained triples as persisted-format messages to
// a Kafka topic through sarama's async producer, surfacing any
// publish error the producer reports asynchronously.
type KafkaSink struct {
	config   KafkaSinkConfig
	logger   *logrus.Logger
	producer sarama.AsyncProducer

	mu      sync.Mutex
	sendErr error
	pending sync.WaitGroup

	loopDone chan struct{}
}

// NewKafkaSink creates a KafkaSink and starts its producer and response
// handling goroutines.
func NewKafkaSink(config KafkaSinkConfig, logger *logrus.Logger) (*KafkaSink, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if len(config.Brokers) == 0 {
		return nil, apperrors.SinkFailed("new_kafka_sink", "no brokers configured")
	}
	if config.Topic == "" {
		return nil, apperrors.SinkFailed("new_kafka_sink", "no topic configured")
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	if config.RequiredAcks != 0 {
		saramaConfig.Producer.RequiredAcks = sarama.RequiredAcks(config.RequiredAcks)
	}

	switch config.Compression {
	case "gzip":
		saramaConfig.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		saramaConfig.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		saramaConfig.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		saramaConfig.Producer.Compression = sarama.CompressionZSTD
	default:
		saramaConfig.Producer.Compression = sarama.CompressionNone
	}

	producer, err := sarama.NewAsyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, apperrors.SinkFailed("new_kafka_sink", "create producer").Wrap(err)
	}

	s := &KafkaSink{
		config:   config,
		logger:   logger,
		producer: producer,
		loopDone: make(chan struct{}),
	}

	go s.handleResponses()

	logger.WithFields(logrus.Fields{
		"brokers": config.Brokers,
		"topic":   config.Topic,
	}).Info("kafka sink initialized")

	return s, nil
}

func (s *KafkaSink) handleResponses() {
	defer close(s.loopDone)
	successes := s.producer.Successes()
	errs := s.producer.Errors()
	for successes != nil || errs != nil {
		select {
		case _, ok := <-successes:
			if !ok {
				successes = nil
				continue
			}
			s.pending.Done()
		case perr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.pending.Done()
			s.logger.WithError(perr.Err).Error("kafka sink publish failed")
			s.mu.Lock()
			if s.sendErr == nil {
				s.sendErr = perr.Err
			}
			s.mu.Unlock()
		}
	}
}

// Write publishes t as a (s,p,o) message, keyed by subject so every
// message for the same subject lands on the same partition.
func (s *KafkaSink) Write(t triple.EncodedTriple) error {
	s.mu.Lock()
	if err := s.sendErr; err != nil {
		s.mu.Unlock()
		return apperrors.SinkFailed("write", "a prior publish failed").Wrap(err)
	}
	s.mu.Unlock()

	s.pending.Add(1)
	s.producer.Input() <- &sarama.ProducerMessage{
		Topic: s.config.Topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d", t.S)),
		Value: sarama.StringEncoder(encoder.FormatPersisted(t)),
	}
	return nil
}

// Close waits for every in-flight publish to be acknowledged, for at
// most 30 seconds, then closes the producer.
func (s *KafkaSink) Close() error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		s.logger.Warn("kafka sink close timed out waiting for in-flight publishes")
	}

	if err := s.producer.Close(); err != nil {
		return apperrors.SinkFailed("close", "close producer").Wrap(err)
	}
	<-s.loopDone

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return apperrors.SinkFailed("close", "one or more publishes failed").Wrap(s.sendErr)
	}
	return nil
}
