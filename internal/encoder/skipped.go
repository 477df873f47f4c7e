package encoder

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// SkippedRecord is one parse failure: the raw line, its source, and why
// it was rejected.
type SkippedRecord struct {
	Source string
	Line   string
	Reason string
}

// SkippedRecords accumulates parse failures without ever aborting the
// stream: a malformed line is skipped with a warning and never aborts
// the run.
type SkippedRecords struct {
	mu      sync.Mutex
	records []SkippedRecord
	logger  *logrus.Logger
}

// NewSkippedRecords creates an empty collector.
func NewSkippedRecords(logger *logrus.Logger) *SkippedRecords {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SkippedRecords{logger: logger}
}

// Add records a skipped line and logs it as a warning.
func (s *SkippedRecords) Add(source, line, reason string) {
	s.mu.Lock()
	s.records = append(s.records, SkippedRecord{Source: source, Line: line, Reason: reason})
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"source": source,
		"line":   line,
		"reason": reason,
	}).Warn("skipped malformed input line")
}

// Count returns the number of skipped records so far.
func (s *SkippedRecords) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// All returns a copy of every skipped record collected so far.
func (s *SkippedRecords) All() []SkippedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SkippedRecord, len(s.records))
	copy(out, s.records)
	return out
}
