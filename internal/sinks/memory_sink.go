package sinks

import (
	"sync"

	"github.com/rhodf/closure/pkg/triple"
)

// MemorySink accumulates every written triple in memory, for tests and
// for embedding the engine as a library.
type MemorySink struct {
	mu      sync.Mutex
	triples []triple.EncodedTriple
	closed  bool
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write appends t to the sink's buffer.
func (m *MemorySink) Write(t triple.EncodedTriple) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triples = append(m.triples, t)
	return nil
}

// Close marks the sink closed. Writes after Close still succeed;
// callers that care about ordering should not write after draining.
func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Triples returns a copy of every triple written so far.
func (m *MemorySink) Triples() []triple.EncodedTriple {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]triple.EncodedTriple, len(m.triples))
	copy(out, m.triples)
	return out
}

// Reset clears the buffer, e.g. between drains in a test.
func (m *MemorySink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triples = nil
	m.closed = false
}
