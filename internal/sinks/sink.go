// Package sinks implements the driver.Sink destinations a drained
// closure can be written to: a local file, an in-memory buffer (for
// tests and embedding), and Kafka.
package sinks

import "github.com/rhodf/closure/pkg/triple"

// Sink is the narrow contract internal/driver.Sink also names: one
// write per triple, one close at the end of a drain.
type Sink interface {
	Write(t triple.EncodedTriple) error
	Close() error
}
