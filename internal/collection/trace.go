package collection

import "sync"

// Trace is a persistent, queryable record of a collection's history
// indexed by logical timestamp. Arrange writes one entry per advanced
// timestamp; At and Compact are the two operations the materialization
// driver needs from it.
type Trace struct {
	mu      sync.RWMutex
	entries map[uint64]Multiset
	floor   uint64
}

// NewTrace returns an empty Trace.
func NewTrace() *Trace {
	return &Trace{entries: make(map[uint64]Multiset)}
}

// Arrange records the fully thresholded collection snapshot as of time
// — the output of one pass through the rule engine's composed stages.
func (tr *Trace) Arrange(time uint64, snapshot Multiset) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.entries[time] = snapshot
}

// At returns the snapshot recorded for time, or ok=false if it has
// either never been arranged or has since been compacted away by
// Compact.
func (tr *Trace) At(time uint64) (Multiset, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	m, ok := tr.entries[time]
	return m, ok
}

// Floor returns the compaction floor: the highest time passed to
// Compact so far, or 0 before any call. Every entry before it has been
// dropped; no entry need exist at the floor itself.
func (tr *Trace) Floor() uint64 {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return tr.floor
}

// Compact drops every retained entry strictly before time, signaling
// that updates before that point will no longer be observed. Without a
// periodic call to Compact an arranged trace grows monotonically; the
// driver is responsible for calling it after every batch whose outputs
// have been drained.
func (tr *Trace) Compact(time uint64) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for t := range tr.entries {
		if t < time {
			delete(tr.entries, t)
		}
	}
	if time > tr.floor {
		tr.floor = time
	}
}

// Latest returns the highest timestamp currently arranged, and whether
// the trace holds any entry at all.
func (tr *Trace) Latest() (uint64, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	var max uint64
	found := false
	for t := range tr.entries {
		if !found || t > max {
			max = t
			found = true
		}
	}
	return max, found
}
