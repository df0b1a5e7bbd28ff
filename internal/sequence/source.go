// Copyright (c) 2024 Neomantra Corp
//
// SourceTracker validates the wire envelope's own per-(source, relay_domain)
// monotonicity invariant, distinct from the per-instrument
// application-level Tracker above: this one guards the transport level and
// is what C6's relay uses to detect a producer restart (a sequence
// regression) and close the offending connection.
package sequence

import "sync"

// SourceKey identifies one (source, relay_domain) pair.
type SourceKey struct {
	Source      uint8
	RelayDomain uint8
}

// SourceTracker holds the last accepted header sequence per SourceKey.
type SourceTracker struct {
	mu      sync.Mutex
	lastSeq map[SourceKey]uint64
}

// NewSourceTracker creates an empty SourceTracker.
func NewSourceTracker() *SourceTracker {
	return &SourceTracker{lastSeq: make(map[SourceKey]uint64)}
}

// Observe reports whether seq is a valid strictly-increasing continuation
// for key. The first sequence observed for a key is always accepted.
func (t *SourceTracker) Observe(key SourceKey, seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, exists := t.lastSeq[key]
	if exists && seq <= last {
		return false
	}
	t.lastSeq[key] = seq
	return true
}

// Forget drops tracked state for key, e.g. when a producer connection
// closes so a future reconnect is treated as a fresh first-sighting.
func (t *SourceTracker) Forget(key SourceKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastSeq, key)
}
