// Copyright (c) 2024 Neomantra Corp
//
// Package sequence implements C8: per-instrument sequence tracking, gap
// detection, and the invalidation broadcast that purges stale downstream
// state. The map-of-last-seen-value shape is the same one dbn-go's
// PitSymbolMap/TsSymbolMap use for point-in-time symbol tracking
// (internal/schema is the identity analogue); this package narrows that
// shape to a single uint64 "last sequence" value per InstrumentId instead
// of a symbol string.
package sequence

import (
	"sync"

	"github.com/dawsh2/alphapulse/pkg/identity"
)

// Outcome classifies one incoming sequence number against an instrument's
// tracked history.
type Outcome int

const (
	// OutcomeOK: sequence is exactly last+1, or this is the first sighting.
	OutcomeOK Outcome = iota
	// OutcomeGap: sequence skipped ahead; Gap() reports how many were missed.
	OutcomeGap
	// OutcomeRegression: sequence is <= the last seen value; out of order.
	OutcomeRegression
)

// Result is returned by Observe for a single incoming message.
type Result struct {
	Outcome Outcome
	Gap     uint64 // valid only when Outcome == OutcomeGap
}

// Tracker holds one last-seen sequence number per InstrumentId. Entries
// are created on first sighting and cleared on an explicit L2Reset.
type Tracker struct {
	mu      sync.Mutex
	lastSeq map[uint64]uint64 // keyed by InstrumentId.CacheKey()
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{lastSeq: make(map[uint64]uint64)}
}

// Observe records seq for id and classifies it against the previously
// observed sequence for that instrument.
//
//   - No prior entry: any positive sequence is accepted as the first
//     sighting (OutcomeOK).
//   - seq == last+1: OutcomeOK.
//   - seq > last+1: OutcomeGap, gap = seq - last - 1.
//   - seq <= last: OutcomeRegression, rejected, tracker state unchanged.
func (t *Tracker) Observe(id identity.InstrumentId, seq uint64) Result {
	key := id.CacheKey()

	t.mu.Lock()
	defer t.mu.Unlock()

	last, exists := t.lastSeq[key]
	if !exists {
		t.lastSeq[key] = seq
		return Result{Outcome: OutcomeOK}
	}
	switch {
	case seq == last+1:
		t.lastSeq[key] = seq
		return Result{Outcome: OutcomeOK}
	case seq > last+1:
		gap := seq - last - 1
		t.lastSeq[key] = seq
		return Result{Outcome: OutcomeGap, Gap: gap}
	default:
		return Result{Outcome: OutcomeRegression}
	}
}

// Reset clears the tracked sequence for id, per the explicit-L2Reset
// lifecycle rule: the next Observe for id is treated as a first
// sighting.
func (t *Tracker) Reset(id identity.InstrumentId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastSeq, id.CacheKey())
}

// LastSeq returns the last observed sequence for id, if any.
func (t *Tracker) LastSeq(id identity.InstrumentId) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.lastSeq[id.CacheKey()]
	return v, ok
}

// Len reports how many instruments currently have tracked sequence state.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lastSeq)
}
