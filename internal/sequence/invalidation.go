// Copyright (c) 2024 Neomantra Corp

package sequence

import (
	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

// InvalidationBatcher accumulates instruments needing a StateInvalidation
// for one (venue, reason) pair and flushes them in groups no larger than
// wire.MaxInvalidationInstruments, since a single message can't carry more.
type InvalidationBatcher struct {
	venue  identity.VenueId
	reason wire.InvalidationReason
	queue  []identity.InstrumentId
}

// NewInvalidationBatcher starts a batch for the given venue and reason.
func NewInvalidationBatcher(venue identity.VenueId, reason wire.InvalidationReason) *InvalidationBatcher {
	return &InvalidationBatcher{venue: venue, reason: reason}
}

// Add queues an instrument for invalidation.
func (b *InvalidationBatcher) Add(id identity.InstrumentId) {
	b.queue = append(b.queue, id)
}

// Flush drains the queue into zero or more StateInvalidation messages, each
// holding at most wire.MaxInvalidationInstruments instruments.
func (b *InvalidationBatcher) Flush() []*wire.StateInvalidation {
	if len(b.queue) == 0 {
		return nil
	}
	var out []*wire.StateInvalidation
	for len(b.queue) > 0 {
		n := len(b.queue)
		if n > wire.MaxInvalidationInstruments {
			n = wire.MaxInvalidationInstruments
		}
		chunk := make([]identity.InstrumentId, n)
		copy(chunk, b.queue[:n])
		out = append(out, &wire.StateInvalidation{
			Venue:       b.venue,
			Reason:      b.reason,
			Instruments: chunk,
		})
		b.queue = b.queue[n:]
	}
	return out
}

// InvalidateVenue builds the StateInvalidation batch for every instrument
// currently tracked whose CacheKey resolves through lookup, then resets
// each one's sequence state (a dropped venue connection forgets history;
// the next message for a surviving instrument is a fresh first sighting,
// sighting). lookup resolves a tracked CacheKey back to its
// identity.InstrumentId -- the Tracker itself only stores the uint64 key,
// so callers (typically the schema cache) supply the reverse mapping.
func (t *Tracker) InvalidateVenue(venue identity.VenueId, reason wire.InvalidationReason, lookup func(cacheKey uint64) (identity.InstrumentId, bool)) []*wire.StateInvalidation {
	t.mu.Lock()
	keys := make([]uint64, 0, len(t.lastSeq))
	for k := range t.lastSeq {
		keys = append(keys, k)
	}
	t.mu.Unlock()

	batcher := NewInvalidationBatcher(venue, reason)
	for _, k := range keys {
		id, ok := lookup(k)
		if !ok {
			continue
		}
		if id.Venue != venue {
			continue
		}
		batcher.Add(id)
		t.Reset(id)
	}
	return batcher.Flush()
}
