// Copyright (c) 2024 Neomantra Corp
//
// Cache is the process-wide schema/discovery cache (C3): a read-mostly
// concurrent map from an InstrumentId's cache key to the symbol/decimals/
// metadata Databento's PitSymbolMap keeps for numeric instrument ids, only
// keyed by the wider InstrumentId this system uses and carrying opaque
// per-venue metadata instead of a bare symbol string.

package schema

import (
	"fmt"
	"sync"

	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

// IdentityConflict is returned by Insert when a record already exists for
// the InstrumentId's cache key with different symbol/decimals.
type IdentityConflict struct {
	Id       identity.InstrumentId
	Existing CachedRecord
	Proposed CachedRecord
}

func (e *IdentityConflict) Error() string {
	return fmt.Sprintf("identity conflict for %s: existing %+v, proposed %+v", e.Id, e.Existing, e.Proposed)
}

// CachedRecord is the value the cache holds per InstrumentId.
type CachedRecord struct {
	Id       identity.InstrumentId
	Symbol   string
	Decimals uint8
	Metadata []byte
}

// Cache is a single process-wide, read-mostly map. Entries live for the
// process lifetime; the instrument universe is bounded so there is no
// eviction.
type Cache struct {
	mu      sync.RWMutex
	records map[uint64]CachedRecord

	// onDiscover, if set, is invoked (outside the lock) the first time a
	// new InstrumentId is observed. Producers use this to emit the
	// InstrumentDiscovered broadcast.
	onDiscover func(CachedRecord)
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{records: make(map[uint64]CachedRecord)}
}

// OnDiscover registers a callback invoked on the first sighting of any
// InstrumentId. Only one callback is supported; a second call replaces it.
func (c *Cache) OnDiscover(fn func(CachedRecord)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDiscover = fn
}

// Get never blocks on a writer for long (RWMutex read lock); returns
// false if id has never been seen.
func (c *Cache) Get(id identity.InstrumentId) (CachedRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[id.CacheKey()]
	return rec, ok
}

// Insert is idempotent: an identical re-insert succeeds silently. An
// insert that disagrees with an existing record's Symbol or Decimals
// fails with *IdentityConflict without mutating the cache --
// this is treated as a data-source bug, not transient loss.
func (c *Cache) Insert(rec CachedRecord) error {
	key := rec.Id.CacheKey()

	c.mu.Lock()
	existing, exists := c.records[key]
	if exists {
		c.mu.Unlock()
		if existing.Symbol != rec.Symbol || existing.Decimals != rec.Decimals {
			return &IdentityConflict{Id: rec.Id, Existing: existing, Proposed: rec}
		}
		return nil
	}
	c.records[key] = rec
	onDiscover := c.onDiscover
	c.mu.Unlock()

	if onDiscover != nil {
		onDiscover(rec)
	}
	return nil
}

// Len returns the number of distinct instruments currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// OnInstrumentDiscovered updates the cache from a wire-level discovery
// message, the entry point a consumer's message loop calls for every
// MessageType_InstrumentDiscovered frame it reads.
func (c *Cache) OnInstrumentDiscovered(record *wire.InstrumentDiscovered) error {
	return c.Insert(CachedRecord{
		Id:       record.InstrumentId,
		Symbol:   record.Symbol,
		Decimals: record.Decimals,
		Metadata: record.Metadata,
	})
}

// Snapshot returns a shallow copy of all cached records, for bootstrapping
// a newly attached consumer (e.g. the TUI) without holding the lock.
func (c *Cache) Snapshot() []CachedRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]CachedRecord, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec)
	}
	return out
}
