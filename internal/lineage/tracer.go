// Copyright (c) 2024 Neomantra Corp
//
// Optional message lineage: one UUID per source event plus a hash of the
// raw upstream payload, emitted as a MessageTrace alongside the protocol
// message it produced. Information-only; disabled by default because it
// perturbs the hot path.

package lineage

import (
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/dawsh2/alphapulse/pkg/wire"
)

// Tracer builds MessageTrace records for an adapter. A nil *Tracer is a
// valid disabled tracer; every method is a no-op on it.
type Tracer struct{}

// New returns an enabled Tracer when enabled is true, nil otherwise. The
// nil form keeps call sites branch-free: (*Tracer)(nil).Trace(...) is
// safe and returns nil.
func New(enabled bool) *Tracer {
	if !enabled {
		return nil
	}
	return &Tracer{}
}

// Enabled reports whether traces will be produced.
func (t *Tracer) Enabled() bool { return t != nil }

// Trace builds a MessageTrace for the raw upstream payload, stamping a
// fresh UUID and the payload hash. Returns nil when disabled.
func (t *Tracer) Trace(sourcePayload []byte, producedAtNs uint64) *wire.MessageTrace {
	if t == nil {
		return nil
	}
	var trace wire.MessageTrace
	id := uuid.New()
	copy(trace.EventId[:], id[:])
	trace.SourcePayloadHash = xxhash.Sum64(sourcePayload)
	trace.ProducedAtNs = producedAtNs
	return &trace
}
