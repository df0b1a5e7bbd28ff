// Copyright (c) 2024 Neomantra Corp

package monitor

import (
	"sync/atomic"

	"github.com/dawsh2/alphapulse/pkg/wire"
)

// Stats is the shared counter block between the collector goroutine and
// the TUI: plain atomics, snapshotted once per render tick.
type Stats struct {
	Frames       atomic.Uint64
	Bytes        atomic.Uint64
	Trades       atomic.Uint64
	Quotes       atomic.Uint64
	Swaps        atomic.Uint64
	PoolUpdates  atomic.Uint64
	Discoveries  atomic.Uint64
	Invalidations atomic.Uint64
	Signals      atomic.Uint64
	Other        atomic.Uint64

	ChecksumFailures atomic.Uint64
	SequenceGaps     atomic.Uint64
	Reconnects       atomic.Uint64
}

// Count buckets one frame into the per-type counters.
func (s *Stats) Count(h wire.Header, frameLen int) {
	s.Frames.Add(1)
	s.Bytes.Add(uint64(frameLen))
	switch h.MessageType {
	case wire.MessageType_Trade:
		s.Trades.Add(1)
	case wire.MessageType_Quote:
		s.Quotes.Add(1)
	case wire.MessageType_SwapEvent:
		s.Swaps.Add(1)
	case wire.MessageType_PoolUpdate:
		s.PoolUpdates.Add(1)
	case wire.MessageType_InstrumentDiscovered:
		s.Discoveries.Add(1)
	case wire.MessageType_StateInvalidation:
		s.Invalidations.Add(1)
	case wire.MessageType_ArbitrageOpportunity, wire.MessageType_DeFiSignal:
		s.Signals.Add(1)
	default:
		s.Other.Add(1)
	}
}

// Snapshot is a point-in-time copy of Stats for rendering.
type Snapshot struct {
	Frames, Bytes                             uint64
	Trades, Quotes, Swaps, PoolUpdates        uint64
	Discoveries, Invalidations, Signals, Other uint64
	ChecksumFailures, SequenceGaps, Reconnects uint64
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Frames:           s.Frames.Load(),
		Bytes:            s.Bytes.Load(),
		Trades:           s.Trades.Load(),
		Quotes:           s.Quotes.Load(),
		Swaps:            s.Swaps.Load(),
		PoolUpdates:      s.PoolUpdates.Load(),
		Discoveries:      s.Discoveries.Load(),
		Invalidations:    s.Invalidations.Load(),
		Signals:          s.Signals.Load(),
		Other:            s.Other.Load(),
		ChecksumFailures: s.ChecksumFailures.Load(),
		SequenceGaps:     s.SequenceGaps.Load(),
		Reconnects:       s.Reconnects.Load(),
	}
}
