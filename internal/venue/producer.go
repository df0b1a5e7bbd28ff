// Copyright (c) 2024 Neomantra Corp
//
// Producer is the emission side shared by every venue adapter: it owns
// the (source, relay_domain) sequence counter, stamps headers, and writes
// pre-serialized frames to the relay. Discovery flows through the schema
// cache so an InstrumentDiscovered broadcast happens exactly once per new
// id, and Bootstrap replays those records on reconnect per the transport
// contract.

package venue

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dawsh2/alphapulse/internal/schema"
	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

// FrameWriter is the sink a Producer emits frames to: a
// transport.FramedConn in production, an in-memory recorder in tests.
type FrameWriter interface {
	WriteMessage(frame []byte) error
}

// ProducerConfig fixes the envelope fields every frame from this producer
// shares.
type ProducerConfig struct {
	Source          wire.Source
	Domain          wire.RelayDomain
	Version         uint8
	DisableChecksum bool
}

// Producer serializes records into frames and writes them in emission
// order. The mutex covers sequence allocation and the write together so
// the wire sequence matches the byte order on the stream.
type Producer struct {
	cfg    ProducerConfig
	cache  *schema.Cache
	logger *slog.Logger

	mu     sync.Mutex
	writer FrameWriter
	seq    uint64

	onWriteError func(error)
}

// NewProducer creates a Producer emitting to writer. The schema cache's
// discovery callback is claimed by this producer: the first Insert of any
// id triggers an InstrumentDiscovered broadcast.
func NewProducer(cfg ProducerConfig, writer FrameWriter, cache *schema.Cache, logger *slog.Logger) *Producer {
	p := &Producer{
		cfg:    cfg,
		cache:  cache,
		writer: writer,
		logger: logger.With("component", "producer", "source", uint8(cfg.Source), "domain", cfg.Domain.String()),
	}
	cache.OnDiscover(func(rec schema.CachedRecord) {
		if err := Emit(p, &wire.InstrumentDiscovered{
			InstrumentId: rec.Id,
			Decimals:     rec.Decimals,
			Symbol:       rec.Symbol,
			Metadata:     rec.Metadata,
		}); err != nil {
			p.logger.Warn("discovery broadcast failed", "id", rec.Id.String(), "error", err)
		}
	})
	return p
}

// Cache returns the schema cache this producer announces discoveries from.
func (p *Producer) Cache() *schema.Cache { return p.cache }

// SetWriter swaps the frame sink, e.g. after a reconnect.
func (p *Producer) SetWriter(w FrameWriter) {
	p.mu.Lock()
	p.writer = w
	p.mu.Unlock()
}

// OnWriteError registers a callback fired (outside the producer lock)
// when a frame write fails; the writer is dropped first, so emissions
// fail fast until SetWriter installs a fresh sink. Daemons use this to
// kick their reconnect loop.
func (p *Producer) OnWriteError(fn func(error)) {
	p.mu.Lock()
	p.onWriteError = fn
	p.mu.Unlock()
}

// Emit serializes rec with the next sequence number and writes the frame.
// It is a package function rather than a method because Go methods cannot
// be generic; the RecordPtr constraint is what lets one body serve every
// payload type.
func Emit[T any, TP wire.RecordPtr[T]](p *Producer, rec TP) error {
	h := wire.Header{
		RelayDomain: p.cfg.Domain,
		Version:     p.cfg.Version,
		Source:      p.cfg.Source,
		TimestampNs: uint64(time.Now().UnixNano()),
	}
	if p.cfg.DisableChecksum {
		h.Flags |= wire.Flag_ChecksumDisabled
	}

	p.mu.Lock()
	if p.writer == nil {
		p.mu.Unlock()
		return wire.ErrConnectionClosed
	}
	p.seq++
	h.Sequence = p.seq
	frame := wire.EncodeMessage(h, rec)
	err := p.writer.WriteMessage(frame)
	var onWriteError func(error)
	if err != nil {
		p.writer = nil
		onWriteError = p.onWriteError
	}
	p.mu.Unlock()

	if onWriteError != nil {
		onWriteError(err)
	}
	return err
}

// Discover inserts rec into the schema cache; the first sighting of its
// id triggers the InstrumentDiscovered broadcast via the cache callback.
// An IdentityConflict is surfaced to the caller (a data-source bug).
func (p *Producer) Discover(rec schema.CachedRecord) error {
	return p.cache.Insert(rec)
}

// Invalidate broadcasts StateInvalidation for the given instruments,
// chunked to the 16-instrument wire limit.
func (p *Producer) Invalidate(venue identity.VenueId, reason wire.InvalidationReason, instruments []identity.InstrumentId) error {
	for len(instruments) > 0 {
		n := len(instruments)
		if n > wire.MaxInvalidationInstruments {
			n = wire.MaxInvalidationInstruments
		}
		msg := &wire.StateInvalidation{
			Venue:       venue,
			Reason:      reason,
			Instruments: instruments[:n],
		}
		if err := Emit(p, msg); err != nil {
			return err
		}
		instruments = instruments[n:]
	}
	return nil
}

// ReplayDiscoveries re-emits every cached InstrumentDiscovered record,
// the producer side of the reconnect contract: new consumers can rebuild
// their caches before normal flow resumes. Sequence numbers keep
// advancing; the replay is indistinguishable from fresh discoveries.
func (p *Producer) ReplayDiscoveries() error {
	for _, rec := range p.cache.Snapshot() {
		if err := Emit(p, &wire.InstrumentDiscovered{
			InstrumentId: rec.Id,
			Decimals:     rec.Decimals,
			Symbol:       rec.Symbol,
			Metadata:     rec.Metadata,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Bootstrap installs w as the frame sink and replays cached discoveries
// through it.
func (p *Producer) Bootstrap(w FrameWriter) error {
	p.SetWriter(w)
	return p.ReplayDiscoveries()
}
