// Copyright (c) 2024 Neomantra Corp
//
// Collector attaches to a relay socket as a consumer and feeds the
// dashboard's counters and instrument table. It never writes anything
// after its hello frame.

package monitor

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/dawsh2/alphapulse/internal/config"
	"github.com/dawsh2/alphapulse/internal/schema"
	"github.com/dawsh2/alphapulse/internal/sequence"
	"github.com/dawsh2/alphapulse/internal/transport"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

// checksumStartupWindow is how long after (re)connect frames are
// validated when the mode is "startup".
const checksumStartupWindow = 10 * time.Second

// Collector consumes one relay domain into Stats and the schema cache.
type Collector struct {
	socketPath string
	domain     wire.RelayDomain
	checksums  config.ChecksumMode
	stats      *Stats
	cache      *schema.Cache
	sources    *sequence.SourceTracker
	logger     *slog.Logger
}

// NewCollector builds a Collector; call Run to start it.
func NewCollector(socketPath string, domain wire.RelayDomain, checksums config.ChecksumMode, stats *Stats, cache *schema.Cache, logger *slog.Logger) *Collector {
	return &Collector{
		socketPath: socketPath,
		domain:     domain,
		checksums:  checksums,
		stats:      stats,
		cache:      cache,
		sources:    sequence.NewSourceTracker(),
		logger:     logger.With("component", "collector", "domain", domain.String()),
	}
}

// Run blocks consuming frames until ctx is cancelled, reconnecting with
// the transport's standard backoff.
func (c *Collector) Run(ctx context.Context) error {
	rc := transport.NewReconnectingConn(
		func(ctx context.Context) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", c.socketPath)
		},
		transport.WithLogger(c.logger),
		transport.WithOnReconnect(func(fc *transport.FramedConn) error {
			return fc.WriteMessage(transport.Hello(c.domain))
		}),
	)

	for {
		fc, err := rc.Connect(ctx)
		if err != nil {
			return err
		}
		connectedAt := time.Now()

		for {
			frame, err := fc.ReadMessage()
			if err != nil {
				fc.Close()
				c.stats.Reconnects.Add(1)
				break
			}
			c.observe(frame, connectedAt)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Collector) observe(frame []byte, connectedAt time.Time) {
	h, err := wire.DecodeHeader(frame)
	if err != nil {
		return
	}

	if c.shouldVerify(connectedAt) && !wire.VerifyChecksum(frame) {
		c.stats.ChecksumFailures.Add(1)
		return
	}

	c.stats.Count(h, len(frame))

	key := sequence.SourceKey{Source: uint8(h.Source), RelayDomain: uint8(h.RelayDomain)}
	if !c.sources.Observe(key, h.Sequence) {
		c.stats.SequenceGaps.Add(1)
	}

	if h.MessageType == wire.MessageType_InstrumentDiscovered {
		record, err := wire.DecodePayload[wire.InstrumentDiscovered](frame, h)
		if err != nil {
			return
		}
		if err := c.cache.OnInstrumentDiscovered(record); err != nil {
			c.logger.Warn("discovery conflict", "error", err)
		}
	}
}

func (c *Collector) shouldVerify(connectedAt time.Time) bool {
	switch c.checksums {
	case config.ChecksumsOn:
		return true
	case config.ChecksumsOff:
		return false
	default:
		return time.Since(connectedAt) < checksumStartupWindow
	}
}
