// Copyright (c) 2024 Neomantra Corp

package relay

import (
	"log/slog"
	"sync/atomic"

	"github.com/dawsh2/alphapulse/internal/transport"
)

// Peer is one connected socket, registered with exactly one Hub. A Peer
// whose first frame was a zero-payload hello is a consumer; any other
// first frame makes it a producer, mirroring the reference bot's Client
// but with the producer/consumer split this relay needs instead of Client
// always being a read-only dashboard viewer.
type Peer struct {
	hub  *Hub
	conn *transport.FramedConn
	send chan []byte

	drops atomic.Uint64

	isProducer bool
	sourceKey  SourceIdentity
}

// SourceIdentity is the (source, relay_domain) pair a producer connection
// is held accountable to for sequence monotonicity.
type SourceIdentity struct {
	Source      uint8
	RelayDomain uint8
}

// newPeer wraps conn as a hub member; callers still need to call
// writePump/readPump (or runProducer/runConsumer) themselves.
func newPeer(hub *Hub, conn *transport.FramedConn) *Peer {
	return &Peer{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, ConsumerQueueDepth),
	}
}

// writePump drains p.send to the socket until the hub closes it on
// unregister. Only consumers run this; producers are write-only from the
// relay's perspective (the relay never sends them anything).
func (p *Peer) writePump(logger *slog.Logger) {
	for frame := range p.send {
		if err := p.conn.WriteMessage(frame); err != nil {
			logger.Warn("consumer write failed", "error", err)
			return
		}
	}
}

// DropCount returns how many frames this peer has had dropped due to a
// full queue.
func (p *Peer) DropCount() uint64 { return p.drops.Load() }
