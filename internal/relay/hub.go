// Copyright (c) 2024 Neomantra Corp
//
// Package relay implements C6: the per-domain fan-out hub. The
// accept-loop-plus-per-connection-task architecture and the
// register/unregister/broadcast channel triad are the Polymarket reference
// bot's WebSocket Hub (internal/api/stream.go), generalized from
// browser-facing dashboard clients to raw framed Unix-socket peers on
// either the market-data or signals bus.
package relay

import (
	"log/slog"
	"sync"

	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

// ConsumerQueueDepth bounds each consumer's pending-frame queue. A full
// queue means that consumer is slow; new frames to it are dropped rather
// than blocking every other consumer -- the one place in the
// core where messages are intentionally dropped".
const ConsumerQueueDepth = 1024

// Hub owns one relay domain (market-data or signals). It never touches
// TLV bodies or recomputes checksums; it only inspects the 32-byte header
// plus, for InstrumentDiscovered frames, the InstrumentId prefix needed to
// cache them for late-joining consumers.
type Hub struct {
	domain wire.RelayDomain
	logger *slog.Logger

	mu        sync.RWMutex
	consumers map[*Peer]bool

	register   chan *Peer
	unregister chan *Peer
	broadcast  chan []byte

	discoveryMu sync.RWMutex
	discovery   map[identity.InstrumentId][]byte // cached InstrumentDiscovered frames, verbatim
}

// NewHub creates a Hub bound to domain.
func NewHub(domain wire.RelayDomain, logger *slog.Logger) *Hub {
	return &Hub{
		domain:     domain,
		logger:     logger.With("component", "relay-hub", "domain", domain.String()),
		consumers:  make(map[*Peer]bool),
		register:   make(chan *Peer),
		unregister: make(chan *Peer),
		broadcast:  make(chan []byte, 256),
		discovery:  make(map[identity.InstrumentId][]byte),
	}
}

// Domain returns the RelayDomain this hub serves.
func (h *Hub) Domain() wire.RelayDomain { return h.domain }

// Run drives the hub's single-threaded state machine; callers start it in
// its own goroutine, mirroring Hub.Run in the reference bot.
func (h *Hub) Run() {
	for {
		select {
		case p := <-h.register:
			h.mu.Lock()
			h.consumers[p] = true
			h.mu.Unlock()
			h.replayDiscovery(p)
			h.logger.Info("consumer attached", "count", h.ConsumerCount())

		case p := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.consumers[p]; ok {
				delete(h.consumers, p)
				close(p.send)
			}
			h.mu.Unlock()
			h.logger.Info("consumer detached", "count", h.ConsumerCount())

		case frame := <-h.broadcast:
			h.cacheDiscovery(frame)
			h.mu.RLock()
			for p := range h.consumers {
				select {
				case p.send <- frame:
				default:
					p.drops.Add(1)
					h.logger.Warn("consumer queue full, dropping frame", "drops", p.drops.Load())
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ConsumerCount reports how many consumers are currently attached.
func (h *Hub) ConsumerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.consumers)
}

// Broadcast enqueues a validated frame for duplication to every consumer.
// It must already have passed magic/payload-bounds/domain validation.
func (h *Hub) Broadcast(frame []byte) {
	h.broadcast <- frame
}

// cacheDiscovery remembers InstrumentDiscovered frames so a consumer that
// attaches later can still resolve instruments announced before it joined
// (scenario S2): the relay reads only the header plus the fixed
// InstrumentId prefix that always opens that message's payload, never the
// rest of the body.
func (h *Hub) cacheDiscovery(frame []byte) {
	if len(frame) < wire.Header_Size {
		return
	}
	header, err := wire.DecodeHeader(frame)
	if err != nil || header.MessageType != wire.MessageType_InstrumentDiscovered {
		return
	}
	payload := frame[wire.Header_Size:]
	if len(payload) < identity.InstrumentId_Size {
		return
	}
	id, err := identity.FromBytes(payload[:identity.InstrumentId_Size])
	if err != nil {
		return
	}
	cached := append([]byte(nil), frame...)
	h.discoveryMu.Lock()
	h.discovery[id] = cached
	h.discoveryMu.Unlock()
}

// replayDiscovery re-sends every cached InstrumentDiscovered frame to a
// newly attached consumer before any live traffic, so it can bootstrap its
// schema cache the way a reconnecting producer re-emits them.
func (h *Hub) replayDiscovery(p *Peer) {
	h.discoveryMu.RLock()
	frames := make([][]byte, 0, len(h.discovery))
	for _, f := range h.discovery {
		frames = append(frames, f)
	}
	h.discoveryMu.RUnlock()

	for _, f := range frames {
		select {
		case p.send <- f:
		default:
			p.drops.Add(1)
		}
	}
}

// DropCount sums the drop counters across all currently attached consumers.
func (h *Hub) DropCount() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var total uint64
	for p := range h.consumers {
		total += p.drops.Load()
	}
	return total
}
