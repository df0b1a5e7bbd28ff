// Copyright (c) 2024 Neomantra Corp

package relay

import (
	"log/slog"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/dawsh2/alphapulse/internal/schema"
	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

func testTradeFrame(seq uint64) []byte {
	trade := &wire.Trade{
		InstrumentId: identity.NewCexSpot(identity.Venue_Kraken, "BTC-USD"),
		Price:        45_123_50000000,
		Volume:       12_345_678,
		Side:         wire.Side_Buy,
	}
	return wire.EncodeMessage[wire.Trade](wire.Header{
		RelayDomain: wire.RelayDomain_MarketData,
		Source:      wire.Source_CexAdapter,
		Sequence:    seq,
	}, trade)
}

func testDiscoveryFrame(seq uint64, symbol string) []byte {
	record := &wire.InstrumentDiscovered{
		InstrumentId: identity.NewCexSpot(identity.Venue_Kraken, symbol),
		Symbol:       symbol,
		Decimals:     8,
	}
	return wire.EncodeMessage[wire.InstrumentDiscovered](wire.Header{
		RelayDomain: wire.RelayDomain_MarketData,
		Source:      wire.Source_CexAdapter,
		Sequence:    seq,
	}, record)
}

func TestHubFanOutPreservesBytes(t *testing.T) {
	g := NewWithT(t)

	hub := NewHub(wire.RelayDomain_MarketData, slog.Default())
	go hub.Run()

	c1 := newPeer(hub, nil)
	c2 := newPeer(hub, nil)
	hub.register <- c1
	hub.register <- c2

	frames := [][]byte{testTradeFrame(1), testTradeFrame(2), testTradeFrame(3)}
	for _, f := range frames {
		hub.Broadcast(f)
	}

	for _, peer := range []*Peer{c1, c2} {
		for _, want := range frames {
			g.Eventually(peer.send).Should(Receive(Equal(want)))
		}
	}
}

func TestHubDropsOnFullConsumerQueue(t *testing.T) {
	g := NewWithT(t)

	hub := NewHub(wire.RelayDomain_MarketData, slog.Default())
	go hub.Run()

	// slow consumer: nothing ever drains p.send
	slow := newPeer(hub, nil)
	hub.register <- slow

	total := ConsumerQueueDepth + 3
	for i := 0; i < total; i++ {
		hub.Broadcast(testTradeFrame(uint64(i + 1)))
	}

	g.Eventually(hub.DropCount).Should(Equal(uint64(3)))
	g.Expect(slow.DropCount()).To(Equal(uint64(3)))
}

func TestHubReplaysDiscoveryToLateConsumer(t *testing.T) {
	g := NewWithT(t)

	hub := NewHub(wire.RelayDomain_MarketData, slog.Default())
	go hub.Run()

	discovery := testDiscoveryFrame(1, "ETH-USD")
	hub.Broadcast(discovery)
	hub.Broadcast(testTradeFrame(2))

	// consumer attaching after the discovery still receives it first
	late := newPeer(hub, nil)
	hub.register <- late

	var got []byte
	g.Eventually(late.send).Should(Receive(&got))

	h, err := wire.DecodeHeader(got)
	g.Expect(err).To(BeNil())
	g.Expect(h.MessageType).To(Equal(wire.MessageType_InstrumentDiscovered))

	record, err := wire.DecodePayload[wire.InstrumentDiscovered](got, h)
	g.Expect(err).To(BeNil())
	g.Expect(record.Symbol).To(Equal("ETH-USD"))

	// and the replayed frame feeds a schema cache as usual
	cache := schema.New()
	g.Expect(cache.OnInstrumentDiscovered(record)).To(Succeed())
	g.Expect(cache.Len()).To(Equal(1))
}
