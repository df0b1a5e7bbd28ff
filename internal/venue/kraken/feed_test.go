// Copyright (c) 2024 Neomantra Corp

package kraken

import (
	"log/slog"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/dawsh2/alphapulse/internal/schema"
	"github.com/dawsh2/alphapulse/internal/venue"
	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

type frameRecorder struct {
	frames [][]byte
}

func (r *frameRecorder) WriteMessage(frame []byte) error {
	r.frames = append(r.frames, append([]byte(nil), frame...))
	return nil
}

func newTestFeed(rec *frameRecorder) *Feed {
	producer := venue.NewProducer(venue.ProducerConfig{
		Source:  wire.Source_CexAdapter,
		Domain:  wire.RelayDomain_MarketData,
		Version: 1,
	}, rec, schema.New(), slog.Default())
	return New("", []string{"BTC-USD"}, producer, nil, slog.Default())
}

func TestPairMapping(t *testing.T) {
	g := NewWithT(t)
	g.Expect(ToKrakenPair("BTC-USD")).To(Equal("XBT/USD"))
	g.Expect(ToKrakenPair("ETH-USD")).To(Equal("ETH/USD"))
	g.Expect(FromKrakenPair("XBT/USD")).To(Equal("BTC-USD"))
	g.Expect(FromKrakenPair("XDG/EUR")).To(Equal("DOGE-EUR"))
}

func TestTradeFrameBecomesTrades(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	f := newTestFeed(rec)

	payload := []byte(`[42,[["45123.50000","0.12345678","1700000000.123456","b","l",""],["45124.00000","1.00000000","1700000000.223456","s","m",""]],"trade","XBT/USD"]`)
	f.dispatch(payload)

	// discovery + two trades
	g.Expect(len(rec.frames)).To(Equal(3))

	h1, err := wire.DecodeHeader(rec.frames[1])
	g.Expect(err).To(BeNil())
	trade1, err := wire.DecodePayload[wire.Trade](rec.frames[1], h1)
	g.Expect(err).To(BeNil())
	g.Expect(trade1.InstrumentId).To(Equal(identity.NewCexSpot(identity.Venue_Kraken, "BTC-USD")))
	g.Expect(trade1.Price).To(Equal(int64(45_123_50000000)))
	g.Expect(trade1.Volume).To(Equal(uint64(12_345_678)))
	g.Expect(trade1.Side).To(Equal(wire.Side_Buy))

	h2, _ := wire.DecodeHeader(rec.frames[2])
	trade2, err := wire.DecodePayload[wire.Trade](rec.frames[2], h2)
	g.Expect(err).To(BeNil())
	g.Expect(trade2.Side).To(Equal(wire.Side_Sell))
}

func TestTickerFrameBecomesQuote(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	f := newTestFeed(rec)

	payload := []byte(`[42,{"a":["45123.50000",0,"0.25000000"],"b":["45123.00000",0,"0.50000000"],"c":["45123.10000","0.01000000"]},"ticker","XBT/USD"]`)
	f.dispatch(payload)

	last := rec.frames[len(rec.frames)-1]
	h, err := wire.DecodeHeader(last)
	g.Expect(err).To(BeNil())
	g.Expect(h.MessageType).To(Equal(wire.MessageType_Quote))

	quote, err := wire.DecodePayload[wire.Quote](last, h)
	g.Expect(err).To(BeNil())
	g.Expect(quote.BidPrice).To(Equal(int64(45_123_00000000)))
	g.Expect(quote.AskPrice).To(Equal(int64(45_123_50000000)))
	g.Expect(quote.BidSize).To(Equal(uint64(50_000_000)))
	g.Expect(quote.AskSize).To(Equal(uint64(25_000_000)))
}

func TestEventMessagesIgnored(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	f := newTestFeed(rec)

	f.dispatch([]byte(`{"event":"heartbeat"}`))
	f.dispatch([]byte(`{"event":"systemStatus","status":"online"}`))
	g.Expect(rec.frames).To(BeEmpty())
}
