// Copyright (c) 2024 Neomantra Corp

package binance

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
	return New("", "", []string{"BTC-USDT"}, producer, nil, slog.Default())
}

func TestStreamSymbolMapping(t *testing.T) {
	g := NewWithT(t)
	g.Expect(ToStreamSymbol("BTC-USDT")).To(Equal("btcusdt"))
	g.Expect(ToStreamSymbol("ETH-USDT")).To(Equal("ethusdt"))
}

func TestTradeStreamBecomesTrade(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	f := newTestFeed(rec)

	payload := []byte(`{"stream":"btcusdt@trade","data":{"e":"trade","E":1700000000100,"s":"BTCUSDT","t":12345,"p":"45123.50","q":"0.12345678","T":1700000000099,"m":true}}`)
	f.dispatch(payload)

	// discovery + trade
	g.Expect(len(rec.frames)).To(Equal(2))

	h, err := wire.DecodeHeader(rec.frames[1])
	g.Expect(err).To(BeNil())
	trade, err := wire.DecodePayload[wire.Trade](rec.frames[1], h)
	g.Expect(err).To(BeNil())
	g.Expect(trade.InstrumentId).To(Equal(identity.NewCexSpot(identity.Venue_Binance, "BTC-USDT")))
	g.Expect(trade.Price).To(Equal(int64(45_123_50000000)))
	g.Expect(trade.Volume).To(Equal(uint64(12_345_678)))
	// buyer was the maker, so the taker sold
	g.Expect(trade.Side).To(Equal(wire.Side_Sell))
}

func TestBookTickerBecomesQuote(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	f := newTestFeed(rec)

	payload := []byte(`{"stream":"btcusdt@bookTicker","data":{"u":400900217,"s":"BTCUSDT","b":"45123.00","B":"0.5","a":"45123.50","A":"0.25"}}`)
	f.dispatch(payload)

	last := rec.frames[len(rec.frames)-1]
	h, err := wire.DecodeHeader(last)
	g.Expect(err).To(BeNil())
	g.Expect(h.MessageType).To(Equal(wire.MessageType_Quote))

	quote, err := wire.DecodePayload[wire.Quote](last, h)
	g.Expect(err).To(BeNil())
	g.Expect(quote.BidPrice).To(Equal(int64(45_123_00000000)))
	g.Expect(quote.AskPrice).To(Equal(int64(45_123_50000000)))
}

func TestMalformedFrameIgnored(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	f := newTestFeed(rec)

	f.dispatch([]byte(`{"result":null,"id":1}`))
	g.Expect(rec.frames).To(BeEmpty())
}
