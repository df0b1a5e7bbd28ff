// Copyright (c) 2024 Neomantra Corp

package coinbase

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

func (r *frameRecorder) decode(t *testing.T) (headers []wire.Header) {
	t.Helper()
	for _, f := range r.frames {
		h, err := wire.DecodeHeader(f)
		if err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		headers = append(headers, h)
	}
	return headers
}

func newTestFeed(rec *frameRecorder) *Feed {
	producer := venue.NewProducer(venue.ProducerConfig{
		Source:  wire.Source_CexAdapter,
		Domain:  wire.RelayDomain_MarketData,
		Version: 1,
	}, rec, schema.New(), slog.Default())
	return New("", []string{"BTC-USD"}, producer, nil, slog.Default())
}

const matchMsg = `{
	"type": "match",
	"trade_id": 865231,
	"sequence": 50,
	"time": "2024-01-15T08:19:27.028459Z",
	"product_id": "BTC-USD",
	"size": "0.12345678",
	"price": "45123.50",
	"side": "sell"
}`

func TestMatchBecomesTrade(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	f := newTestFeed(rec)

	f.dispatch([]byte(matchMsg))

	// first sighting also announces the instrument
	headers := rec.decode(t)
	g.Expect(headers).To(HaveLen(2))
	g.Expect(headers[0].MessageType).To(Equal(wire.MessageType_InstrumentDiscovered))
	g.Expect(headers[1].MessageType).To(Equal(wire.MessageType_Trade))

	trade, err := wire.DecodePayload[wire.Trade](rec.frames[1], headers[1])
	g.Expect(err).To(BeNil())
	g.Expect(trade.InstrumentId).To(Equal(identity.NewCexSpot(identity.Venue_Coinbase, "BTC-USD")))
	g.Expect(trade.Price).To(Equal(int64(45_123_50000000)))
	g.Expect(trade.Volume).To(Equal(uint64(12_345_678)))
	// maker sold, so the taker bought
	g.Expect(trade.Side).To(Equal(wire.Side_Buy))
}

func TestSecondMatchSkipsDiscovery(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	f := newTestFeed(rec)

	f.dispatch([]byte(matchMsg))
	count := len(rec.frames)

	second := []byte(`{"type":"match","sequence":51,"product_id":"BTC-USD","size":"1","price":"45124.00","side":"buy","time":"2024-01-15T08:19:28.0Z"}`)
	f.dispatch(second)

	headers := rec.decode(t)
	g.Expect(headers).To(HaveLen(count + 1))
	g.Expect(headers[len(headers)-1].MessageType).To(Equal(wire.MessageType_Trade))
}

func TestOutOfOrderMatchDropped(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	f := newTestFeed(rec)

	f.dispatch([]byte(matchMsg)) // sequence 50
	count := len(rec.frames)

	stale := []byte(`{"type":"match","sequence":49,"product_id":"BTC-USD","size":"1","price":"45124.00","side":"buy","time":"2024-01-15T08:19:28.0Z"}`)
	f.dispatch(stale)
	g.Expect(rec.frames).To(HaveLen(count))
}

func TestTickerBecomesQuote(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	f := newTestFeed(rec)

	ticker := []byte(`{
		"type": "ticker",
		"product_id": "BTC-USD",
		"best_bid": "45123.00",
		"best_ask": "45123.50",
		"best_bid_size": "0.5",
		"best_ask_size": "0.25"
	}`)
	f.dispatch(ticker)

	headers := rec.decode(t)
	last := headers[len(headers)-1]
	g.Expect(last.MessageType).To(Equal(wire.MessageType_Quote))

	quote, err := wire.DecodePayload[wire.Quote](rec.frames[len(rec.frames)-1], last)
	g.Expect(err).To(BeNil())
	g.Expect(quote.BidPrice).To(Equal(int64(45_123_00000000)))
	g.Expect(quote.AskPrice).To(Equal(int64(45_123_50000000)))
	g.Expect(quote.BidSize).To(Equal(uint64(50_000_000)))
	g.Expect(quote.AskSize).To(Equal(uint64(25_000_000)))
}

func TestNonJsonIgnored(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	f := newTestFeed(rec)

	f.dispatch([]byte("PONG"))
	g.Expect(rec.frames).To(BeEmpty())
}
