// Copyright (c) 2024 Neomantra Corp

package venue_test

import (
	"log/slog"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/dawsh2/alphapulse/internal/schema"
	"github.com/dawsh2/alphapulse/internal/venue"
	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

// frameRecorder captures emitted frames in order.
type frameRecorder struct {
	frames [][]byte
}

func (r *frameRecorder) WriteMessage(frame []byte) error {
	r.frames = append(r.frames, append([]byte(nil), frame...))
	return nil
}

func (r *frameRecorder) headers(t *testing.T) []wire.Header {
	t.Helper()
	var out []wire.Header
	for _, f := range r.frames {
		h, err := wire.DecodeHeader(f)
		if err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		out = append(out, h)
	}
	return out
}

func newTestProducer(rec *frameRecorder) *venue.Producer {
	return venue.NewProducer(venue.ProducerConfig{
		Source:  wire.Source_CexAdapter,
		Domain:  wire.RelayDomain_MarketData,
		Version: 1,
	}, rec, schema.New(), slog.Default())
}

func TestProducerEmitsStrictlyIncreasingSequences(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	p := newTestProducer(rec)

	for i := 0; i < 5; i++ {
		g.Expect(venue.Emit(p, &wire.Trade{
			InstrumentId: identity.NewCexSpot(identity.Venue_Coinbase, "BTC-USD"),
			Price:        1,
			Volume:       1,
			Side:         wire.Side_Buy,
		})).To(Succeed())
	}

	headers := rec.headers(t)
	g.Expect(headers).To(HaveLen(5))
	for i, h := range headers {
		g.Expect(h.Sequence).To(Equal(uint64(i + 1)))
		g.Expect(h.RelayDomain).To(Equal(wire.RelayDomain_MarketData))
		g.Expect(wire.VerifyChecksum(rec.frames[i])).To(BeTrue())
	}
}

func TestProducerBroadcastsDiscoveryOncePerInstrument(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	p := newTestProducer(rec)

	record := schema.CachedRecord{
		Id:       identity.NewCexSpot(identity.Venue_Coinbase, "ETH-USD"),
		Symbol:   "ETH-USD",
		Decimals: 8,
	}
	g.Expect(p.Discover(record)).To(Succeed())
	g.Expect(p.Discover(record)).To(Succeed()) // idempotent, no second broadcast

	g.Expect(rec.frames).To(HaveLen(1))
	h := rec.headers(t)[0]
	g.Expect(h.MessageType).To(Equal(wire.MessageType_InstrumentDiscovered))
	decoded, err := wire.DecodePayload[wire.InstrumentDiscovered](rec.frames[0], h)
	g.Expect(err).To(BeNil())
	g.Expect(decoded.Symbol).To(Equal("ETH-USD"))
}

func TestProducerInvalidateChunksToWireLimit(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	p := newTestProducer(rec)

	ids := make([]identity.InstrumentId, wire.MaxInvalidationInstruments+4)
	for i := range ids {
		ids[i] = identity.InstrumentId{
			Venue:     identity.Venue_Coinbase,
			AssetType: identity.AssetType_Spot,
			AssetId:   uint64(i + 1),
		}
	}
	g.Expect(p.Invalidate(identity.Venue_Coinbase, wire.InvalidationReason_Disconnection, ids)).To(Succeed())

	g.Expect(rec.frames).To(HaveLen(2))
	first, err := wire.DecodePayload[wire.StateInvalidation](rec.frames[0], rec.headers(t)[0])
	g.Expect(err).To(BeNil())
	g.Expect(first.Instruments).To(HaveLen(wire.MaxInvalidationInstruments))
	second, err := wire.DecodePayload[wire.StateInvalidation](rec.frames[1], rec.headers(t)[1])
	g.Expect(err).To(BeNil())
	g.Expect(second.Instruments).To(HaveLen(4))
}

func TestProducerBootstrapReplaysDiscoveries(t *testing.T) {
	g := NewWithT(t)
	rec := &frameRecorder{}
	p := newTestProducer(rec)

	g.Expect(p.Discover(schema.CachedRecord{
		Id:     identity.NewCexSpot(identity.Venue_Coinbase, "BTC-USD"),
		Symbol: "BTC-USD",
	})).To(Succeed())
	g.Expect(p.Discover(schema.CachedRecord{
		Id:     identity.NewCexSpot(identity.Venue_Coinbase, "ETH-USD"),
		Symbol: "ETH-USD",
	})).To(Succeed())

	// reconnect to a fresh sink: the cached records are re-announced
	fresh := &frameRecorder{}
	g.Expect(p.Bootstrap(fresh)).To(Succeed())
	g.Expect(fresh.frames).To(HaveLen(2))

	// sequences keep advancing across the replay
	headers := fresh.headers(t)
	g.Expect(headers[0].Sequence).To(Equal(uint64(3)))
	g.Expect(headers[1].Sequence).To(Equal(uint64(4)))
}

func TestProducerWriteErrorDropsSink(t *testing.T) {
	g := NewWithT(t)
	p := venue.NewProducer(venue.ProducerConfig{
		Source: wire.Source_CexAdapter,
		Domain: wire.RelayDomain_MarketData,
	}, failingWriter{}, schema.New(), slog.Default())

	var notified error
	p.OnWriteError(func(err error) { notified = err })

	err := venue.Emit(p, &wire.Trade{Side: wire.Side_Buy})
	g.Expect(err).To(HaveOccurred())
	g.Expect(notified).To(Equal(err))

	// writer was dropped: further emissions fail fast
	g.Expect(venue.Emit(p, &wire.Trade{Side: wire.Side_Buy})).To(MatchError(wire.ErrConnectionClosed))
}

type failingWriter struct{}

func (failingWriter) WriteMessage([]byte) error { return wire.ErrConnectionClosed }
