package wire_test

import (
	"math/big"

	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Header", func() {
	Context("correctness", func() {
		It("should be exactly 32 bytes on the wire", func() {
			Expect(wire.Header_Size).To(Equal(32))
		})

		It("should report InvalidMagic on a bad anchor", func() {
			buf := make([]byte, wire.Header_Size)
			_, err := wire.DecodeHeader(buf)
			Expect(err).To(HaveOccurred())
			var im *wire.InvalidMagic
			Expect(err).To(BeAssignableToTypeOf(im))
		})

		It("should round-trip through PutHeader/DecodeHeader", func() {
			h := wire.Header{
				RelayDomain: wire.RelayDomain_MarketData,
				Version:     1,
				Source:      wire.Source_CexAdapter,
				MessageType: wire.MessageType_Trade,
				PayloadSize: 32,
				Sequence:    42,
				TimestampNs: 1_700_000_000_000_000_000,
			}
			buf := make([]byte, wire.Header_Size)
			wire.PutHeader(buf, h)
			got, err := wire.DecodeHeader(buf)
			Expect(err).To(BeNil())
			got.Checksum = 0
			h.Checksum = 0
			Expect(got).To(Equal(h))
		})
	})
})

var _ = Describe("Codec round-trip", func() {
	Context("fixed-size payloads", func() {
		It("round-trips a Trade bit-exact", func() {
			trade := &wire.Trade{
				InstrumentId: identity.NewCexSpot(identity.Venue_Kraken, "BTC-USD"),
				Price:        45_123_50000000,
				Volume:       12_345_678,
				Side:         wire.Side_Buy,
			}
			h := wire.Header{RelayDomain: wire.RelayDomain_MarketData, Source: wire.Source_CexAdapter, Sequence: 1}
			frame := wire.EncodeMessage[wire.Trade](h, trade)

			decodedHeader, err := wire.DecodeHeader(frame)
			Expect(err).To(BeNil())
			Expect(decodedHeader.MessageType).To(Equal(wire.MessageType_Trade))
			Expect(wire.VerifyChecksum(frame)).To(BeTrue())

			decoded, err := wire.DecodePayload[wire.Trade](frame, decodedHeader)
			Expect(err).To(BeNil())
			Expect(*decoded).To(Equal(*trade))
		})

		It("round-trips a SwapEvent with native-precision amounts", func() {
			swap := &wire.SwapEvent{
				PoolId:      identity.NewPool(identity.Venue_UniswapV3, identity.NewToken(identity.Venue_Ethereum, [20]byte{1}), identity.NewToken(identity.Venue_Ethereum, [20]byte{2})),
				Tick:        -887220,
				Liquidity:   123456789,
				BlockNumber: 19000000,
				LogIndex:    7,
			}
			swap.PutSqrtPriceX96(big.NewInt(4295128740))

			h := wire.Header{RelayDomain: wire.RelayDomain_MarketData, Source: wire.Source_DexAdapter, Sequence: 1}
			frame := wire.EncodeMessage[wire.SwapEvent](h, swap)
			decodedHeader, err := wire.DecodeHeader(frame)
			Expect(err).To(BeNil())
			decoded, err := wire.DecodePayload[wire.SwapEvent](frame, decodedHeader)
			Expect(err).To(BeNil())
			Expect(decoded.Tick).To(Equal(swap.Tick))
			Expect(decoded.SqrtPriceX96Int().String()).To(Equal("4295128740"))
		})

		It("round-trips an empty L2Snapshot", func() {
			snap := &wire.L2Snapshot{InstrumentId: identity.NewCexSpot(identity.Venue_Binance, "ETH-USD")}
			h := wire.Header{RelayDomain: wire.RelayDomain_MarketData, Sequence: 1}
			frame := wire.EncodeMessage[wire.L2Snapshot](h, snap)
			decodedHeader, _ := wire.DecodeHeader(frame)
			decoded, err := wire.DecodePayload[wire.L2Snapshot](frame, decodedHeader)
			Expect(err).To(BeNil())
			Expect(decoded.Bids).To(BeEmpty())
			Expect(decoded.Asks).To(BeEmpty())
		})
	})

	Context("TLV forward-compatibility", func() {
		It("parses known fields and preserves unknown TLVs", func() {
			signal := &wire.DeFiSignal{
				Action:        wire.SignalAction_Arbitrage,
				ConfidenceBps: 9000,
				TLVs: []wire.TLV{
					{Type: wire.TLVType_CustomParams, Value: []byte("future-field")},
				},
			}
			h := wire.Header{RelayDomain: wire.RelayDomain_Signals, Flags: wire.Flag_HasTLV, Sequence: 1}
			frame := wire.EncodeMessage[wire.DeFiSignal](h, signal)

			decodedHeader, err := wire.DecodeHeader(frame)
			Expect(err).To(BeNil())
			decoded, err := wire.DecodePayload[wire.DeFiSignal](frame, decodedHeader)
			Expect(err).To(BeNil())
			Expect(decoded.Action).To(Equal(signal.Action))
			tlv, ok := wire.Find(decoded.TLVs, wire.TLVType_CustomParams)
			Expect(ok).To(BeTrue())
			Expect(string(tlv.Value)).To(Equal("future-field"))
		})

		It("accepts a max-length TLV value", func() {
			value := make([]byte, 255)
			tlvs := []wire.TLV{{Type: wire.TLVType_MEVBundle, Value: value}}
			encoded := make([]byte, wire.EncodedTLVsSize(tlvs))
			wire.AppendTLVs(encoded, tlvs)
			parsed, err := wire.ParseTLVs(encoded)
			Expect(err).To(BeNil())
			Expect(parsed[0].Value).To(HaveLen(255))
		})
	})
})
