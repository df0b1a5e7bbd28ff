// Copyright (c) 2024 Neomantra Corp

package evm_test

import (
	"context"
	"encoding/hex"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	. "github.com/onsi/gomega"

	"github.com/dawsh2/alphapulse/internal/schema"
	"github.com/dawsh2/alphapulse/internal/venue"
	"github.com/dawsh2/alphapulse/internal/venue/evm"
	"github.com/dawsh2/alphapulse/internal/venue/ratelimit"
	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

// fakeBackend answers eth_calls from a canned (contract, selector) table
// and counts them, so the test can assert the cache prevents repeats.
type fakeBackend struct {
	responses map[string][]byte
	calls     int
}

func callKey(to common.Address, data []byte) string {
	return to.Hex() + ":" + hex.EncodeToString(data)
}

func (b *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.calls++
	return b.responses[callKey(*msg.To, msg.Data)], nil
}

func (b *fakeBackend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- ethtypes.Log) (ethereum.Subscription, error) {
	return nil, nil
}

type frameRecorder struct {
	frames [][]byte
}

func (r *frameRecorder) WriteMessage(frame []byte) error {
	r.frames = append(r.frames, append([]byte(nil), frame...))
	return nil
}

func addressWord(addr common.Address) []byte {
	out := make([]byte, 32)
	copy(out[12:], addr[:])
	return out
}

func uintWord(v uint64) []byte {
	out := make([]byte, 32)
	big.NewInt(int64(v)).FillBytes(out)
	return out
}

// ABI-encoded dynamic string return: offset, length, data.
func stringReturn(s string) []byte {
	out := make([]byte, 64, 96)
	out[31] = 32
	out[63] = byte(len(s))
	padded := make([]byte, (len(s)+31)/32*32)
	copy(padded, s)
	return append(out, padded...)
}

func TestResolvePairPool(t *testing.T) {
	g := NewWithT(t)

	pool := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	usdc := common.HexToAddress("0x2791bca1f2de4661ed88a30c99a7a9449aa84174")
	weth := common.HexToAddress("0x7ceb23fd6bc0add59e62ac25578270cff1b9f619")

	backend := &fakeBackend{responses: map[string][]byte{
		callKey(pool, evm.SelectorToken0):   addressWord(usdc),
		callKey(pool, evm.SelectorToken1):   addressWord(weth),
		callKey(pool, evm.SelectorFee):      uintWord(500),
		callKey(usdc, evm.SelectorDecimals): uintWord(6),
		callKey(usdc, evm.SelectorSymbol):   stringReturn("USDC"),
		callKey(weth, evm.SelectorDecimals): uintWord(18),
		callKey(weth, evm.SelectorSymbol):   stringReturn("WETH"),
	}}

	rec := &frameRecorder{}
	producer := venue.NewProducer(venue.ProducerConfig{
		Source:  wire.Source_DexAdapter,
		Domain:  wire.RelayDomain_MarketData,
		Version: 1,
	}, rec, schema.New(), slog.Default())
	resolver := evm.NewResolver(identity.Venue_Polygon, backend, ratelimit.NewLimiter(), producer, slog.Default())

	info, err := resolver.ResolvePairPool(context.Background(), identity.Venue_UniswapV3, pool,
		evm.SelectorToken0, evm.SelectorToken1, evm.SelectorFee)
	g.Expect(err).To(BeNil())
	g.Expect(info.Token0.Symbol).To(Equal("USDC"))
	g.Expect(info.Token0.Decimals).To(Equal(uint8(6)))
	g.Expect(info.Token1.Symbol).To(Equal("WETH"))
	g.Expect(info.Fee).To(Equal(uint32(500)))
	g.Expect(info.Id.Venue).To(Equal(identity.Venue_UniswapV3))
	g.Expect(info.Id.AssetType).To(Equal(identity.AssetType_Pool))

	// one InstrumentDiscovered per token and one for the pool
	g.Expect(rec.frames).To(HaveLen(3))

	// second resolution is served from cache: no further eth_calls
	calls := backend.calls
	again, err := resolver.ResolvePairPool(context.Background(), identity.Venue_UniswapV3, pool,
		evm.SelectorToken0, evm.SelectorToken1, evm.SelectorFee)
	g.Expect(err).To(BeNil())
	g.Expect(again.Id).To(Equal(info.Id))
	g.Expect(backend.calls).To(Equal(calls))
	g.Expect(rec.frames).To(HaveLen(3))
}

func TestResolveTokenHandlesBytes32Symbol(t *testing.T) {
	g := NewWithT(t)

	// legacy tokens (e.g. MKR) return bytes32 from symbol()
	mkr := common.HexToAddress("0x9f8f72aa9304c8b593d555f12ef6589cc3a579a2")
	sym := make([]byte, 32)
	copy(sym, "MKR")

	backend := &fakeBackend{responses: map[string][]byte{
		callKey(mkr, evm.SelectorDecimals): uintWord(18),
		callKey(mkr, evm.SelectorSymbol):   sym,
	}}

	producer := venue.NewProducer(venue.ProducerConfig{
		Source: wire.Source_DexAdapter,
		Domain: wire.RelayDomain_MarketData,
	}, &frameRecorder{}, schema.New(), slog.Default())
	resolver := evm.NewResolver(identity.Venue_Ethereum, backend, ratelimit.NewLimiter(), producer, slog.Default())

	info, err := resolver.ResolveToken(context.Background(), mkr)
	g.Expect(err).To(BeNil())
	g.Expect(info.Symbol).To(Equal("MKR"))
	g.Expect(info.Decimals).To(Equal(uint8(18)))
}
