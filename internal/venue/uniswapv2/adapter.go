// Copyright (c) 2024 Neomantra Corp
//
// Uniswap V2 adapter: subscribes to Swap/Sync/Mint/Burn logs across all
// pools, decodes them at native precision, and emits SwapEvent/PoolUpdate
// records plus the lossy 8-decimal Trade projection. SushiSwap reuses
// this adapter verbatim with its own venue id; the event ABI is
// identical.

package uniswapv2

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/dawsh2/alphapulse/internal/lineage"
	"github.com/dawsh2/alphapulse/internal/venue"
	"github.com/dawsh2/alphapulse/internal/venue/evm"
	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

// V2 pair event signatures (keccak of the canonical event declarations).
var (
	TopicSwap = common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
	TopicSync = common.HexToHash("0x1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1")
	TopicMint = common.HexToHash("0x4c209b5fc8ad50758f13e2e1088ba56a560dff690a1c6fef26394f4c03821c4f")
	TopicBurn = common.HexToHash("0xdccd412f0b1252819cb1fd330b93224ca42612892bb3f4f789976e6d81936496")
)

// getReserves() on the pair contract, used to refresh state after
// Mint/Burn which do not carry reserves in their event data.
var selectorGetReserves = common.Hex2Bytes("0902f1ac")

var (
	ErrNotSwapEvent = errors.New("uniswapv2: not a Swap log")
	ErrNotSyncEvent = errors.New("uniswapv2: not a Sync log")
	ErrTruncatedLog = errors.New("uniswapv2: truncated log data")
)

// SwapLog is the decoded V2 Swap event at native precision.
type SwapLog struct {
	Sender     common.Address
	To         common.Address
	Amount0In  *big.Int
	Amount1In  *big.Int
	Amount0Out *big.Int
	Amount1Out *big.Int
}

// Amount0Net is the pool-perspective signed flow of token0: positive
// into the pool, negative out.
func (s *SwapLog) Amount0Net() *big.Int {
	return new(big.Int).Sub(s.Amount0In, s.Amount0Out)
}

// Amount1Net is the pool-perspective signed flow of token1.
func (s *SwapLog) Amount1Net() *big.Int {
	return new(big.Int).Sub(s.Amount1In, s.Amount1Out)
}

// DecodeSwap decodes a V2 Swap log (4 uint256 data words).
func DecodeSwap(lg ethtypes.Log) (*SwapLog, error) {
	if len(lg.Topics) < 3 || lg.Topics[0] != TopicSwap {
		return nil, ErrNotSwapEvent
	}
	if len(lg.Data) < 128 {
		return nil, ErrTruncatedLog
	}
	return &SwapLog{
		Sender:     common.BytesToAddress(lg.Topics[1].Bytes()[12:]),
		To:         common.BytesToAddress(lg.Topics[2].Bytes()[12:]),
		Amount0In:  evm.UnsignedWord(lg.Data[0:32]),
		Amount1In:  evm.UnsignedWord(lg.Data[32:64]),
		Amount0Out: evm.UnsignedWord(lg.Data[64:96]),
		Amount1Out: evm.UnsignedWord(lg.Data[96:128]),
	}, nil
}

// DecodeSync decodes a V2 Sync log into the pair's reserves.
func DecodeSync(lg ethtypes.Log) (reserve0, reserve1 *big.Int, err error) {
	if len(lg.Topics) < 1 || lg.Topics[0] != TopicSync {
		return nil, nil, ErrNotSyncEvent
	}
	if len(lg.Data) < 64 {
		return nil, nil, ErrTruncatedLog
	}
	return evm.UnsignedWord(lg.Data[0:32]), evm.UnsignedWord(lg.Data[32:64]), nil
}

// Adapter streams one chain's V2-style pair events.
type Adapter struct {
	dex      identity.VenueId
	backend  evm.Backend
	resolver *evm.Resolver
	producer *venue.Producer
	tracer   *lineage.Tracer
	state    *venue.StateVar
	logger   *slog.Logger
}

// New creates a V2 adapter. dex is Venue_UniswapV2 here and
// Venue_SushiSwap when wrapped by the sushiswap package.
func New(dex identity.VenueId, backend evm.Backend, resolver *evm.Resolver, producer *venue.Producer, tracer *lineage.Tracer, logger *slog.Logger) *Adapter {
	logger = logger.With("adapter", dex.String())
	return &Adapter{
		dex:      dex,
		backend:  backend,
		resolver: resolver,
		producer: producer,
		tracer:   tracer,
		state:    venue.NewStateVar(logger),
		logger:   logger,
	}
}

// Venue returns the DEX venue this adapter emits under.
func (a *Adapter) Venue() identity.VenueId { return a.dex }

// State returns the adapter's lifecycle state variable.
func (a *Adapter) State() *venue.StateVar { return a.state }

// Run blocks streaming pair events until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	w := &evm.Watcher{
		Backend: a.backend,
		Query: ethereum.FilterQuery{
			Topics: [][]common.Hash{{TopicSwap, TopicSync, TopicMint, TopicBurn}},
		},
		Handle:  func(lg ethtypes.Log) { a.handleLog(ctx, lg) },
		OnReset: a.invalidateAll,
		State:   a.state,
		Logger:  a.logger,
	}
	return w.Run(ctx)
}

func (a *Adapter) handleLog(ctx context.Context, lg ethtypes.Log) {
	if len(lg.Topics) == 0 {
		return
	}
	switch lg.Topics[0] {
	case TopicSwap:
		a.handleSwap(ctx, lg)
	case TopicSync:
		a.handleSync(ctx, lg)
	case TopicMint, TopicBurn:
		a.refreshReserves(ctx, lg)
	}
}

func (a *Adapter) handleSwap(ctx context.Context, lg ethtypes.Log) {
	swap, err := DecodeSwap(lg)
	if err != nil {
		a.logger.Warn("bad swap log", "tx", lg.TxHash.Hex(), "error", err)
		return
	}
	pool, err := a.resolvePool(ctx, lg.Address)
	if err != nil {
		a.logger.Warn("pool resolution failed", "pool", lg.Address.Hex(), "error", err)
		return
	}

	event := &wire.SwapEvent{
		PoolId:      pool.Id,
		BlockNumber: lg.BlockNumber,
		LogIndex:    uint32(lg.Index),
	}
	event.PutAmount0Signed(swap.Amount0Net())
	event.PutAmount1Signed(swap.Amount1Net())
	if err := venue.Emit(a.producer, event); err != nil {
		a.logger.Warn("swap emit failed", "error", err)
		return
	}
	a.emitTrade(pool, swap)
	a.emitTrace(lg)
}

// emitTrade produces the explicit, lossy 8-decimal projection of a swap:
// price is token1-per-token0, volume is the token0 leg, side is the
// taker's direction in token0.
func (a *Adapter) emitTrade(pool evm.PoolInfo, swap *SwapLog) {
	amount0 := swap.Amount0Net()
	amount1 := swap.Amount1Net()
	if amount0.Sign() == 0 {
		return
	}

	vol0 := venue.NativeToFixed8(new(big.Int).Abs(amount0), pool.Token0.Decimals)
	px := priceFixed8(amount0, amount1, pool.Token0.Decimals, pool.Token1.Decimals)
	side := wire.Side_Buy // token0 left the pool: taker bought token0
	if amount0.Sign() > 0 {
		side = wire.Side_Sell
	}

	trade := &wire.Trade{
		InstrumentId: pool.Id,
		Price:        px,
		Volume:       uint64(vol0),
		Side:         side,
	}
	if err := venue.Emit(a.producer, trade); err != nil {
		a.logger.Warn("trade emit failed", "error", err)
	}
}

// priceFixed8 computes |amount1/amount0| adjusted for token decimals, in
// 10^8 fixed-point: (|a1| * 10^d0 * 10^8) / (|a0| * 10^d1).
func priceFixed8(amount0, amount1 *big.Int, dec0, dec1 uint8) int64 {
	a0 := new(big.Int).Abs(amount0)
	if a0.Sign() == 0 {
		return 0
	}
	num := new(big.Int).Abs(amount1)
	num.Mul(num, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(dec0)), nil))
	num.Mul(num, big.NewInt(wire.FixedPointScale))
	den := new(big.Int).Mul(a0, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(dec1)), nil))
	num.Div(num, den)
	if !num.IsInt64() {
		return 1<<63 - 1
	}
	return num.Int64()
}

func (a *Adapter) handleSync(ctx context.Context, lg ethtypes.Log) {
	reserve0, reserve1, err := DecodeSync(lg)
	if err != nil {
		a.logger.Warn("bad sync log", "tx", lg.TxHash.Hex(), "error", err)
		return
	}
	pool, err := a.resolvePool(ctx, lg.Address)
	if err != nil {
		a.logger.Warn("pool resolution failed", "pool", lg.Address.Hex(), "error", err)
		return
	}
	a.emitPoolUpdate(pool, reserve0, reserve1)
	a.emitTrace(lg)
}

// refreshReserves handles Mint/Burn, whose event data carries deposit
// amounts but not the resulting reserves; one rate-limited getReserves
// call recovers the pool state.
func (a *Adapter) refreshReserves(ctx context.Context, lg ethtypes.Log) {
	pool, err := a.resolvePool(ctx, lg.Address)
	if err != nil {
		a.logger.Warn("pool resolution failed", "pool", lg.Address.Hex(), "error", err)
		return
	}
	out, err := a.backend.CallContract(ctx, ethereum.CallMsg{To: &lg.Address, Data: selectorGetReserves}, nil)
	if err != nil || len(out) < 64 {
		a.logger.Warn("getReserves failed", "pool", lg.Address.Hex(), "error", err)
		return
	}
	a.emitPoolUpdate(pool, evm.UnsignedWord(out[0:32]), evm.UnsignedWord(out[32:64]))
}

func (a *Adapter) emitPoolUpdate(pool evm.PoolInfo, reserve0, reserve1 *big.Int) {
	update := &wire.PoolUpdate{PoolId: pool.Id}
	putUint128(&update.Reserve0, reserve0)
	putUint128(&update.Reserve1, reserve1)
	if err := venue.Emit(a.producer, update); err != nil {
		a.logger.Warn("pool update emit failed", "error", err)
	}
}

func (a *Adapter) resolvePool(ctx context.Context, addr common.Address) (evm.PoolInfo, error) {
	return a.resolver.ResolvePairPool(ctx, a.dex, addr, evm.SelectorToken0, evm.SelectorToken1, nil)
}

func (a *Adapter) emitTrace(lg ethtypes.Log) {
	if trace := a.tracer.Trace(lg.Data, 0); trace != nil {
		if err := venue.Emit(a.producer, trace); err != nil {
			a.logger.Warn("trace emit failed", "error", err)
		}
	}
}

// invalidateAll broadcasts a venue-wide invalidation for every pool this
// adapter has announced, after a stream reset.
func (a *Adapter) invalidateAll(reason wire.InvalidationReason) {
	ids := a.knownPoolIds()
	if len(ids) == 0 {
		return
	}
	if err := a.producer.Invalidate(a.dex, reason, ids); err != nil {
		a.logger.Warn("invalidation emit failed", "error", err)
	}
}

func (a *Adapter) knownPoolIds() []identity.InstrumentId {
	var ids []identity.InstrumentId
	for _, rec := range a.producer.Cache().Snapshot() {
		if rec.Id.Venue == a.dex && rec.Id.AssetType == identity.AssetType_Pool {
			ids = append(ids, rec.Id)
		}
	}
	return ids
}

func putUint128(dst *[16]byte, v *big.Int) {
	var buf [16]byte
	b := v.Bytes()
	if len(b) > 16 {
		b = b[len(b)-16:]
	}
	copy(buf[16-len(b):], b)
	*dst = buf
}
