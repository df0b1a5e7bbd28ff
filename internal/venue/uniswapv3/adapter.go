// Copyright (c) 2024 Neomantra Corp
//
// Uniswap V3 adapter: decodes concentrated-liquidity Swap logs at native
// precision, cross-checks the two price encodings, and emits
// SwapEvent/PoolUpdate records plus the 8-decimal Trade projection.

package uniswapv3

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dawsh2/alphapulse/internal/lineage"
	"github.com/dawsh2/alphapulse/internal/venue"
	"github.com/dawsh2/alphapulse/internal/venue/evm"
	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

// V3 pool event signatures.
var (
	// Swap(address indexed sender, address indexed recipient, int256
	// amount0, int256 amount1, uint160 sqrtPriceX96, uint128 liquidity,
	// int24 tick)
	TopicSwap = common.HexToHash("0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67")
	TopicMint = crypto.Keccak256Hash([]byte("Mint(address,address,int24,int24,uint128,uint256,uint256)"))
	TopicBurn = crypto.Keccak256Hash([]byte("Burn(address,int24,int24,uint128,uint256,uint256)"))
)

var (
	ErrNotSwapEvent    = errors.New("uniswapv3: not a Swap log")
	ErrZeroSqrtPrice   = errors.New("uniswapv3: sqrtPriceX96 is zero")
	ErrTickOutOfRange  = errors.New("uniswapv3: tick out of range")
	ErrTruncatedLog    = errors.New("uniswapv3: truncated log data")
)

// SwapLog is the decoded V3 Swap event: pool-perspective signed amounts
// and the post-swap price state.
type SwapLog struct {
	Sender       common.Address
	Recipient    common.Address
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32
}

// DecodeSwap decodes a V3 Swap log (5 data words). A zero sqrtPriceX96
// or an out-of-range tick is rejected; neither can come from an
// initialized pool.
func DecodeSwap(lg ethtypes.Log) (*SwapLog, error) {
	if len(lg.Topics) < 3 || lg.Topics[0] != TopicSwap {
		return nil, ErrNotSwapEvent
	}
	if len(lg.Data) < 160 {
		return nil, ErrTruncatedLog
	}
	swap := &SwapLog{
		Sender:       common.BytesToAddress(lg.Topics[1].Bytes()[12:]),
		Recipient:    common.BytesToAddress(lg.Topics[2].Bytes()[12:]),
		Amount0:      evm.SignedWord(lg.Data[0:32]),
		Amount1:      evm.SignedWord(lg.Data[32:64]),
		SqrtPriceX96: evm.UnsignedWord(lg.Data[64:96]),
		Liquidity:    evm.UnsignedWord(lg.Data[96:128]),
		Tick:         evm.SignedInt24(lg.Data[128:160]),
	}
	if swap.SqrtPriceX96.Sign() == 0 {
		return nil, ErrZeroSqrtPrice
	}
	if swap.Tick < MinTick || swap.Tick > MaxTick {
		return nil, ErrTickOutOfRange
	}
	return swap, nil
}

// Adapter streams one chain's V3 pool events.
type Adapter struct {
	backend  evm.Backend
	resolver *evm.Resolver
	producer *venue.Producer
	tracer   *lineage.Tracer
	state    *venue.StateVar
	logger   *slog.Logger
}

// New creates a V3 adapter.
func New(backend evm.Backend, resolver *evm.Resolver, producer *venue.Producer, tracer *lineage.Tracer, logger *slog.Logger) *Adapter {
	logger = logger.With("adapter", identity.Venue_UniswapV3.String())
	return &Adapter{
		backend:  backend,
		resolver: resolver,
		producer: producer,
		tracer:   tracer,
		state:    venue.NewStateVar(logger),
		logger:   logger,
	}
}

// Venue returns Venue_UniswapV3.
func (a *Adapter) Venue() identity.VenueId { return identity.Venue_UniswapV3 }

// State returns the adapter's lifecycle state variable.
func (a *Adapter) State() *venue.StateVar { return a.state }

// Run blocks streaming pool events until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	w := &evm.Watcher{
		Backend: a.backend,
		Query: ethereum.FilterQuery{
			Topics: [][]common.Hash{{TopicSwap, TopicMint, TopicBurn}},
		},
		Handle:  func(lg ethtypes.Log) { a.handleLog(ctx, lg) },
		OnReset: a.invalidateAll,
		State:   a.state,
		Logger:  a.logger,
	}
	return w.Run(ctx)
}

func (a *Adapter) handleLog(ctx context.Context, lg ethtypes.Log) {
	if len(lg.Topics) == 0 || lg.Topics[0] != TopicSwap {
		// Mint/Burn move liquidity between ticks; the next Swap carries
		// the refreshed liquidity, so they only feed the trace stream.
		a.emitTrace(lg)
		return
	}

	swap, err := DecodeSwap(lg)
	if err != nil {
		a.logger.Warn("bad swap log", "tx", lg.TxHash.Hex(), "error", err)
		return
	}
	a.checkPriceAgreement(lg.Address, swap)

	pool, err := a.resolver.ResolvePairPool(ctx, identity.Venue_UniswapV3, lg.Address, evm.SelectorToken0, evm.SelectorToken1, evm.SelectorFee)
	if err != nil {
		a.logger.Warn("pool resolution failed", "pool", lg.Address.Hex(), "error", err)
		return
	}

	event := &wire.SwapEvent{
		PoolId:      pool.Id,
		Tick:        swap.Tick,
		Liquidity:   truncUint64(swap.Liquidity),
		BlockNumber: lg.BlockNumber,
		LogIndex:    uint32(lg.Index),
	}
	event.PutAmount0Signed(swap.Amount0)
	event.PutAmount1Signed(swap.Amount1)
	event.PutSqrtPriceX96(swap.SqrtPriceX96)
	if err := venue.Emit(a.producer, event); err != nil {
		a.logger.Warn("swap emit failed", "error", err)
		return
	}

	update := &wire.PoolUpdate{
		PoolId: pool.Id,
		Tick:   swap.Tick,
	}
	copy(update.SqrtPriceX96[:], event.SqrtPriceX96[:])
	if err := venue.Emit(a.producer, update); err != nil {
		a.logger.Warn("pool update emit failed", "error", err)
	}

	a.emitTrade(pool, swap)
	a.emitTrace(lg)
}

// checkPriceAgreement compares the two price derivations; disagreement
// beyond the tolerance is logged, never fatal.
func (a *Adapter) checkPriceAgreement(pool common.Address, swap *SwapLog) {
	tickPx, err1 := TickToPrice(swap.Tick)
	sqrtPx, err2 := SqrtPriceX96ToPrice(swap.SqrtPriceX96)
	if err1 != nil || err2 != nil {
		return
	}
	if !PricesAgree(tickPx, sqrtPx) {
		a.logger.Warn("tick/sqrtPrice disagreement",
			"pool", pool.Hex(), "tick_price", tickPx, "sqrt_price", sqrtPx)
	}
}

func (a *Adapter) emitTrade(pool evm.PoolInfo, swap *SwapLog) {
	if swap.Amount0.Sign() == 0 {
		return
	}
	vol0 := venue.NativeToFixed8(new(big.Int).Abs(swap.Amount0), pool.Token0.Decimals)
	px := priceFixed8(swap.Amount0, swap.Amount1, pool.Token0.Decimals, pool.Token1.Decimals)
	side := wire.Side_Buy
	if swap.Amount0.Sign() > 0 {
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

func (a *Adapter) emitTrace(lg ethtypes.Log) {
	if trace := a.tracer.Trace(lg.Data, 0); trace != nil {
		if err := venue.Emit(a.producer, trace); err != nil {
			a.logger.Warn("trace emit failed", "error", err)
		}
	}
}

func (a *Adapter) invalidateAll(reason wire.InvalidationReason) {
	var ids []identity.InstrumentId
	for _, rec := range a.producer.Cache().Snapshot() {
		if rec.Id.Venue == identity.Venue_UniswapV3 && rec.Id.AssetType == identity.AssetType_Pool {
			ids = append(ids, rec.Id)
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := a.producer.Invalidate(identity.Venue_UniswapV3, reason, ids); err != nil {
		a.logger.Warn("invalidation emit failed", "error", err)
	}
}

func truncUint64(v *big.Int) uint64 {
	if !v.IsUint64() {
		return 1<<64 - 1
	}
	return v.Uint64()
}
