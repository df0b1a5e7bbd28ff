// Copyright (c) 2024 Neomantra Corp
//
// Balancer V2 adapter: all pools swap through the single Vault contract,
// whose Swap event carries both token addresses in its topics, so pool
// resolution never needs a pool-shape eth_call; only the ERC-20 metadata
// lookups remain.

package balancer

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

// VaultAddress is the Balancer V2 Vault, identical on every chain it is
// deployed to.
var VaultAddress = common.HexToAddress("0xBA12222222228d8Ba445958a75a0704d566BF2C8")

// Swap(bytes32 indexed poolId, address indexed tokenIn, address indexed
// tokenOut, uint256 amountIn, uint256 amountOut)
var TopicSwap = crypto.Keccak256Hash([]byte("Swap(bytes32,address,address,uint256,uint256)"))

var (
	ErrNotSwapEvent = errors.New("balancer: not a Vault Swap log")
	ErrTruncatedLog = errors.New("balancer: truncated log data")
)

// SwapLog is a decoded Vault Swap at native precision.
type SwapLog struct {
	VaultPoolId [32]byte
	TokenIn     common.Address
	TokenOut    common.Address
	AmountIn    *big.Int
	AmountOut   *big.Int
}

// DecodeSwap decodes a Vault Swap log (2 data words).
func DecodeSwap(lg ethtypes.Log) (*SwapLog, error) {
	if len(lg.Topics) < 4 || lg.Topics[0] != TopicSwap {
		return nil, ErrNotSwapEvent
	}
	if len(lg.Data) < 64 {
		return nil, ErrTruncatedLog
	}
	swap := &SwapLog{
		TokenIn:   common.BytesToAddress(lg.Topics[2].Bytes()[12:]),
		TokenOut:  common.BytesToAddress(lg.Topics[3].Bytes()[12:]),
		AmountIn:  evm.UnsignedWord(lg.Data[0:32]),
		AmountOut: evm.UnsignedWord(lg.Data[32:64]),
	}
	copy(swap.VaultPoolId[:], lg.Topics[1].Bytes())
	return swap, nil
}

// Adapter streams Balancer Vault swaps.
type Adapter struct {
	backend  evm.Backend
	resolver *evm.Resolver
	producer *venue.Producer
	tracer   *lineage.Tracer
	state    *venue.StateVar
	logger   *slog.Logger
}

// New creates a Balancer adapter.
func New(backend evm.Backend, resolver *evm.Resolver, producer *venue.Producer, tracer *lineage.Tracer, logger *slog.Logger) *Adapter {
	logger = logger.With("adapter", identity.Venue_Balancer.String())
	return &Adapter{
		backend:  backend,
		resolver: resolver,
		producer: producer,
		tracer:   tracer,
		state:    venue.NewStateVar(logger),
		logger:   logger,
	}
}

// Venue returns Venue_Balancer.
func (a *Adapter) Venue() identity.VenueId { return identity.Venue_Balancer }

// State returns the adapter's lifecycle state variable.
func (a *Adapter) State() *venue.StateVar { return a.state }

// Run blocks streaming Vault swaps until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	w := &evm.Watcher{
		Backend: a.backend,
		Query: ethereum.FilterQuery{
			Addresses: []common.Address{VaultAddress},
			Topics:    [][]common.Hash{{TopicSwap}},
		},
		Handle:  func(lg ethtypes.Log) { a.handleLog(ctx, lg) },
		OnReset: a.invalidateAll,
		State:   a.state,
		Logger:  a.logger,
	}
	return w.Run(ctx)
}

func (a *Adapter) handleLog(ctx context.Context, lg ethtypes.Log) {
	swap, err := DecodeSwap(lg)
	if err != nil {
		a.logger.Warn("bad swap log", "tx", lg.TxHash.Hex(), "error", err)
		return
	}

	// The identity pool derives from the token pair; the Vault's own
	// 32-byte pool id rides along in discovery metadata. Vault pool ids
	// embed the pool address in their first 20 bytes, which serves as the
	// pool's canonical address here.
	poolAddr := common.BytesToAddress(swap.VaultPoolId[:20])
	token0Addr, token1Addr := swap.TokenIn, swap.TokenOut
	if bytesGreater(token0Addr, token1Addr) {
		token0Addr, token1Addr = token1Addr, token0Addr
	}
	pool, err := a.resolver.ResolvePool(ctx, identity.Venue_Balancer, poolAddr, token0Addr, token1Addr, 0)
	if err != nil {
		a.logger.Warn("pool resolution failed", "pool", poolAddr.Hex(), "error", err)
		return
	}

	// Pool-perspective signed flows mapped onto the canonical token order.
	amount0, amount1 := new(big.Int), new(big.Int)
	if swap.TokenIn == pool.Token0.Addr {
		amount0.Set(swap.AmountIn)
		amount1.Neg(swap.AmountOut)
	} else {
		amount1.Set(swap.AmountIn)
		amount0.Neg(swap.AmountOut)
	}

	event := &wire.SwapEvent{
		PoolId:      pool.Id,
		BlockNumber: lg.BlockNumber,
		LogIndex:    uint32(lg.Index),
	}
	event.PutAmount0Signed(amount0)
	event.PutAmount1Signed(amount1)
	if err := venue.Emit(a.producer, event); err != nil {
		a.logger.Warn("swap emit failed", "error", err)
		return
	}

	if trace := a.tracer.Trace(lg.Data, 0); trace != nil {
		if err := venue.Emit(a.producer, trace); err != nil {
			a.logger.Warn("trace emit failed", "error", err)
		}
	}
}

func (a *Adapter) invalidateAll(reason wire.InvalidationReason) {
	var ids []identity.InstrumentId
	for _, rec := range a.producer.Cache().Snapshot() {
		if rec.Id.Venue == identity.Venue_Balancer && rec.Id.AssetType == identity.AssetType_Pool {
			ids = append(ids, rec.Id)
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := a.producer.Invalidate(identity.Venue_Balancer, reason, ids); err != nil {
		a.logger.Warn("invalidation emit failed", "error", err)
	}
}

func bytesGreater(a, b common.Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}
