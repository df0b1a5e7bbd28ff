// Copyright (c) 2024 Neomantra Corp
//
// Curve adapter: decodes StableSwap TokenExchange logs. Curve pools are
// index-addressed (coins(i)) rather than token0/token1; this adapter
// covers the two-coin pools that dominate arbitrage flow and skips
// exchanges touching higher indices.

package curve

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

// TokenExchange(address indexed buyer, int128 sold_id, uint256
// tokens_sold, int128 bought_id, uint256 tokens_bought)
var TopicTokenExchange = common.HexToHash("0x8b3e96f2b889fa771c53c981b40daf005f63f637f1869f707052d15a3dd97140")

var (
	ErrNotExchangeEvent = errors.New("curve: not a TokenExchange log")
	ErrTruncatedLog     = errors.New("curve: truncated log data")
)

// ExchangeLog is a decoded TokenExchange at native precision.
type ExchangeLog struct {
	Buyer        common.Address
	SoldId       int64
	TokensSold   *big.Int
	BoughtId     int64
	TokensBought *big.Int
}

// DecodeExchange decodes a TokenExchange log (4 data words).
func DecodeExchange(lg ethtypes.Log) (*ExchangeLog, error) {
	if len(lg.Topics) < 2 || lg.Topics[0] != TopicTokenExchange {
		return nil, ErrNotExchangeEvent
	}
	if len(lg.Data) < 128 {
		return nil, ErrTruncatedLog
	}
	return &ExchangeLog{
		Buyer:        common.BytesToAddress(lg.Topics[1].Bytes()[12:]),
		SoldId:       evm.SignedWord(lg.Data[0:32]).Int64(),
		TokensSold:   evm.UnsignedWord(lg.Data[32:64]),
		BoughtId:     evm.SignedWord(lg.Data[64:96]).Int64(),
		TokensBought: evm.UnsignedWord(lg.Data[96:128]),
	}, nil
}

// Adapter streams one chain's Curve StableSwap exchanges.
type Adapter struct {
	backend  evm.Backend
	resolver *evm.Resolver
	producer *venue.Producer
	tracer   *lineage.Tracer
	state    *venue.StateVar
	logger   *slog.Logger
}

// New creates a Curve adapter.
func New(backend evm.Backend, resolver *evm.Resolver, producer *venue.Producer, tracer *lineage.Tracer, logger *slog.Logger) *Adapter {
	logger = logger.With("adapter", identity.Venue_Curve.String())
	return &Adapter{
		backend:  backend,
		resolver: resolver,
		producer: producer,
		tracer:   tracer,
		state:    venue.NewStateVar(logger),
		logger:   logger,
	}
}

// Venue returns Venue_Curve.
func (a *Adapter) Venue() identity.VenueId { return identity.Venue_Curve }

// State returns the adapter's lifecycle state variable.
func (a *Adapter) State() *venue.StateVar { return a.state }

// Run blocks streaming exchanges until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	w := &evm.Watcher{
		Backend: a.backend,
		Query: ethereum.FilterQuery{
			Topics: [][]common.Hash{{TopicTokenExchange}},
		},
		Handle:  func(lg ethtypes.Log) { a.handleLog(ctx, lg) },
		OnReset: a.invalidateAll,
		State:   a.state,
		Logger:  a.logger,
	}
	return w.Run(ctx)
}

func (a *Adapter) handleLog(ctx context.Context, lg ethtypes.Log) {
	exch, err := DecodeExchange(lg)
	if err != nil {
		a.logger.Warn("bad exchange log", "tx", lg.TxHash.Hex(), "error", err)
		return
	}
	if exch.SoldId > 1 || exch.BoughtId > 1 || exch.SoldId < 0 || exch.BoughtId < 0 {
		a.logger.Debug("skipping multi-coin exchange", "pool", lg.Address.Hex(),
			"sold_id", exch.SoldId, "bought_id", exch.BoughtId)
		return
	}

	pool, err := a.resolver.ResolvePairPool(ctx, identity.Venue_Curve, lg.Address, evm.CoinsCall(0), evm.CoinsCall(1), nil)
	if err != nil {
		a.logger.Warn("pool resolution failed", "pool", lg.Address.Hex(), "error", err)
		return
	}

	// Pool-perspective signed flows: sold tokens enter the pool, bought
	// tokens leave it.
	amounts := [2]*big.Int{big.NewInt(0), big.NewInt(0)}
	amounts[exch.SoldId] = new(big.Int).Set(exch.TokensSold)
	amounts[exch.BoughtId] = new(big.Int).Neg(exch.TokensBought)

	event := &wire.SwapEvent{
		PoolId:      pool.Id,
		BlockNumber: lg.BlockNumber,
		LogIndex:    uint32(lg.Index),
	}
	event.PutAmount0Signed(amounts[0])
	event.PutAmount1Signed(amounts[1])
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
		if rec.Id.Venue == identity.Venue_Curve && rec.Id.AssetType == identity.AssetType_Pool {
			ids = append(ids, rec.Id)
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := a.producer.Invalidate(identity.Venue_Curve, reason, ids); err != nil {
		a.logger.Warn("invalidation emit failed", "error", err)
	}
}
