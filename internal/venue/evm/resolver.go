// Copyright (c) 2024 Neomantra Corp
//
// Resolver maps on-chain addresses to canonical instrument identities,
// making the metadata eth_calls (token0/token1/fee, decimals/symbol) once
// per address and caching forever. Every first sighting flows through the
// producer's Discover so consumers receive InstrumentDiscovered exactly
// once per token and per pool.

package evm

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dawsh2/alphapulse/internal/schema"
	"github.com/dawsh2/alphapulse/internal/venue"
	"github.com/dawsh2/alphapulse/internal/venue/ratelimit"
	"github.com/dawsh2/alphapulse/pkg/identity"
)

// Function selectors for the metadata calls. The pool-shape calls differ
// per protocol (Uniswap token0()/token1() vs Curve coins(i)); ERC-20
// decimals()/symbol() are universal.
var (
	SelectorToken0   = common.Hex2Bytes("0dfe1681") // token0()
	SelectorToken1   = common.Hex2Bytes("d21220a7") // token1()
	SelectorFee      = common.Hex2Bytes("ddca3f43") // fee()
	SelectorDecimals = common.Hex2Bytes("313ce567") // decimals()
	SelectorSymbol   = common.Hex2Bytes("95d89b41") // symbol()
)

// CoinsCall encodes coins(uint256 i) for Curve-style pools.
func CoinsCall(i uint64) []byte {
	data := make([]byte, 4+32)
	copy(data, common.Hex2Bytes("c6610657"))
	binary.BigEndian.PutUint64(data[4+24:], i)
	return data
}

// TokenInfo is a resolved ERC-20 token.
type TokenInfo struct {
	Addr     common.Address
	Id       identity.InstrumentId
	Symbol   string
	Decimals uint8
}

// PoolInfo is a resolved AMM pool with its two constituent tokens.
type PoolInfo struct {
	Addr   common.Address
	Id     identity.InstrumentId
	Token0 TokenInfo
	Token1 TokenInfo
	Fee    uint32
}

// Resolver caches address -> identity for one chain. It is safe for use
// from a single adapter task; the maps are mutex-guarded only because the
// staleness checker may race the event loop.
type Resolver struct {
	chain    identity.VenueId
	backend  Backend
	limiter  *ratelimit.Limiter
	producer *venue.Producer
	logger   *slog.Logger

	mu     sync.Mutex
	tokens map[common.Address]TokenInfo
	pools  map[common.Address]PoolInfo
}

// NewResolver creates a Resolver for the given chain venue (the venue
// field of token identities; pool identities carry the DEX venue).
func NewResolver(chain identity.VenueId, backend Backend, limiter *ratelimit.Limiter, producer *venue.Producer, logger *slog.Logger) *Resolver {
	return &Resolver{
		chain:    chain,
		backend:  backend,
		limiter:  limiter,
		producer: producer,
		logger:   logger.With("component", "evm-resolver", "chain", chain.String()),
		tokens:   make(map[common.Address]TokenInfo),
		pools:    make(map[common.Address]PoolInfo),
	}
}

// LookupPool returns the cached PoolInfo for addr without any RPC.
func (r *Resolver) LookupPool(addr common.Address) (PoolInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.pools[addr]
	return info, ok
}

// ResolveToken resolves an ERC-20 address, calling decimals() and
// symbol() on first sighting and announcing the discovery.
func (r *Resolver) ResolveToken(ctx context.Context, addr common.Address) (TokenInfo, error) {
	r.mu.Lock()
	if info, ok := r.tokens[addr]; ok {
		r.mu.Unlock()
		return info, nil
	}
	r.mu.Unlock()

	decimals, err := r.callUint8(ctx, addr, SelectorDecimals)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("decimals(%s): %w", addr.Hex(), err)
	}
	symbol, err := r.callString(ctx, addr, SelectorSymbol)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("symbol(%s): %w", addr.Hex(), err)
	}

	info := TokenInfo{
		Addr:     addr,
		Id:       identity.NewToken(r.chain, addr),
		Symbol:   symbol,
		Decimals: decimals,
	}
	if err := r.producer.Discover(schema.CachedRecord{
		Id:       info.Id,
		Symbol:   info.Symbol,
		Decimals: info.Decimals,
		Metadata: addr.Bytes(),
	}); err != nil {
		r.logger.Warn("token discovery rejected", "addr", addr.Hex(), "error", err)
	}

	r.mu.Lock()
	r.tokens[addr] = info
	r.mu.Unlock()
	return info, nil
}

// ResolvePool registers a pool whose token addresses the caller already
// knows (e.g. Balancer carries them in the event topics). The pool id is
// derived from the token identities with the canonical ordering rule.
func (r *Resolver) ResolvePool(ctx context.Context, dex identity.VenueId, poolAddr common.Address, token0Addr, token1Addr common.Address, fee uint32) (PoolInfo, error) {
	r.mu.Lock()
	if info, ok := r.pools[poolAddr]; ok {
		r.mu.Unlock()
		return info, nil
	}
	r.mu.Unlock()

	t0, err := r.ResolveToken(ctx, token0Addr)
	if err != nil {
		return PoolInfo{}, err
	}
	t1, err := r.ResolveToken(ctx, token1Addr)
	if err != nil {
		return PoolInfo{}, err
	}

	info := PoolInfo{
		Addr:   poolAddr,
		Id:     identity.NewPool(dex, t0.Id, t1.Id),
		Token0: t0,
		Token1: t1,
		Fee:    fee,
	}

	// Pool metadata: pool address + both token addresses + fee, enough
	// for a consumer to reconstruct the full 20-byte addresses the 8-byte
	// asset_ids truncate.
	meta := make([]byte, 0, 20+20+20+4)
	meta = append(meta, poolAddr.Bytes()...)
	meta = append(meta, token0Addr.Bytes()...)
	meta = append(meta, token1Addr.Bytes()...)
	var feeBytes [4]byte
	binary.BigEndian.PutUint32(feeBytes[:], fee)
	meta = append(meta, feeBytes[:]...)

	if err := r.producer.Discover(schema.CachedRecord{
		Id:       info.Id,
		Symbol:   t0.Symbol + "/" + t1.Symbol,
		Decimals: 0,
		Metadata: meta,
	}); err != nil {
		r.logger.Warn("pool discovery rejected", "addr", poolAddr.Hex(), "error", err)
	}

	r.mu.Lock()
	r.pools[poolAddr] = info
	r.mu.Unlock()
	return info, nil
}

// ResolvePairPool resolves a two-token pool by calling the pool contract
// for its token addresses: token0Call/token1Call are the encoded calls
// (token0()/token1() for Uniswap-family, coins(0)/coins(1) for Curve).
// feeCall may be nil for protocols without a fee() view.
func (r *Resolver) ResolvePairPool(ctx context.Context, dex identity.VenueId, poolAddr common.Address, token0Call, token1Call, feeCall []byte) (PoolInfo, error) {
	r.mu.Lock()
	if info, ok := r.pools[poolAddr]; ok {
		r.mu.Unlock()
		return info, nil
	}
	r.mu.Unlock()

	token0Addr, err := r.callAddress(ctx, poolAddr, token0Call)
	if err != nil {
		return PoolInfo{}, fmt.Errorf("pool %s token0: %w", poolAddr.Hex(), err)
	}
	token1Addr, err := r.callAddress(ctx, poolAddr, token1Call)
	if err != nil {
		return PoolInfo{}, fmt.Errorf("pool %s token1: %w", poolAddr.Hex(), err)
	}

	var fee uint32
	if feeCall != nil {
		fee, err = r.callUint32(ctx, poolAddr, feeCall)
		if err != nil {
			return PoolInfo{}, fmt.Errorf("pool %s fee: %w", poolAddr.Hex(), err)
		}
	}

	return r.ResolvePool(ctx, dex, poolAddr, token0Addr, token1Addr, fee)
}

func (r *Resolver) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if err := r.limiter.ContractCall.Wait(ctx); err != nil {
		return nil, err
	}
	return r.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

func (r *Resolver) callAddress(ctx context.Context, to common.Address, data []byte) (common.Address, error) {
	out, err := r.call(ctx, to, data)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) < 32 {
		return common.Address{}, fmt.Errorf("short address response: %d bytes", len(out))
	}
	return common.BytesToAddress(out[12:32]), nil
}

func (r *Resolver) callUint8(ctx context.Context, to common.Address, data []byte) (uint8, error) {
	out, err := r.call(ctx, to, data)
	if err != nil {
		return 0, err
	}
	if len(out) < 32 {
		return 0, fmt.Errorf("short uint8 response: %d bytes", len(out))
	}
	return out[31], nil
}

func (r *Resolver) callUint32(ctx context.Context, to common.Address, data []byte) (uint32, error) {
	out, err := r.call(ctx, to, data)
	if err != nil {
		return 0, err
	}
	if len(out) < 32 {
		return 0, fmt.Errorf("short uint32 response: %d bytes", len(out))
	}
	return binary.BigEndian.Uint32(out[28:32]), nil
}

// callString decodes an ABI-encoded dynamic string return (offset word,
// length word, bytes). Some legacy tokens return bytes32 instead; those
// are handled by trimming NULs off a 32-byte response.
func (r *Resolver) callString(ctx context.Context, to common.Address, data []byte) (string, error) {
	out, err := r.call(ctx, to, data)
	if err != nil {
		return "", err
	}
	if len(out) == 32 {
		return strings.TrimRight(string(out), "\x00"), nil
	}
	if len(out) < 64 {
		return "", fmt.Errorf("short string response: %d bytes", len(out))
	}
	length := binary.BigEndian.Uint64(out[56:64])
	if uint64(len(out)-64) < length {
		return "", fmt.Errorf("truncated string response")
	}
	return string(out[64 : 64+length]), nil
}
