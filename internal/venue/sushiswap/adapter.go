// Copyright (c) 2024 Neomantra Corp
//
// SushiSwap pairs are byte-for-byte Uniswap V2 clones: same event
// signatures, same pair ABI. The adapter is the V2 adapter emitting under
// the SushiSwap venue id.

package sushiswap

import (
	"log/slog"

	"github.com/dawsh2/alphapulse/internal/lineage"
	"github.com/dawsh2/alphapulse/internal/venue"
	"github.com/dawsh2/alphapulse/internal/venue/evm"
	"github.com/dawsh2/alphapulse/internal/venue/uniswapv2"
	"github.com/dawsh2/alphapulse/pkg/identity"
)

// New creates a SushiSwap adapter.
func New(backend evm.Backend, resolver *evm.Resolver, producer *venue.Producer, tracer *lineage.Tracer, logger *slog.Logger) *uniswapv2.Adapter {
	return uniswapv2.New(identity.Venue_SushiSwap, backend, resolver, producer, tracer, logger)
}
