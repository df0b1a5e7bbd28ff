// Copyright (c) 2024 Neomantra Corp
//
// Adapted from dbn-go's publishers.go venue enum.

package identity

import "fmt"

// VenueId identifies the execution venue an instrument trades on.
type VenueId uint16

const (
	Venue_Unknown VenueId = 0

	// Centralized exchanges
	Venue_Binance  VenueId = 1
	Venue_Coinbase VenueId = 2
	Venue_Kraken   VenueId = 3
	Venue_Nasdaq   VenueId = 4

	// Chains
	Venue_Ethereum VenueId = 100
	Venue_Polygon  VenueId = 101
	Venue_Arbitrum VenueId = 102

	// DEX protocols (venue, not chain -- the chain is carried by the pool's
	// token identities, per the canonical-pool derivation rule)
	Venue_UniswapV2 VenueId = 200
	Venue_UniswapV3 VenueId = 201
	Venue_SushiSwap VenueId = 202
	Venue_Curve     VenueId = 203
	Venue_Balancer  VenueId = 204
)

var venueNames = map[VenueId]string{
	Venue_Unknown:   "unknown",
	Venue_Binance:   "binance",
	Venue_Coinbase:  "coinbase",
	Venue_Kraken:    "kraken",
	Venue_Nasdaq:    "nasdaq",
	Venue_Ethereum:  "ethereum",
	Venue_Polygon:   "polygon",
	Venue_Arbitrum:  "arbitrum",
	Venue_UniswapV2: "uniswap_v2",
	Venue_UniswapV3: "uniswap_v3",
	Venue_SushiSwap: "sushiswap",
	Venue_Curve:     "curve",
	Venue_Balancer:  "balancer",
}

var venuesByName = func() map[string]VenueId {
	m := make(map[string]VenueId, len(venueNames))
	for id, name := range venueNames {
		m[name] = id
	}
	return m
}()

// String returns the canonical lower-snake-case name of the venue.
func (v VenueId) String() string {
	if name, ok := venueNames[v]; ok {
		return name
	}
	return fmt.Sprintf("venue(%d)", uint16(v))
}

// ParseVenue looks up a VenueId by its canonical name.
func ParseVenue(name string) (VenueId, error) {
	if id, ok := venuesByName[name]; ok {
		return id, nil
	}
	return Venue_Unknown, fmt.Errorf("unknown venue %q", name)
}

// IsDex reports whether the venue is an on-chain automated market maker.
func (v VenueId) IsDex() bool {
	switch v {
	case Venue_UniswapV2, Venue_UniswapV3, Venue_SushiSwap, Venue_Curve, Venue_Balancer:
		return true
	default:
		return false
	}
}
