// Copyright (c) 2024 Neomantra Corp
//
// InstrumentId is the core's canonical 96-bit identity for any tradable
// thing: a CEX spot pair, an on-chain token, or an AMM pool. It is
// deliberately small and copyable so it can be used as the sole key into
// the schema cache and embedded directly in wire payloads.

package identity

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// InstrumentId_Size is the on-wire width of an InstrumentId: venue(2) +
// asset_type(1) + reserved(1) + asset_id(8).
const InstrumentId_Size = 12

// InstrumentId is a 96-bit canonical identifier. The zero value is not a
// valid instrument (Venue_Unknown, AssetType_Unknown).
type InstrumentId struct {
	Venue     VenueId
	AssetType AssetType
	Reserved  uint8 // must be zero on the wire
	AssetId   uint64
}

// CacheKey returns the value used as the sole key into the schema cache:
// the xxhash64 digest of the canonical 12-byte wire form, so all four
// fields contribute. A literal concatenation of the fields would need 96
// bits; the digest fits a plain uint64 map key. It is deterministic and
// collision-free in practice for the instrument universe this system
// observes.
func (id InstrumentId) CacheKey() uint64 {
	var buf [InstrumentId_Size]byte
	id.PutBytes(buf[:])
	return xxhash.Sum64(buf[:])
}

// PutBytes writes the canonical 12-byte wire representation into dst,
// which must be at least InstrumentId_Size bytes.
func (id InstrumentId) PutBytes(dst []byte) {
	binary.LittleEndian.PutUint16(dst[0:2], uint16(id.Venue))
	dst[2] = uint8(id.AssetType)
	dst[3] = id.Reserved
	binary.LittleEndian.PutUint64(dst[4:12], id.AssetId)
}

// FromBytes parses the canonical 12-byte wire representation.
func FromBytes(b []byte) (InstrumentId, error) {
	if len(b) < InstrumentId_Size {
		return InstrumentId{}, fmt.Errorf("instrument id: expected %d bytes, got %d", InstrumentId_Size, len(b))
	}
	return InstrumentId{
		Venue:     VenueId(binary.LittleEndian.Uint16(b[0:2])),
		AssetType: AssetType(b[2]),
		Reserved:  b[3],
		AssetId:   binary.LittleEndian.Uint64(b[4:12]),
	}, nil
}

// String renders the bijective form "venue:asset_type:asset_id" (reserved
// is always zero and carries no information, so it is omitted).
func (id InstrumentId) String() string {
	return fmt.Sprintf("%s:%s:%d", id.Venue, id.AssetType, id.AssetId)
}

// Parse is the inverse of String. Parse(id.String()) == id for
// every InstrumentId constructed by this package.
func Parse(s string) (InstrumentId, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return InstrumentId{}, fmt.Errorf("instrument id: malformed %q", s)
	}
	venue, err := ParseVenue(parts[0])
	if err != nil {
		return InstrumentId{}, err
	}
	assetType, err := parseAssetType(parts[1])
	if err != nil {
		return InstrumentId{}, err
	}
	assetId, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return InstrumentId{}, fmt.Errorf("instrument id: bad asset_id %q: %w", parts[2], err)
	}
	return InstrumentId{Venue: venue, AssetType: assetType, AssetId: assetId}, nil
}

func parseAssetType(name string) (AssetType, error) {
	for at, n := range assetTypeNames {
		if n == name {
			return at, nil
		}
	}
	return AssetType_Unknown, fmt.Errorf("instrument id: unknown asset_type %q", name)
}

// HashSymbol derives a stable, exchange-independent asset_id for a CEX
// spot/stock instrument from its canonical "BASE-QUOTE" symbol string. The
// 64-bit xxhash64 digest of the upper-cased symbol gives a cheap,
// collision-resistant identity within a (venue, asset_type) pair.
func HashSymbol(canonicalSymbol string) uint64 {
	return xxhash.Sum64String(strings.ToUpper(canonicalSymbol))
}

// NewCexSpot derives the InstrumentId for a centralized-exchange spot pair.
func NewCexSpot(venue VenueId, baseQuote string) InstrumentId {
	return InstrumentId{
		Venue:     venue,
		AssetType: AssetType_Spot,
		AssetId:   HashSymbol(baseQuote),
	}
}

// TokenAssetId derives the asset_id for an on-chain token from its 20-byte
// contract address: the first 8 bytes, taken as-is (not hashed) so the
// asset_id stays recoverable for debugging; full-address resolution for
// consumers goes through the schema cache.
func TokenAssetId(contractAddress [20]byte) uint64 {
	return binary.BigEndian.Uint64(contractAddress[0:8])
}

// NewToken derives the InstrumentId for an on-chain token.
func NewToken(venue VenueId, contractAddress [20]byte) InstrumentId {
	return InstrumentId{
		Venue:     venue,
		AssetType: AssetType_Token,
		AssetId:   TokenAssetId(contractAddress),
	}
}

// NewPool derives the InstrumentId for an AMM liquidity pool from the two
// constituent token ids, canonicalizing their order so that
// NewPool(v, a, b) == NewPool(v, b, a) regardless of call order.
func NewPool(venue VenueId, token0, token1 InstrumentId) InstrumentId {
	if token0.AssetId > token1.AssetId {
		token0, token1 = token1, token0
	}
	h := xxhash.New()
	var buf [InstrumentId_Size]byte
	token0.PutBytes(buf[:])
	_, _ = h.Write(buf[:])
	token1.PutBytes(buf[:])
	_, _ = h.Write(buf[:])
	return InstrumentId{
		Venue:     venue,
		AssetType: AssetType_Pool,
		AssetId:   h.Sum64(),
	}
}

// IsZero reports whether id is the zero value (never a valid instrument).
func (id InstrumentId) IsZero() bool {
	return id.Venue == Venue_Unknown && id.AssetType == AssetType_Unknown && id.AssetId == 0
}
