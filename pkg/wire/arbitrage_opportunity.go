// Copyright (c) 2024 Neomantra Corp
//
// ArbitrageOpportunity is the legacy, fixed-shape signal payload. New
// producers should prefer DeFiSignal; this type is kept because it is
// named explicitly as a wire message kind and existing consumers may
// still depend on its exact layout.

package wire

import (
	"encoding/binary"

	"github.com/dawsh2/alphapulse/pkg/identity"
)

const arbNotesLen = 140

// ArbitrageOpportunity_Size is the fixed payload width.
const ArbitrageOpportunity_Size = identity.InstrumentId_Size + 2 + 2 + 8 + 8 + 8 + 8 + 8 + 8 + 2 + 2 + arbNotesLen // = 208

type ArbitrageOpportunity struct {
	PairId         identity.InstrumentId
	BuyVenue       identity.VenueId
	SellVenue      identity.VenueId
	BuyPrice       int64
	SellPrice      int64
	ProfitEstimate int64
	Size           uint64
	DetectedAtNs   uint64
	ExpiresAtNs    uint64
	ConfidenceBps  uint16
	Notes          [arbNotesLen]byte // free-text rationale, NUL-padded
}

func (*ArbitrageOpportunity) MessageType() MessageType { return MessageType_ArbitrageOpportunity }
func (*ArbitrageOpportunity) PayloadSize() int         { return ArbitrageOpportunity_Size }

func (r *ArbitrageOpportunity) FillRaw(b []byte) error {
	if len(b) < ArbitrageOpportunity_Size {
		return unexpectedBytesError(len(b), ArbitrageOpportunity_Size)
	}
	id, err := identity.FromBytes(b[0:identity.InstrumentId_Size])
	if err != nil {
		return err
	}
	r.PairId = id
	body := b[identity.InstrumentId_Size:]
	r.BuyVenue = identity.VenueId(binary.LittleEndian.Uint16(body[0:2]))
	r.SellVenue = identity.VenueId(binary.LittleEndian.Uint16(body[2:4]))
	r.BuyPrice = int64(binary.LittleEndian.Uint64(body[4:12]))
	r.SellPrice = int64(binary.LittleEndian.Uint64(body[12:20]))
	r.ProfitEstimate = int64(binary.LittleEndian.Uint64(body[20:28]))
	r.Size = binary.LittleEndian.Uint64(body[28:36])
	r.DetectedAtNs = binary.LittleEndian.Uint64(body[36:44])
	r.ExpiresAtNs = binary.LittleEndian.Uint64(body[44:52])
	r.ConfidenceBps = binary.LittleEndian.Uint16(body[52:54])
	copy(r.Notes[:], body[56:56+arbNotesLen])
	return nil
}

func (r *ArbitrageOpportunity) PutRaw(b []byte) {
	r.PairId.PutBytes(b[0:identity.InstrumentId_Size])
	body := b[identity.InstrumentId_Size:]
	binary.LittleEndian.PutUint16(body[0:2], uint16(r.BuyVenue))
	binary.LittleEndian.PutUint16(body[2:4], uint16(r.SellVenue))
	binary.LittleEndian.PutUint64(body[4:12], uint64(r.BuyPrice))
	binary.LittleEndian.PutUint64(body[12:20], uint64(r.SellPrice))
	binary.LittleEndian.PutUint64(body[20:28], uint64(r.ProfitEstimate))
	binary.LittleEndian.PutUint64(body[28:36], r.Size)
	binary.LittleEndian.PutUint64(body[36:44], r.DetectedAtNs)
	binary.LittleEndian.PutUint64(body[44:52], r.ExpiresAtNs)
	binary.LittleEndian.PutUint16(body[52:54], r.ConfidenceBps)
	copy(body[56:56+arbNotesLen], r.Notes[:])
}
