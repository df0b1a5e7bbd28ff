// Copyright (c) 2024 Neomantra Corp
//
// DeFiSignal is the current, extensible signal envelope: a fixed 256-byte
// tail plus optional TLV extensions (PoolAddresses, TertiaryVenue,
// MEVBundle, CustomParams). It supersedes ArbitrageOpportunity.

package wire

import (
	"encoding/binary"

	"github.com/dawsh2/alphapulse/pkg/identity"
)

const defiSignalReservedLen = 164

// DeFiSignal_FixedSize is the fixed-tail payload width, before any TLVs.
const DeFiSignal_FixedSize = 16 + identity.InstrumentId_Size + 1 + 2 + 1 + 8 + 8 + 2 + 2 + 8 + 8 + 8 + 8 + 8 + defiSignalReservedLen // = 256

type SignalAction uint8

const (
	SignalAction_Unknown SignalAction = 0
	SignalAction_Buy      SignalAction = 1
	SignalAction_Sell     SignalAction = 2
	SignalAction_Arbitrage SignalAction = 3
)

// DeFiSignal is a self-contained, execution-ready trading signal.
type DeFiSignal struct {
	SignalId        [16]byte // UUID
	PoolId          identity.InstrumentId
	Action          SignalAction
	ConfidenceBps   uint16
	ExpectedProfit  int64
	RequiredCapital uint64
	BuyVenue        identity.VenueId
	SellVenue       identity.VenueId
	BuyPrice        int64
	SellPrice       int64
	GasEstimate     uint64
	DetectedAtNs    uint64
	ExpiresAtNs     uint64

	// TLVs are appended after the fixed tail when present; callers MUST
	// check Header.HasTLV() before expecting any here.
	TLVs []TLV
}

func (*DeFiSignal) MessageType() MessageType { return MessageType_DeFiSignal }

// PayloadSize reports the fixed tail plus the encoded size of any TLVs.
func (r *DeFiSignal) PayloadSize() int {
	return DeFiSignal_FixedSize + EncodedTLVsSize(r.TLVs)
}

func (r *DeFiSignal) FillRaw(b []byte) error {
	if len(b) < DeFiSignal_FixedSize {
		return unexpectedBytesError(len(b), DeFiSignal_FixedSize)
	}
	copy(r.SignalId[:], b[0:16])
	id, err := identity.FromBytes(b[16 : 16+identity.InstrumentId_Size])
	if err != nil {
		return err
	}
	r.PoolId = id
	body := b[16+identity.InstrumentId_Size:]
	r.Action = SignalAction(body[0])
	r.ConfidenceBps = binary.LittleEndian.Uint16(body[1:3])
	// body[3] reserved/pad
	r.ExpectedProfit = int64(binary.LittleEndian.Uint64(body[4:12]))
	r.RequiredCapital = binary.LittleEndian.Uint64(body[12:20])
	r.BuyVenue = identity.VenueId(binary.LittleEndian.Uint16(body[20:22]))
	r.SellVenue = identity.VenueId(binary.LittleEndian.Uint16(body[22:24]))
	r.BuyPrice = int64(binary.LittleEndian.Uint64(body[24:32]))
	r.SellPrice = int64(binary.LittleEndian.Uint64(body[32:40]))
	r.GasEstimate = binary.LittleEndian.Uint64(body[40:48])
	r.DetectedAtNs = binary.LittleEndian.Uint64(body[48:56])
	r.ExpiresAtNs = binary.LittleEndian.Uint64(body[56:64])

	if len(b) > DeFiSignal_FixedSize {
		tlvs, err := ParseTLVs(b[DeFiSignal_FixedSize:])
		if err != nil {
			return err
		}
		r.TLVs = tlvs
	} else {
		r.TLVs = nil
	}
	return nil
}

func (r *DeFiSignal) PutRaw(b []byte) {
	copy(b[0:16], r.SignalId[:])
	r.PoolId.PutBytes(b[16 : 16+identity.InstrumentId_Size])
	body := b[16+identity.InstrumentId_Size:]
	body[0] = uint8(r.Action)
	binary.LittleEndian.PutUint16(body[1:3], r.ConfidenceBps)
	binary.LittleEndian.PutUint64(body[4:12], uint64(r.ExpectedProfit))
	binary.LittleEndian.PutUint64(body[12:20], r.RequiredCapital)
	binary.LittleEndian.PutUint16(body[20:22], uint16(r.BuyVenue))
	binary.LittleEndian.PutUint16(body[22:24], uint16(r.SellVenue))
	binary.LittleEndian.PutUint64(body[24:32], uint64(r.BuyPrice))
	binary.LittleEndian.PutUint64(body[32:40], uint64(r.SellPrice))
	binary.LittleEndian.PutUint64(body[40:48], r.GasEstimate)
	binary.LittleEndian.PutUint64(body[48:56], r.DetectedAtNs)
	binary.LittleEndian.PutUint64(body[56:64], r.ExpiresAtNs)
	// remaining reserved bytes of the fixed tail are left zero

	if len(r.TLVs) > 0 {
		AppendTLVs(b[DeFiSignal_FixedSize:], r.TLVs)
	}
}
