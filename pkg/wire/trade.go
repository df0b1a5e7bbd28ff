// Copyright (c) 2024 Neomantra Corp

package wire

import (
	"encoding/binary"

	"github.com/dawsh2/alphapulse/pkg/identity"
)

// Trade_Size is the fixed payload width of a Trade record.
const Trade_Size = identity.InstrumentId_Size + 8 + 8 + 1 + 1 + 2 // = 32

// Trade is a single execution: price and volume are 10^8 fixed-point.
type Trade struct {
	InstrumentId identity.InstrumentId
	Price        int64
	Volume       uint64
	Side         Side
	Flags        uint8
}

func (*Trade) MessageType() MessageType { return MessageType_Trade }
func (*Trade) PayloadSize() int         { return Trade_Size }

func (r *Trade) FillRaw(b []byte) error {
	if len(b) < Trade_Size {
		return unexpectedBytesError(len(b), Trade_Size)
	}
	id, err := identity.FromBytes(b[0:identity.InstrumentId_Size])
	if err != nil {
		return err
	}
	r.InstrumentId = id
	body := b[identity.InstrumentId_Size:]
	r.Price = int64(binary.LittleEndian.Uint64(body[0:8]))
	r.Volume = binary.LittleEndian.Uint64(body[8:16])
	r.Side = Side(body[16])
	r.Flags = body[17]
	return nil
}

func (r *Trade) PutRaw(b []byte) {
	r.InstrumentId.PutBytes(b[0:identity.InstrumentId_Size])
	body := b[identity.InstrumentId_Size:]
	binary.LittleEndian.PutUint64(body[0:8], uint64(r.Price))
	binary.LittleEndian.PutUint64(body[8:16], r.Volume)
	body[16] = uint8(r.Side)
	body[17] = r.Flags
	// body[18:20] padding, left zero
}
