// Copyright (c) 2024 Neomantra Corp

package wire

import (
	"encoding/binary"

	"github.com/dawsh2/alphapulse/pkg/identity"
)

// Quote_Size is the fixed payload width of a Quote (top-of-book) record.
const Quote_Size = identity.InstrumentId_Size + 8 + 8 + 8 + 8 + 4 // = 48

// Quote is a top-of-book snapshot: all price/size fields are 10^8 fixed-point.
type Quote struct {
	InstrumentId identity.InstrumentId
	BidPrice     int64
	AskPrice     int64
	BidSize      uint64
	AskSize      uint64
}

func (*Quote) MessageType() MessageType { return MessageType_Quote }
func (*Quote) PayloadSize() int         { return Quote_Size }

func (r *Quote) FillRaw(b []byte) error {
	if len(b) < Quote_Size {
		return unexpectedBytesError(len(b), Quote_Size)
	}
	id, err := identity.FromBytes(b[0:identity.InstrumentId_Size])
	if err != nil {
		return err
	}
	r.InstrumentId = id
	body := b[identity.InstrumentId_Size:]
	r.BidPrice = int64(binary.LittleEndian.Uint64(body[0:8]))
	r.AskPrice = int64(binary.LittleEndian.Uint64(body[8:16]))
	r.BidSize = binary.LittleEndian.Uint64(body[16:24])
	r.AskSize = binary.LittleEndian.Uint64(body[24:32])
	return nil
}

func (r *Quote) PutRaw(b []byte) {
	r.InstrumentId.PutBytes(b[0:identity.InstrumentId_Size])
	body := b[identity.InstrumentId_Size:]
	binary.LittleEndian.PutUint64(body[0:8], uint64(r.BidPrice))
	binary.LittleEndian.PutUint64(body[8:16], uint64(r.AskPrice))
	binary.LittleEndian.PutUint64(body[16:24], r.BidSize)
	binary.LittleEndian.PutUint64(body[24:32], r.AskSize)
	// body[32:36] padding, left zero
}
