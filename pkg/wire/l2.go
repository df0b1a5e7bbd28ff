// Copyright (c) 2024 Neomantra Corp

package wire

import (
	"encoding/binary"

	"github.com/dawsh2/alphapulse/pkg/identity"
)

// L2Level is one price/size pair in a book snapshot or delta.
type L2Level struct {
	Price int64  // 10^8 fixed-point
	Size  uint64 // 10^8 fixed-point
}

const l2LevelSize = 16
const l2SnapshotFixedSize = identity.InstrumentId_Size + 2 + 2 // id + num_bids + num_asks

// L2Snapshot is a full order-book snapshot. An empty book (0 bids, 0
// asks) is a legal, round-trippable snapshot.
type L2Snapshot struct {
	InstrumentId identity.InstrumentId
	Bids         []L2Level
	Asks         []L2Level
}

func (*L2Snapshot) MessageType() MessageType { return MessageType_L2Snapshot }

func (r *L2Snapshot) PayloadSize() int {
	return l2SnapshotFixedSize + l2LevelSize*(len(r.Bids)+len(r.Asks))
}

func (r *L2Snapshot) FillRaw(b []byte) error {
	if len(b) < l2SnapshotFixedSize {
		return unexpectedBytesError(len(b), l2SnapshotFixedSize)
	}
	id, err := identity.FromBytes(b[0:identity.InstrumentId_Size])
	if err != nil {
		return err
	}
	r.InstrumentId = id
	body := b[identity.InstrumentId_Size:]
	numBids := int(binary.LittleEndian.Uint16(body[0:2]))
	numAsks := int(binary.LittleEndian.Uint16(body[2:4]))
	need := l2LevelSize * (numBids + numAsks)
	levels := body[4:]
	if len(levels) < need {
		return &TruncatedPayload{Need: need, Got: len(levels)}
	}
	r.Bids = make([]L2Level, numBids)
	for i := range r.Bids {
		off := i * l2LevelSize
		r.Bids[i] = decodeL2Level(levels[off : off+l2LevelSize])
	}
	r.Asks = make([]L2Level, numAsks)
	for i := range r.Asks {
		off := (numBids+i)*l2LevelSize
		r.Asks[i] = decodeL2Level(levels[off : off+l2LevelSize])
	}
	return nil
}

func (r *L2Snapshot) PutRaw(b []byte) {
	r.InstrumentId.PutBytes(b[0:identity.InstrumentId_Size])
	body := b[identity.InstrumentId_Size:]
	binary.LittleEndian.PutUint16(body[0:2], uint16(len(r.Bids)))
	binary.LittleEndian.PutUint16(body[2:4], uint16(len(r.Asks)))
	levels := body[4:]
	for i, lvl := range r.Bids {
		encodeL2Level(levels[i*l2LevelSize:(i+1)*l2LevelSize], lvl)
	}
	base := len(r.Bids) * l2LevelSize
	for i, lvl := range r.Asks {
		off := base + i*l2LevelSize
		encodeL2Level(levels[off:off+l2LevelSize], lvl)
	}
}

func decodeL2Level(b []byte) L2Level {
	return L2Level{
		Price: int64(binary.LittleEndian.Uint64(b[0:8])),
		Size:  binary.LittleEndian.Uint64(b[8:16]),
	}
}

func encodeL2Level(b []byte, lvl L2Level) {
	binary.LittleEndian.PutUint64(b[0:8], uint64(lvl.Price))
	binary.LittleEndian.PutUint64(b[8:16], lvl.Size)
}

///////////////////////////////////////////////////////////////////////////

// L2DeltaAction enumerates the kind of book mutation a delta applies.
type L2DeltaAction uint8

const (
	L2DeltaAction_Add    L2DeltaAction = 1
	L2DeltaAction_Update L2DeltaAction = 2
	L2DeltaAction_Remove L2DeltaAction = 3
)

// L2Delta_Size is the fixed payload width of an incremental book update.
const L2Delta_Size = identity.InstrumentId_Size + 1 + 1 + 8 + 8 // = 30

// L2Delta is one incremental book mutation.
type L2Delta struct {
	InstrumentId identity.InstrumentId
	Side         Side
	Action       L2DeltaAction
	Price        int64
	Size         uint64
}

func (*L2Delta) MessageType() MessageType { return MessageType_L2Delta }
func (*L2Delta) PayloadSize() int         { return L2Delta_Size }

func (r *L2Delta) FillRaw(b []byte) error {
	if len(b) < L2Delta_Size {
		return unexpectedBytesError(len(b), L2Delta_Size)
	}
	id, err := identity.FromBytes(b[0:identity.InstrumentId_Size])
	if err != nil {
		return err
	}
	r.InstrumentId = id
	body := b[identity.InstrumentId_Size:]
	r.Side = Side(body[0])
	r.Action = L2DeltaAction(body[1])
	r.Price = int64(binary.LittleEndian.Uint64(body[2:10]))
	r.Size = binary.LittleEndian.Uint64(body[10:18])
	return nil
}

func (r *L2Delta) PutRaw(b []byte) {
	r.InstrumentId.PutBytes(b[0:identity.InstrumentId_Size])
	body := b[identity.InstrumentId_Size:]
	body[0] = uint8(r.Side)
	body[1] = uint8(r.Action)
	binary.LittleEndian.PutUint64(body[2:10], uint64(r.Price))
	binary.LittleEndian.PutUint64(body[10:18], r.Size)
}

///////////////////////////////////////////////////////////////////////////

// L2Reset_Size is the fixed payload width of a book-discard instruction.
const L2Reset_Size = identity.InstrumentId_Size

// L2Reset instructs consumers to discard their local book for InstrumentId.
type L2Reset struct {
	InstrumentId identity.InstrumentId
}

func (*L2Reset) MessageType() MessageType { return MessageType_L2Reset }
func (*L2Reset) PayloadSize() int         { return L2Reset_Size }

func (r *L2Reset) FillRaw(b []byte) error {
	if len(b) < L2Reset_Size {
		return unexpectedBytesError(len(b), L2Reset_Size)
	}
	id, err := identity.FromBytes(b[0:identity.InstrumentId_Size])
	if err != nil {
		return err
	}
	r.InstrumentId = id
	return nil
}

func (r *L2Reset) PutRaw(b []byte) {
	r.InstrumentId.PutBytes(b[0:identity.InstrumentId_Size])
}
