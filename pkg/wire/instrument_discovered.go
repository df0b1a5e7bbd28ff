// Copyright (c) 2024 Neomantra Corp

package wire

import (
	"encoding/binary"

	"github.com/dawsh2/alphapulse/pkg/identity"
)

const instrumentDiscoveredFixedSize = identity.InstrumentId_Size + 1 + 1 + 2 + 2 // id + decimals + pad + symbol_len + metadata_len

// InstrumentDiscovered announces the first sighting of an InstrumentId;
// the schema cache (internal/schema) inserts it on receipt.
type InstrumentDiscovered struct {
	InstrumentId identity.InstrumentId
	Decimals     uint8
	Symbol       string // <= 64 bytes
	Metadata     []byte // opaque, <= 1024 bytes
}

func (*InstrumentDiscovered) MessageType() MessageType { return MessageType_InstrumentDiscovered }

func (r *InstrumentDiscovered) PayloadSize() int {
	return instrumentDiscoveredFixedSize + len(r.Symbol) + len(r.Metadata)
}

func (r *InstrumentDiscovered) FillRaw(b []byte) error {
	if len(b) < instrumentDiscoveredFixedSize {
		return unexpectedBytesError(len(b), instrumentDiscoveredFixedSize)
	}
	id, err := identity.FromBytes(b[0:identity.InstrumentId_Size])
	if err != nil {
		return err
	}
	r.InstrumentId = id
	body := b[identity.InstrumentId_Size:]
	r.Decimals = body[0]
	symbolLen := int(binary.LittleEndian.Uint16(body[2:4]))
	metadataLen := int(binary.LittleEndian.Uint16(body[4:6]))
	tail := body[6:]
	need := symbolLen + metadataLen
	if len(tail) < need {
		return &TruncatedPayload{Need: need, Got: len(tail)}
	}
	r.Symbol = string(tail[0:symbolLen])
	r.Metadata = append([]byte(nil), tail[symbolLen:symbolLen+metadataLen]...)
	return nil
}

func (r *InstrumentDiscovered) PutRaw(b []byte) {
	r.InstrumentId.PutBytes(b[0:identity.InstrumentId_Size])
	body := b[identity.InstrumentId_Size:]
	body[0] = r.Decimals
	body[1] = 0
	binary.LittleEndian.PutUint16(body[2:4], uint16(len(r.Symbol)))
	binary.LittleEndian.PutUint16(body[4:6], uint16(len(r.Metadata)))
	tail := body[6:]
	copy(tail[0:len(r.Symbol)], r.Symbol)
	copy(tail[len(r.Symbol):len(r.Symbol)+len(r.Metadata)], r.Metadata)
}
