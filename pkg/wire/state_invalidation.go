// Copyright (c) 2024 Neomantra Corp

package wire

import (
	"encoding/binary"

	"github.com/dawsh2/alphapulse/pkg/identity"
)

// InvalidationReason enumerates why a StateInvalidation was emitted.
type InvalidationReason uint8

const (
	InvalidationReason_Unknown             InvalidationReason = 0
	InvalidationReason_Disconnection       InvalidationReason = 1
	InvalidationReason_AuthenticationFailure InvalidationReason = 2
	InvalidationReason_RateLimited         InvalidationReason = 3
	InvalidationReason_Staleness           InvalidationReason = 4
	InvalidationReason_Maintenance         InvalidationReason = 5
	InvalidationReason_Recovery            InvalidationReason = 6
)

// MaxInvalidationInstruments bounds the instruments carried by one
// StateInvalidation message; a typical invalidation touches 1-5.
const MaxInvalidationInstruments = 16

const stateInvalidationFixedSize = 2 + 1 + 1 + 2 // venue + reason + pad + count

// StateInvalidation instructs consumers to purge cached state for the
// listed instruments.
type StateInvalidation struct {
	Venue       identity.VenueId
	Reason      InvalidationReason
	Instruments []identity.InstrumentId // <= MaxInvalidationInstruments
}

func (*StateInvalidation) MessageType() MessageType { return MessageType_StateInvalidation }

func (r *StateInvalidation) PayloadSize() int {
	return stateInvalidationFixedSize + identity.InstrumentId_Size*len(r.Instruments)
}

func (r *StateInvalidation) FillRaw(b []byte) error {
	if len(b) < stateInvalidationFixedSize {
		return unexpectedBytesError(len(b), stateInvalidationFixedSize)
	}
	r.Venue = identity.VenueId(binary.LittleEndian.Uint16(b[0:2]))
	r.Reason = InvalidationReason(b[2])
	count := int(binary.LittleEndian.Uint16(b[4:6]))
	if count > MaxInvalidationInstruments {
		count = MaxInvalidationInstruments
	}
	need := identity.InstrumentId_Size * count
	tail := b[6:]
	if len(tail) < need {
		return &TruncatedPayload{Need: need, Got: len(tail)}
	}
	r.Instruments = make([]identity.InstrumentId, count)
	for i := range r.Instruments {
		off := i * identity.InstrumentId_Size
		id, err := identity.FromBytes(tail[off : off+identity.InstrumentId_Size])
		if err != nil {
			return err
		}
		r.Instruments[i] = id
	}
	return nil
}

func (r *StateInvalidation) PutRaw(b []byte) {
	binary.LittleEndian.PutUint16(b[0:2], uint16(r.Venue))
	b[2] = uint8(r.Reason)
	b[3] = 0
	binary.LittleEndian.PutUint16(b[4:6], uint16(len(r.Instruments)))
	tail := b[6:]
	for i, id := range r.Instruments {
		off := i * identity.InstrumentId_Size
		id.PutBytes(tail[off : off+identity.InstrumentId_Size])
	}
}
