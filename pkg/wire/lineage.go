// Copyright (c) 2024 Neomantra Corp
//
// MessageTrace is an optional lineage record: information-only, ignored
// safely by any consumer that doesn't care about it. Disabled
// by default since it perturbs the hot path.

package wire

import "encoding/binary"

// MessageTrace_Size is the fixed payload width.
const MessageTrace_Size = 16 + 8 + 8 // event_id + source_payload_hash + produced_at_ns

// MessageTrace links a protocol message back to the source event that
// produced it, for end-to-end deep-equality validation in testing.
type MessageTrace struct {
	EventId          [16]byte // UUID
	SourcePayloadHash uint64  // xxhash64 of the raw source event bytes
	ProducedAtNs     uint64
}

func (*MessageTrace) MessageType() MessageType { return MessageType_MessageTrace }
func (*MessageTrace) PayloadSize() int         { return MessageTrace_Size }

func (r *MessageTrace) FillRaw(b []byte) error {
	if len(b) < MessageTrace_Size {
		return unexpectedBytesError(len(b), MessageTrace_Size)
	}
	copy(r.EventId[:], b[0:16])
	r.SourcePayloadHash = binary.LittleEndian.Uint64(b[16:24])
	r.ProducedAtNs = binary.LittleEndian.Uint64(b[24:32])
	return nil
}

func (r *MessageTrace) PutRaw(b []byte) {
	copy(b[0:16], r.EventId[:])
	binary.LittleEndian.PutUint64(b[16:24], r.SourcePayloadHash)
	binary.LittleEndian.PutUint64(b[24:32], r.ProducedAtNs)
}
