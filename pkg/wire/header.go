// Copyright (c) 2024 Neomantra Corp
//
// Header is the fixed 32-byte envelope that opens every message. Field
// accessors read directly off a backing []byte via encoding/binary so a
// Header can be decoded without allocation, the same discipline dbn-go
// uses for its own RHeader.
//
// Checksum note: the checksum field lives at a fixed offset inside the
// header (28:32) rather than trailing the frame, so it is computed with
// its own bytes zeroed and then patched back in -- the conventional way
// to let a fixed-position checksum field cover the whole frame including
// itself.

package wire

import (
	"encoding/binary"
	"hash/crc32"
)

// Header_Size is the fixed on-wire width of the envelope.
const Header_Size = 32

// Header is the decoded, convenient form of the 32-byte envelope.
type Header struct {
	RelayDomain RelayDomain
	Version     uint8
	Source      Source
	Flags       uint8
	MessageType MessageType
	PayloadSize uint32
	Sequence    uint64
	TimestampNs uint64
	Checksum    uint32
}

// HasTLV reports whether Flag_HasTLV is set.
func (h Header) HasTLV() bool {
	return h.Flags&Flag_HasTLV != 0
}

// ChecksumDisabled reports whether Flag_ChecksumDisabled is set.
func (h Header) ChecksumDisabled() bool {
	return h.Flags&Flag_ChecksumDisabled != 0
}

// DecodeHeader parses the leading Header_Size bytes of b. It validates the
// magic anchor; callers MUST treat a non-nil *InvalidMagic error as a
// signal to resync rather than trust PayloadSize.
func DecodeHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < Header_Size {
		return h, unexpectedBytesError(len(b), Header_Size)
	}
	magic := binary.LittleEndian.Uint32(b[0:4])
	if magic != Magic {
		return h, &InvalidMagic{Actual: magic}
	}
	h.RelayDomain = RelayDomain(b[4])
	h.Version = b[5]
	h.Source = Source(b[6])
	h.Flags = b[7]
	h.MessageType = MessageType(binary.LittleEndian.Uint16(b[8:10]))
	h.PayloadSize = binary.LittleEndian.Uint32(b[12:16])
	h.Sequence = binary.LittleEndian.Uint64(b[16:24])
	h.TimestampNs = binary.LittleEndian.Uint64(b[24:32])
	return h, nil
}

// PutHeader writes h into dst[0:Header_Size]. The checksum field (bytes
// 28:32) is left zero; PatchChecksum fills it in once the full frame is
// assembled.
func PutHeader(dst []byte, h Header) {
	binary.LittleEndian.PutUint32(dst[0:4], Magic)
	dst[4] = uint8(h.RelayDomain)
	dst[5] = h.Version
	dst[6] = uint8(h.Source)
	dst[7] = h.Flags
	binary.LittleEndian.PutUint16(dst[8:10], uint16(h.MessageType))
	binary.LittleEndian.PutUint16(dst[10:12], 0) // reserved
	binary.LittleEndian.PutUint32(dst[12:16], h.PayloadSize)
	binary.LittleEndian.PutUint64(dst[16:24], h.Sequence)
	binary.LittleEndian.PutUint64(dst[24:32], h.TimestampNs)
	binary.LittleEndian.PutUint32(dst[28:32], 0)
}

// PatchChecksum computes the CRC-32 (IEEE polynomial) over frame with its
// checksum field zeroed, and writes the result into frame[28:32]. No-op
// (zero) when flags carries Flag_ChecksumDisabled.
func PatchChecksum(frame []byte) {
	if len(frame) < Header_Size {
		return
	}
	if frame[7]&Flag_ChecksumDisabled != 0 {
		return
	}
	binary.LittleEndian.PutUint32(frame[28:32], 0)
	checksum := crc32.ChecksumIEEE(frame)
	binary.LittleEndian.PutUint32(frame[28:32], checksum)
}

// VerifyChecksum recomputes the CRC-32 over frame with the checksum field
// zeroed and compares it to the value stored at frame[28:32].
func VerifyChecksum(frame []byte) bool {
	if len(frame) < Header_Size {
		return false
	}
	if frame[7]&Flag_ChecksumDisabled != 0 {
		return true
	}
	stored := binary.LittleEndian.Uint32(frame[28:32])
	scratch := make([]byte, len(frame))
	copy(scratch, frame)
	binary.LittleEndian.PutUint32(scratch[28:32], 0)
	return crc32.ChecksumIEEE(scratch) == stored
}
