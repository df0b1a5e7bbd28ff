// Copyright (c) 2024 Neomantra Corp
//
// TLV extensions let DeFiSignal (and future message kinds) grow new
// optional fields without breaking readers built against an older
// layout: unknown types are always skippable, never fatal.

package wire

// TLV is one {type, length, value} triplet.
type TLV struct {
	Type  TLVType
	Value []byte // length implied by len(Value); max 255
}

const tlvHeaderSize = 2 // type(1) + length(1)

// EncodedTLVsSize returns the total encoded byte width of tlvs.
func EncodedTLVsSize(tlvs []TLV) int {
	n := 0
	for _, t := range tlvs {
		n += tlvHeaderSize + len(t.Value)
	}
	return n
}

// AppendTLVs writes tlvs sequentially into dst, which must be at least
// EncodedTLVsSize(tlvs) bytes.
func AppendTLVs(dst []byte, tlvs []TLV) {
	off := 0
	for _, t := range tlvs {
		dst[off] = uint8(t.Type)
		dst[off+1] = uint8(len(t.Value))
		copy(dst[off+2:off+2+len(t.Value)], t.Value)
		off += tlvHeaderSize + len(t.Value)
	}
}

// ParseTLVs decodes a sequence of TLV triplets from b. A truncated final
// TLV is reported as an error; readers encountering an unknown Type still
// get the triplet back (skip-unknown is the caller's responsibility, not
// the parser's -- the parser never drops data it was able to read).
func ParseTLVs(b []byte) ([]TLV, error) {
	var tlvs []TLV
	off := 0
	for off < len(b) {
		if off+tlvHeaderSize > len(b) {
			return nil, unexpectedBytesError(len(b)-off, tlvHeaderSize)
		}
		typ := TLVType(b[off])
		length := int(b[off+1])
		if off+tlvHeaderSize+length > len(b) {
			return nil, unexpectedBytesError(len(b)-off-tlvHeaderSize, length)
		}
		value := make([]byte, length)
		copy(value, b[off+tlvHeaderSize:off+tlvHeaderSize+length])
		tlvs = append(tlvs, TLV{Type: typ, Value: value})
		off += tlvHeaderSize + length
	}
	return tlvs, nil
}

// Find returns the first TLV of the given type, if any.
func Find(tlvs []TLV, t TLVType) (TLV, bool) {
	for _, tlv := range tlvs {
		if tlv.Type == t {
			return tlv, true
		}
	}
	return TLV{}, false
}
