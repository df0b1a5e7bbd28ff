// Copyright (c) 2024 Neomantra Corp
//
// Record/RecordPtr mirror dbn-go's generic decode constraint: a payload
// type T is decoded through a *T that knows its own MessageType and size
// and can fill itself from a raw byte window with no allocation.

package wire

// Record is the marker interface every payload type implements.
type Record interface {
	MessageType() MessageType
}

// RecordPtr constrains *T for DecodePayload: it must be a pointer to a
// Record that can report its fixed encoded size and fill itself from raw
// wire bytes.
type RecordPtr[T any] interface {
	*T
	Record

	PayloadSize() int
	FillRaw([]byte) error
	PutRaw([]byte)
}

// DecodePayload parses frame[Header_Size:] into a *T, verifying that h's
// MessageType matches T's. It never allocates beyond the returned *T.
func DecodePayload[T any, TP RecordPtr[T]](frame []byte, h Header) (*T, error) {
	var rp TP = new(T)
	if rp.MessageType() != h.MessageType {
		return nil, unexpectedMessageTypeError(h.MessageType, rp.MessageType())
	}
	body := frame[Header_Size:]
	if len(body) < rp.PayloadSize() {
		return nil, &TruncatedPayload{Need: rp.PayloadSize(), Got: len(body)}
	}
	if err := rp.FillRaw(body); err != nil {
		return nil, err
	}
	return rp, nil
}

// EncodeMessage writes header(32) + payload into a freshly allocated
// frame, computing the checksum unless Flag_ChecksumDisabled is set.
func EncodeMessage[T any, TP RecordPtr[T]](h Header, payload TP) []byte {
	h.MessageType = payload.MessageType()
	h.PayloadSize = uint32(payload.PayloadSize())
	frame := make([]byte, Header_Size+int(h.PayloadSize))
	PutHeader(frame, h)
	payload.PutRaw(frame[Header_Size:])
	PatchChecksum(frame)
	return frame
}
