// Copyright (c) 2024 Neomantra Corp
//
// FramedConn implements the C4 framed-transport read/write path: read
// exactly a header, validate magic, read exactly the declared payload,
// and hand back one contiguous frame. On magic mismatch it resyncs one
// byte at a time rather than trusting payload_size, the same discipline
// dbn-go's DbnScanner.Next() uses for its own length-prefixed framing,
// generalized here to a magic-anchored resync instead of DBN's implicit
// record-length framing.

package transport

import (
	"bufio"
	"errors"
	"io"
	"net"

	"github.com/dawsh2/alphapulse/pkg/wire"
)

// DefaultReadBufferSize is the per-connection read buffer.
const DefaultReadBufferSize = 64 * 1024

// FramedConn wraps a net.Conn (Unix-domain stream in production, net.Pipe
// in tests) with message-oriented read/write.
type FramedConn struct {
	conn            net.Conn
	r               *bufio.Reader
	maxMessageBytes int
	resyncCount     uint64
}

// NewFramedConn wraps conn. maxMessageBytes bounds total frame size
// (header + payload); zero or negative uses wire.DefaultMaxMessageBytes.
func NewFramedConn(conn net.Conn, maxMessageBytes int) *FramedConn {
	if maxMessageBytes <= 0 {
		maxMessageBytes = wire.DefaultMaxMessageBytes
	}
	return &FramedConn{
		conn:            conn,
		r:               bufio.NewReaderSize(conn, DefaultReadBufferSize),
		maxMessageBytes: maxMessageBytes,
	}
}

// Conn returns the underlying net.Conn, e.g. for deadlines or RemoteAddr.
func (f *FramedConn) Conn() net.Conn { return f.conn }

// ResyncCount reports how many bytes have been discarded while scanning
// for the magic anchor since this connection was created.
func (f *FramedConn) ResyncCount() uint64 { return f.resyncCount }

// Close closes the underlying connection.
func (f *FramedConn) Close() error { return f.conn.Close() }

// ReadMessage reads exactly one frame. On magic mismatch it enters resync
// mode: discard one byte, shift the header window, and retry until the
// next 0xDEADBEEF or the stream ends. Returns wire.ErrConnectionClosed on
// a clean EOF (mid-header or mid-resync).
func (f *FramedConn) ReadMessage() ([]byte, error) {
	header := make([]byte, wire.Header_Size)
	if _, err := io.ReadFull(f.r, header); err != nil {
		return nil, wrapEOF(err)
	}

	for {
		h, err := wire.DecodeHeader(header)
		if err == nil {
			return f.readPayload(header, h)
		}
		var invalidMagic *wire.InvalidMagic
		if !errors.As(err, &invalidMagic) {
			return nil, err
		}
		copy(header, header[1:])
		b, rerr := f.r.ReadByte()
		if rerr != nil {
			return nil, wrapEOF(rerr)
		}
		header[wire.Header_Size-1] = b
		f.resyncCount++
	}
}

func (f *FramedConn) readPayload(header []byte, h wire.Header) ([]byte, error) {
	if int(h.PayloadSize) > f.maxMessageBytes-wire.Header_Size {
		return nil, &wire.OversizedPayload{Declared: int(h.PayloadSize), Max: f.maxMessageBytes}
	}
	frame := make([]byte, wire.Header_Size+int(h.PayloadSize))
	copy(frame, header)
	if h.PayloadSize > 0 {
		if _, err := io.ReadFull(f.r, frame[wire.Header_Size:]); err != nil {
			return nil, wrapEOF(err)
		}
	}
	return frame, nil
}

func wrapEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return wire.ErrConnectionClosed
	}
	return err
}

// WriteMessage writes a fully pre-serialized frame in one call, honoring the
// "producers pre-serialize into a contiguous buffer" contract.
func (f *FramedConn) WriteMessage(frame []byte) error {
	for written := 0; written < len(frame); {
		n, err := f.conn.Write(frame[written:])
		if err != nil {
			return err
		}
		written += n
	}
	return nil
}
