// Copyright (c) 2024 Neomantra Corp
//
// FrameScanner walks a capture file (or any raw frame stream) one frame
// at a time: the file-side twin of transport.FramedConn, with the same
// magic-anchored resync so a truncated capture tail or a corrupted
// middle does not poison the rest of the file.

package archive

import (
	"bufio"
	"errors"
	"io"

	"github.com/dawsh2/alphapulse/pkg/wire"
)

// Default buffer size for decoding
const defaultScanBufferSize = 64 * 1024

// FrameScanner scans a raw stream of protocol frames.
type FrameScanner struct {
	buffReader *bufio.Reader // the buffered reader we scan over
	maxBytes   int           // frame size bound
	lastError  error         // the last error encountered
	lastFrame  []byte        // last frame read, waiting for decode
	lastHeader wire.Header   // decoded header of the last frame
	resyncs    uint64        // bytes discarded hunting for magic
}

// NewFrameScanner creates a FrameScanner over sourceReader.
// maxMessageBytes <= 0 uses the wire default.
func NewFrameScanner(sourceReader io.Reader, maxMessageBytes int) *FrameScanner {
	if maxMessageBytes <= 0 {
		maxMessageBytes = wire.DefaultMaxMessageBytes
	}
	return &FrameScanner{
		buffReader: bufio.NewReaderSize(sourceReader, defaultScanBufferSize),
		maxBytes:   maxMessageBytes,
	}
}

// Error returns the last error from Next(). May be io.EOF.
func (s *FrameScanner) Error() error { return s.lastError }

// LastFrame returns the raw bytes of the last frame read.
func (s *FrameScanner) LastFrame() []byte { return s.lastFrame }

// LastHeader returns the decoded header of the last frame read.
func (s *FrameScanner) LastHeader() wire.Header { return s.lastHeader }

// ResyncCount reports bytes discarded while hunting for the magic anchor.
func (s *FrameScanner) ResyncCount() uint64 { return s.resyncs }

// Next reads the next frame from the stream, resyncing past garbage.
func (s *FrameScanner) Next() bool {
	header := make([]byte, wire.Header_Size)
	if _, err := io.ReadFull(s.buffReader, header); err != nil {
		s.lastError = err
		return false
	}

	for {
		h, err := wire.DecodeHeader(header)
		if err == nil {
			if int(h.PayloadSize) > s.maxBytes-wire.Header_Size {
				s.lastError = &wire.OversizedPayload{Declared: int(h.PayloadSize), Max: s.maxBytes}
				return false
			}
			frame := make([]byte, wire.Header_Size+int(h.PayloadSize))
			copy(frame, header)
			if h.PayloadSize > 0 {
				if _, err := io.ReadFull(s.buffReader, frame[wire.Header_Size:]); err != nil {
					s.lastError = err
					return false
				}
			}
			s.lastFrame = frame
			s.lastHeader = h
			s.lastError = nil
			return true
		}
		var invalidMagic *wire.InvalidMagic
		if !errors.As(err, &invalidMagic) {
			s.lastError = err
			return false
		}
		copy(header, header[1:])
		b, rerr := s.buffReader.ReadByte()
		if rerr != nil {
			s.lastError = rerr
			return false
		}
		header[wire.Header_Size-1] = b
		s.resyncs++
	}
}

// Visit decodes the current frame and dispatches it to the visitor.
func (s *FrameScanner) Visit(visitor wire.Visitor) error {
	if s.lastFrame == nil {
		return wire.ErrConnectionClosed
	}
	return wire.Visit(s.lastFrame, s.lastHeader, visitor)
}

// ReadFramesToSlice reads an entire frame stream, decoding every frame of
// payload type R into a slice. EOF is not propagated as an error.
func ReadFramesToSlice[R any, RP wire.RecordPtr[R]](reader io.Reader) ([]R, error) {
	var records []R
	scanner := NewFrameScanner(reader, 0)
	for scanner.Next() {
		var rp RP = new(R)
		if scanner.LastHeader().MessageType != rp.MessageType() {
			continue
		}
		r, err := wire.DecodePayload[R, RP](scanner.LastFrame(), scanner.LastHeader())
		if err != nil {
			return records, err
		}
		records = append(records, *r)
	}
	if err := scanner.Error(); err != nil && err != io.EOF {
		return records, err
	}
	return records, nil
}
