// Copyright (c) 2024 Neomantra Corp

package archive_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/dawsh2/alphapulse/internal/archive"
	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

func tradeFrame(seq uint64, price int64) []byte {
	trade := &wire.Trade{
		InstrumentId: identity.NewCexSpot(identity.Venue_Kraken, "BTC-USD"),
		Price:        price,
		Volume:       1,
		Side:         wire.Side_Buy,
	}
	return wire.EncodeMessage[wire.Trade](wire.Header{
		RelayDomain: wire.RelayDomain_MarketData,
		Source:      wire.Source_CexAdapter,
		Sequence:    seq,
	}, trade)
}

func TestScannerWalksFrames(t *testing.T) {
	g := NewWithT(t)

	var stream bytes.Buffer
	stream.Write(tradeFrame(1, 100))
	stream.Write(tradeFrame(2, 200))
	stream.Write(tradeFrame(3, 300))

	trades, err := archive.ReadFramesToSlice[wire.Trade](&stream)
	g.Expect(err).To(BeNil())
	g.Expect(trades).To(HaveLen(3))
	g.Expect(trades[2].Price).To(Equal(int64(300)))
}

func TestScannerResyncsPastGarbage(t *testing.T) {
	g := NewWithT(t)

	var stream bytes.Buffer
	stream.Write(tradeFrame(1, 100))
	stream.Write([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}) // 7 junk bytes
	stream.Write(tradeFrame(2, 200))

	scanner := archive.NewFrameScanner(&stream, 0)

	g.Expect(scanner.Next()).To(BeTrue())
	g.Expect(scanner.LastHeader().Sequence).To(Equal(uint64(1)))

	g.Expect(scanner.Next()).To(BeTrue())
	g.Expect(scanner.LastHeader().Sequence).To(Equal(uint64(2)))
	g.Expect(scanner.ResyncCount()).To(Equal(uint64(7)))

	g.Expect(scanner.Next()).To(BeFalse())
	g.Expect(scanner.Error()).To(Equal(io.EOF))
}

func TestScannerRejectsOversizedDeclaredPayload(t *testing.T) {
	g := NewWithT(t)

	frame := tradeFrame(1, 100)
	// forge an oversized declared payload; the scanner must refuse to
	// trust it rather than allocate
	frame[12] = 0xFF
	frame[13] = 0xFF
	frame[14] = 0xFF
	frame[15] = 0x7F

	scanner := archive.NewFrameScanner(bytes.NewReader(frame), 0)
	g.Expect(scanner.Next()).To(BeFalse())
	var oversized *wire.OversizedPayload
	g.Expect(scanner.Error()).To(BeAssignableToTypeOf(oversized))
}

func TestCompressedCaptureRoundTrip(t *testing.T) {
	g := NewWithT(t)

	path := filepath.Join(t.TempDir(), "capture.bin.zst")
	writer, closer, err := archive.MakeCompressedWriter(path, false)
	g.Expect(err).To(BeNil())
	_, err = writer.Write(tradeFrame(1, 100))
	g.Expect(err).To(BeNil())
	_, err = writer.Write(tradeFrame(2, 200))
	g.Expect(err).To(BeNil())
	closer()

	// the file is genuinely zstd-compressed, not raw frames
	raw, err := os.ReadFile(path)
	g.Expect(err).To(BeNil())
	g.Expect(raw[:4]).To(Equal([]byte{0x28, 0xb5, 0x2f, 0xfd}))

	reader, readerCloser, err := archive.MakeCompressedReader(path, false)
	g.Expect(err).To(BeNil())
	if readerCloser != nil {
		defer readerCloser.Close()
	}

	trades, err := archive.ReadFramesToSlice[wire.Trade](reader)
	g.Expect(err).To(BeNil())
	g.Expect(trades).To(HaveLen(2))
	g.Expect(trades[1].Price).To(Equal(int64(200)))
}
