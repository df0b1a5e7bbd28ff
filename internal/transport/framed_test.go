// Copyright (c) 2024 Neomantra Corp

package transport_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/dawsh2/alphapulse/internal/transport"
	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

func tradeFrame(seq uint64) []byte {
	t := &wire.Trade{
		InstrumentId: identity.NewCexSpot(identity.Venue_Kraken, "BTC-USD"),
		Price:        45_123_50000000,
		Volume:       12_345_678,
		Side:         wire.Side_Buy,
	}
	return wire.EncodeMessage[wire.Trade](wire.Header{
		RelayDomain: wire.RelayDomain_MarketData,
		Source:      wire.Source_CexAdapter,
		Sequence:    seq,
		TimestampNs: 1_700_000_000_000_000_000,
	}, t)
}

func TestReadWriteRoundTrip(t *testing.T) {
	g := NewWithT(t)

	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	writer := transport.NewFramedConn(srv, 0)
	reader := transport.NewFramedConn(cli, 0)

	frame := tradeFrame(1)
	errCh := make(chan error, 1)
	go func() { errCh <- writer.WriteMessage(frame) }()

	got, err := reader.ReadMessage()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(<-errCh).NotTo(HaveOccurred())
	g.Expect(got).To(Equal(frame))
}

func TestResyncSkipsGarbage(t *testing.T) {
	g := NewWithT(t)

	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	frameA := tradeFrame(1)
	frameB := tradeFrame(2)
	garbage := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}

	go func() {
		srv.Write(frameA)
		srv.Write(garbage)
		srv.Write(frameB)
	}()

	reader := transport.NewFramedConn(cli, 0)

	gotA, err := reader.ReadMessage()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(gotA).To(Equal(frameA))

	gotB, err := reader.ReadMessage()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(gotB).To(Equal(frameB))
	g.Expect(reader.ResyncCount()).To(Equal(uint64(len(garbage))))
}

func TestOversizedPayloadRejected(t *testing.T) {
	g := NewWithT(t)

	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	h := wire.Header{
		RelayDomain: wire.RelayDomain_MarketData,
		MessageType: wire.MessageType_Trade,
		PayloadSize: 128,
	}
	header := make([]byte, wire.Header_Size)
	wire.PutHeader(header, h)

	go func() { srv.Write(header) }()

	reader := transport.NewFramedConn(cli, wire.Header_Size+64)
	_, err := reader.ReadMessage()
	g.Expect(err).To(HaveOccurred())
	var oversized *wire.OversizedPayload
	g.Expect(err).To(BeAssignableToTypeOf(oversized))
}

func TestReconnectRetriesUntilSuccess(t *testing.T) {
	g := NewWithT(t)

	attempts := 0
	errDialFailed := errors.New("dial failed")

	srv, cli := net.Pipe()
	defer srv.Close()

	rc := transport.NewReconnectingConn(func(ctx context.Context) (net.Conn, error) {
		attempts++
		if attempts < 2 {
			return nil, errDialFailed
		}
		return cli, nil
	}, transport.WithBackoff(time.Millisecond, 2*time.Millisecond))

	fc, err := rc.Connect(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(fc).NotTo(BeNil())
	g.Expect(attempts).To(Equal(2))
}
