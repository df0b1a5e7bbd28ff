// Copyright (c) 2024 Neomantra Corp

package relay

import (
	"errors"
	"log/slog"
	"net"
	"os"

	"github.com/dawsh2/alphapulse/internal/sequence"
	"github.com/dawsh2/alphapulse/internal/transport"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

// Server listens on one Unix-domain socket and feeds every accepted
// connection into its Hub after classifying it as producer or consumer.
type Server struct {
	hub             *Hub
	logger          *slog.Logger
	maxMessageBytes int
	sources         *sequence.SourceTracker

	// OnProtocolViolation, if set, is invoked after a producer is closed
	// for a protocol violation (malformed frame, cross-domain traffic,
	// sequence regression). Strict-mode daemons use it to terminate the
	// process; the default is to carry on serving the healthy peers.
	OnProtocolViolation func()

	listener net.Listener
}

// NewServer creates a Server for hub. maxMessageBytes bounds accepted
// frames; zero uses wire.DefaultMaxMessageBytes.
func NewServer(hub *Hub, maxMessageBytes int, logger *slog.Logger) *Server {
	return &Server{
		hub:             hub,
		logger:          logger.With("component", "relay-server", "domain", hub.Domain().String()),
		maxMessageBytes: maxMessageBytes,
		sources:         sequence.NewSourceTracker(),
	}
}

// Listen binds socketPath, removing a stale socket file left by a prior
// crashed instance first (the conventional Unix-socket restart dance).
func (s *Server) Listen(socketPath string) error {
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		ln.Close()
		return err
	}
	s.listener = ln
	return nil
}

// Serve runs the accept loop until the listener is closed. Callers
// typically run Serve and hub.Run() in separate goroutines.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// Close shuts down the listener; in-flight connections are unaffected.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	fc := transport.NewFramedConn(conn, s.maxMessageBytes)
	peer := newPeer(s.hub, fc)

	first, err := fc.ReadMessage()
	if err != nil {
		s.logger.Debug("peer closed before hello", "error", err)
		fc.Close()
		return
	}

	// A zero-length hello (header only, no payload) identifies a consumer;
	// anything else is the producer's first real message.
	if len(first) == wire.Header_Size {
		s.runConsumer(peer)
		return
	}

	if !s.validateAndBroadcast(first, conn) {
		fc.Close()
		s.violation()
		return
	}
	if h, err := wire.DecodeHeader(first); err == nil {
		peer.isProducer = true
		peer.sourceKey = SourceIdentity{Source: uint8(h.Source), RelayDomain: uint8(h.RelayDomain)}
	}
	s.runProducer(peer)
}

func (s *Server) runConsumer(peer *Peer) {
	s.hub.register <- peer
	defer func() { s.hub.unregister <- peer }()

	go peer.writePump(s.logger)

	// Consumers are write-only from the relay's point of view; drain their
	// socket so a well-behaved idle consumer's TCP/Unix buffers never back
	// up, and notice when it disconnects.
	for {
		if _, err := peer.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) runProducer(peer *Peer) {
	for {
		frame, err := peer.conn.ReadMessage()
		if err != nil {
			s.forgetProducer(peer)
			peer.conn.Close()
			return
		}
		if !s.validateAndBroadcast(frame, peer.conn.Conn()) {
			s.forgetProducer(peer)
			peer.conn.Close()
			s.violation()
			return
		}
	}
}

func (s *Server) violation() {
	if s.OnProtocolViolation != nil {
		s.OnProtocolViolation()
	}
}

func (s *Server) forgetProducer(peer *Peer) {
	if peer.isProducer {
		s.sources.Forget(sequence.SourceKey{Source: peer.sourceKey.Source, RelayDomain: peer.sourceKey.RelayDomain})
	}
}

// validateAndBroadcast applies the relay's validation contract:
// magic is already guaranteed by FramedConn.ReadMessage; this checks
// domain match and producer sequence monotonicity, then hands the frame
// to the hub verbatim. It never touches TLV bodies or recomputes
// checksums.
func (s *Server) validateAndBroadcast(frame []byte, conn net.Conn) bool {
	header, err := wire.DecodeHeader(frame)
	if err != nil {
		s.logger.Warn("dropping malformed frame", "error", err, "remote", conn.RemoteAddr())
		return false
	}
	if header.RelayDomain != s.hub.Domain() {
		s.logger.Warn("rejecting cross-domain frame", "got", header.RelayDomain, "want", s.hub.Domain())
		return false
	}
	key := sequence.SourceKey{Source: uint8(header.Source), RelayDomain: uint8(header.RelayDomain)}
	if !s.sources.Observe(key, header.Sequence) {
		s.logger.Warn("sequence regression, closing producer", "source", header.Source, "seq", header.Sequence)
		return false
	}

	s.hub.Broadcast(frame)
	return true
}
