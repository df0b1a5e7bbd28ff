// Copyright (c) 2024 Neomantra Corp
//
// Reconnect/backoff and bootstrap-on-reconnect, modeled on dbn-go's
// live.LiveClient dial+handshake (live/live.go, live/gateway.go) for the
// connection lifecycle, and the Polymarket reference repo's WSFeed.Run
// (internal/exchange/ws.go) for the exponential-backoff reconnect loop
// shape itself.

package transport

import (
	"context"
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"time"
)

const (
	DefaultMinBackoff = 100 * time.Millisecond
	DefaultMaxBackoff = 5 * time.Second
)

// DialFunc establishes a fresh net.Conn, e.g. net.Dial("unix", path).
type DialFunc func(ctx context.Context) (net.Conn, error)

// OnReconnect is invoked with the freshly-dialed FramedConn before it is
// exposed to callers, so a producer can re-emit cached InstrumentDiscovered
// records to bootstrap a newly (re)connected consumer.
type OnReconnect func(*FramedConn) error

// ReconnectingConn maintains a FramedConn across disconnects, backing off
// 100ms -> 5s with jitter between dial attempts.
type ReconnectingConn struct {
	dial            DialFunc
	maxMessageBytes int
	minBackoff      time.Duration
	maxBackoff      time.Duration
	onReconnect     OnReconnect
	logger          *slog.Logger

	mu      sync.Mutex
	current *FramedConn
}

// Option configures a ReconnectingConn.
type Option func(*ReconnectingConn)

func WithBackoff(min, max time.Duration) Option {
	return func(r *ReconnectingConn) { r.minBackoff, r.maxBackoff = min, max }
}

func WithOnReconnect(fn OnReconnect) Option {
	return func(r *ReconnectingConn) { r.onReconnect = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *ReconnectingConn) { r.logger = logger }
}

func WithMaxMessageBytes(n int) Option {
	return func(r *ReconnectingConn) { r.maxMessageBytes = n }
}

// NewReconnectingConn creates a ReconnectingConn that is not yet connected;
// call Connect to dial for the first time.
func NewReconnectingConn(dial DialFunc, opts ...Option) *ReconnectingConn {
	r := &ReconnectingConn{
		dial:       dial,
		minBackoff: DefaultMinBackoff,
		maxBackoff: DefaultMaxBackoff,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect blocks, retrying with exponential backoff and jitter, until a
// connection succeeds or ctx is cancelled.
func (r *ReconnectingConn) Connect(ctx context.Context) (*FramedConn, error) {
	backoff := r.minBackoff
	for {
		conn, err := r.dial(ctx)
		if err == nil {
			fc := NewFramedConn(conn, r.maxMessageBytes)
			if r.onReconnect != nil {
				if rerr := r.onReconnect(fc); rerr != nil {
					fc.Close()
					r.logger.Warn("onReconnect bootstrap failed", "error", rerr)
					err = rerr
				}
			}
			if err == nil {
				r.mu.Lock()
				r.current = fc
				r.mu.Unlock()
				return fc, nil
			}
		} else {
			r.logger.Warn("dial failed, retrying", "error", err, "backoff", backoff)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(jitter(backoff)):
		}

		backoff *= 2
		if backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}
}

// Current returns the most recently established FramedConn, or nil.
func (r *ReconnectingConn) Current() *FramedConn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func jitter(d time.Duration) time.Duration {
	// +/- 20% jitter around d.
	delta := time.Duration(rand.Int63n(int64(d) / 5 * 2))
	return d - time.Duration(int64(d)/5) + delta
}
