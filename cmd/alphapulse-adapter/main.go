// Copyright (c) 2024 Neomantra Corp

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/dawsh2/alphapulse/internal/config"
	"github.com/dawsh2/alphapulse/internal/lineage"
	"github.com/dawsh2/alphapulse/internal/ringbuf"
	"github.com/dawsh2/alphapulse/internal/schema"
	"github.com/dawsh2/alphapulse/internal/transport"
	"github.com/dawsh2/alphapulse/internal/venue"
	"github.com/dawsh2/alphapulse/internal/venue/balancer"
	"github.com/dawsh2/alphapulse/internal/venue/binance"
	"github.com/dawsh2/alphapulse/internal/venue/coinbase"
	"github.com/dawsh2/alphapulse/internal/venue/curve"
	"github.com/dawsh2/alphapulse/internal/venue/evm"
	"github.com/dawsh2/alphapulse/internal/venue/kraken"
	"github.com/dawsh2/alphapulse/internal/venue/ratelimit"
	"github.com/dawsh2/alphapulse/internal/venue/sushiswap"
	"github.com/dawsh2/alphapulse/internal/venue/uniswapv2"
	"github.com/dawsh2/alphapulse/internal/venue/uniswapv3"
	"github.com/dawsh2/alphapulse/pkg/identity"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

///////////////////////////////////////////////////////////////////////////////

const (
	exitOK               = 0
	exitConfigError      = 1
	exitAlignmentFailure = 3
)

// ringSlotSize covers the largest fixed-size frame the hot path emits
// (header + SwapEvent) with headroom.
const ringSlotSize = 256

var (
	configFile string
	ringName   string
)

///////////////////////////////////////////////////////////////////////////////

func main() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&ringName, "ring", "r", "", "Also publish frames to the named ring buffer (e.g. 'trades')")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitConfigError)
	}
}

///////////////////////////////////////////////////////////////////////////////

var rootCmd = &cobra.Command{
	Use:   "alphapulse-adapter <venue>",
	Short: "alphapulse-adapter streams one venue into the market-data relay",
	Long:  "alphapulse-adapter streams one venue into the market-data relay",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(run(args[0]))
	},
}

// runner is the piece of every adapter the daemon drives.
type runner interface {
	Run(ctx context.Context) error
}

// frameSink fans each emitted frame out to the relay socket and,
// optionally, a shared-memory ring. The ring write happens first and is
// best-effort; losing the socket must not lose the lowest-latency path.
type frameSink struct {
	mu   sync.Mutex
	conn *transport.FramedConn
	ring *ringbuf.Writer
}

func (s *frameSink) setConn(fc *transport.FramedConn) {
	s.mu.Lock()
	s.conn = fc
	s.mu.Unlock()
}

func (s *frameSink) setRing(ring *ringbuf.Writer) {
	s.mu.Lock()
	s.ring = ring
	s.mu.Unlock()
}

func (s *frameSink) WriteMessage(frame []byte) error {
	s.mu.Lock()
	conn, ring := s.conn, s.ring
	s.mu.Unlock()

	if ring != nil && len(frame) <= ringSlotSize {
		ring.Write(frame)
	}
	if conn == nil {
		return wire.ErrConnectionClosed
	}
	return conn.WriteMessage(frame)
}

func run(venueName string) int {
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		return exitConfigError
	}
	logger := config.NewLogger(cfg.Logging)

	venueId, err := identity.ParseVenue(venueName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		return exitConfigError
	}
	vcfg, ok := cfg.Venues[venueName]
	if !ok {
		fmt.Fprintf(os.Stderr, "error: no configuration for venue %q\n", venueName)
		return exitConfigError
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	source := wire.Source_CexAdapter
	if venueId.IsDex() {
		source = wire.Source_DexAdapter
	}
	producer := venue.NewProducer(venue.ProducerConfig{
		Source:  source,
		Domain:  wire.RelayDomain_MarketData,
		Version: 1,
	}, nil, schema.New(), logger)
	tracer := lineage.New(cfg.Lineage)

	sink := &frameSink{}
	producer.SetWriter(sink)

	if ringName != "" {
		ring, err := ringbuf.Create(cfg.RingPath(ringName), cfg.RingCapacityTrades, ringSlotSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
			var alignment *ringbuf.AlignmentFailure
			if errors.As(err, &alignment) {
				return exitAlignmentFailure
			}
			return exitConfigError
		}
		defer ring.Close()
		sink.setRing(ring)
	}

	// The relay connection re-emits cached discoveries on every
	// (re)connect so late consumers can bootstrap.
	rc := transport.NewReconnectingConn(
		func(ctx context.Context) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", cfg.MarketDataSocket())
		},
		transport.WithLogger(logger),
		transport.WithMaxMessageBytes(cfg.MaxMessageBytes),
		transport.WithOnReconnect(func(fc *transport.FramedConn) error {
			sink.setConn(fc)
			// A failed write nils the producer's sink; reinstall it.
			producer.SetWriter(sink)
			return producer.ReplayDiscoveries()
		}),
	)
	if _, err := rc.Connect(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: relay connect: %s\n", err.Error())
		return exitConfigError
	}

	// A failed frame write drops the producer's sink; this loop redials
	// (the OnReconnect hook re-installs the writer and replays discoveries).
	reconnect := make(chan struct{}, 1)
	producer.OnWriteError(func(err error) {
		logger.Warn("relay write failed", "error", err)
		select {
		case reconnect <- struct{}{}:
		default:
		}
	})
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-reconnect:
				if _, err := rc.Connect(ctx); err != nil {
					return
				}
			}
		}
	}()

	adapter, err := buildAdapter(venueId, vcfg, producer, tracer, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		return exitConfigError
	}

	logger.Info("adapter starting", "venue", venueName)
	if err := adapter.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("adapter stopped", "error", err)
		return exitConfigError
	}
	return exitOK
}

func buildAdapter(venueId identity.VenueId, vcfg config.VenueConfig, producer *venue.Producer, tracer *lineage.Tracer, logger *slog.Logger) (runner, error) {
	if venueId.IsDex() {
		if vcfg.RpcURL == "" {
			return nil, fmt.Errorf("venue %s requires rpc_url", venueId)
		}
		chain, err := identity.ParseVenue(vcfg.Chain)
		if err != nil {
			return nil, fmt.Errorf("venue %s: bad chain: %w", venueId, err)
		}
		client, err := ethclient.Dial(vcfg.RpcURL)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", vcfg.RpcURL, err)
		}
		resolver := evm.NewResolver(chain, client, ratelimit.NewLimiter(), producer, logger)

		switch venueId {
		case identity.Venue_UniswapV2:
			return uniswapv2.New(identity.Venue_UniswapV2, client, resolver, producer, tracer, logger), nil
		case identity.Venue_SushiSwap:
			return sushiswap.New(client, resolver, producer, tracer, logger), nil
		case identity.Venue_UniswapV3:
			return uniswapv3.New(client, resolver, producer, tracer, logger), nil
		case identity.Venue_Curve:
			return curve.New(client, resolver, producer, tracer, logger), nil
		case identity.Venue_Balancer:
			return balancer.New(client, resolver, producer, tracer, logger), nil
		}
		return nil, fmt.Errorf("no adapter for DEX venue %s", venueId)
	}

	switch venueId {
	case identity.Venue_Coinbase:
		return coinbase.New(vcfg.URL, vcfg.Symbols, producer, tracer, logger), nil
	case identity.Venue_Kraken:
		return kraken.New(vcfg.URL, vcfg.Symbols, producer, tracer, logger), nil
	case identity.Venue_Binance:
		return binance.New(vcfg.URL, vcfg.RestURL, vcfg.Symbols, producer, tracer, logger), nil
	}
	return nil, fmt.Errorf("no adapter for venue %s", venueId)
}
