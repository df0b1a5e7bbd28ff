// Copyright (c) 2024 Neomantra Corp

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dawsh2/alphapulse/internal/archive"
	"github.com/dawsh2/alphapulse/internal/config"
	"github.com/dawsh2/alphapulse/internal/transport"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

///////////////////////////////////////////////////////////////////////////////

var (
	configFile string
	domainName string

	forceZstd = false
)

func requireNoError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}

///////////////////////////////////////////////////////////////////////////////

func main() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (YAML)")

	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVarP(&domainName, "domain", "d", "market_data", "Relay domain (market_data or signals)")
	recordCmd.Flags().BoolVarP(&forceZstd, "zstd", "z", false, "Force zstd output, irrespective of filename suffix")

	rootCmd.AddCommand(catCmd)
	catCmd.Flags().BoolVarP(&forceZstd, "zstd", "z", false, "Input is zstd (useful for handling zstd on stdin)")

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

///////////////////////////////////////////////////////////////////////////////

var rootCmd = &cobra.Command{
	Use:   "alphapulse-capture",
	Short: "alphapulse-capture records and replays relay frame streams",
	Long:  "alphapulse-capture records and replays relay frame streams",
}

///////////////////////////////////////////////////////////////////////////////

var recordCmd = &cobra.Command{
	Use:   "record <file>",
	Short: "Attach to a relay as a consumer and append every frame to a capture file",
	Long:  "Attach to a relay as a consumer and append every frame to a capture file. Use '-' for stdout and a .zst suffix for compression.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireNoError(record(args[0]))
	},
}

func record(destFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Logging)

	domain := wire.RelayDomain_MarketData
	socketPath := cfg.MarketDataSocket()
	if domainName == "signals" {
		domain = wire.RelayDomain_Signals
		socketPath = cfg.SignalsSocket()
	}

	writer, writerCloser, err := archive.MakeCompressedWriter(destFile, forceZstd)
	if err != nil {
		return err
	}
	defer writerCloser()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rc := transport.NewReconnectingConn(
		func(ctx context.Context) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		transport.WithLogger(logger),
		transport.WithMaxMessageBytes(cfg.MaxMessageBytes),
		transport.WithOnReconnect(func(fc *transport.FramedConn) error {
			return fc.WriteMessage(transport.Hello(domain))
		}),
	)

	var frames, bytes uint64
	for {
		fc, err := rc.Connect(ctx)
		if err != nil {
			logger.Info("capture done", "frames", frames, "bytes", bytes)
			return nil
		}
		for {
			frame, err := fc.ReadMessage()
			if err != nil {
				fc.Close()
				break
			}
			if _, err := writer.Write(frame); err != nil {
				fc.Close()
				return err
			}
			frames++
			bytes += uint64(len(frame))
		}
		if ctx.Err() != nil {
			logger.Info("capture done", "frames", frames, "bytes", bytes)
			return nil
		}
	}
}

///////////////////////////////////////////////////////////////////////////////

var catCmd = &cobra.Command{
	Use:   "cat file...",
	Short: "Print a capture file's frames as JSON lines",
	Long:  "Print a capture file's frames as JSON lines",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		for _, sourceFile := range args {
			if err := catFile(sourceFile); err != nil {
				fmt.Fprintf(os.Stderr, "error: reading %s: %s\n", sourceFile, err.Error())
			}
		}
	},
}

func catFile(sourceFile string) error {
	reader, readerCloser, err := archive.MakeCompressedReader(sourceFile, forceZstd)
	if err != nil {
		return err
	}
	if readerCloser != nil {
		defer readerCloser.Close()
	}

	visitor := archive.NewJsonWriterVisitor(os.Stdout)
	scanner := archive.NewFrameScanner(reader, 0)
	for scanner.Next() {
		if err := scanner.Visit(visitor); err != nil {
			return err
		}
	}
	if err := scanner.Error(); err != nil && err != io.EOF {
		return err
	}
	return nil
}
