// Copyright (c) 2024 Neomantra Corp

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dawsh2/alphapulse/internal/archive"
	"github.com/dawsh2/alphapulse/internal/config"
	"github.com/dawsh2/alphapulse/internal/schema"
	"github.com/dawsh2/alphapulse/internal/transport"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

///////////////////////////////////////////////////////////////////////////////

var (
	configFile string
	destDir    string
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
	recordCmd.Flags().StringVarP(&destDir, "dest", "d", ".", "Destination directory for parquet files")

	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&destDir, "dest", "d", ".", "Archive directory to query")

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

///////////////////////////////////////////////////////////////////////////////

var rootCmd = &cobra.Command{
	Use:   "alphapulse-archive",
	Short: "alphapulse-archive persists the trade stream to parquet and queries it",
	Long:  "alphapulse-archive persists the trade stream to parquet and queries it",
}

///////////////////////////////////////////////////////////////////////////////

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Attach to the market-data relay and archive trades to parquet",
	Long:  "Attach to the market-data relay and archive trades to parquet, one file per session",
	Run: func(cmd *cobra.Command, args []string) {
		requireNoError(record())
	},
}

func record() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Logging)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	destFile := filepath.Join(destDir,
		fmt.Sprintf("trades-%s.parquet", time.Now().UTC().Format("20060102-150405")))
	outfile, err := os.Create(destFile)
	if err != nil {
		return err
	}
	defer outfile.Close()

	cache := schema.New()
	pw := archive.NewParquetTradeWriter(outfile, cache)
	defer pw.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rc := transport.NewReconnectingConn(
		func(ctx context.Context) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", cfg.MarketDataSocket())
		},
		transport.WithLogger(logger),
		transport.WithMaxMessageBytes(cfg.MaxMessageBytes),
		transport.WithOnReconnect(func(fc *transport.FramedConn) error {
			return fc.WriteMessage(transport.Hello(wire.RelayDomain_MarketData))
		}),
	)

	var rows uint64
	for {
		fc, err := rc.Connect(ctx)
		if err != nil {
			logger.Info("archive done", "rows", rows, "file", destFile)
			return nil
		}
		for {
			frame, err := fc.ReadMessage()
			if err != nil {
				fc.Close()
				break
			}
			h, err := wire.DecodeHeader(frame)
			if err != nil {
				continue
			}
			switch h.MessageType {
			case wire.MessageType_InstrumentDiscovered:
				if record, err := wire.DecodePayload[wire.InstrumentDiscovered](frame, h); err == nil {
					if err := cache.OnInstrumentDiscovered(record); err != nil {
						logger.Warn("discovery conflict", "error", err)
					}
				}
			case wire.MessageType_Trade:
				if record, err := wire.DecodePayload[wire.Trade](frame, h); err == nil {
					if err := pw.WriteTrade(h, record); err != nil {
						fc.Close()
						return err
					}
					rows++
				}
			}
		}
		if ctx.Err() != nil {
			logger.Info("archive done", "rows", rows, "file", destFile)
			return nil
		}
	}
}

///////////////////////////////////////////////////////////////////////////////

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run SQL against the archived trades (the 'trades' view)",
	Long:  "Run SQL against the archived trades (the 'trades' view), e.g. SELECT symbol, count(*) FROM trades GROUP BY symbol",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireNoError(query(args[0]))
	},
}

func query(sql string) error {
	store, err := archive.OpenStore(destDir)
	if err != nil {
		return err
	}
	defer store.Close()

	columns, rows, err := store.Query(sql)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for i, col := range columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
