// Copyright (c) 2024 Neomantra Corp

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dawsh2/alphapulse/internal/config"
	"github.com/dawsh2/alphapulse/internal/relay"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

///////////////////////////////////////////////////////////////////////////////

const (
	exitOK                = 0
	exitConfigError       = 1
	exitBindFailure       = 2
	exitProtocolViolation = 4
)

///////////////////////////////////////////////////////////////////////////////

func main() {
	var configFile string
	var strict bool
	var showHelp bool

	pflag.StringVarP(&configFile, "config", "c", "", "Config file (YAML)")
	pflag.BoolVar(&strict, "strict", false, "Exit on any producer protocol violation instead of isolating it")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show help")
	pflag.Parse()

	if showHelp {
		fmt.Fprintf(os.Stdout, "usage: %s [-c config.yaml]\n\nRuns the market-data and signals fan-out relays.\n\n", os.Args[0])
		pflag.PrintDefaults()
		os.Exit(exitOK)
	}

	os.Exit(run(configFile, strict))
}

func run(configFile string, strict bool) int {
	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		return exitConfigError
	}
	logger := config.NewLogger(cfg.Logging)

	if err := os.MkdirAll(cfg.SocketDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		return exitBindFailure
	}

	domains := []struct {
		domain wire.RelayDomain
		path   string
	}{
		{wire.RelayDomain_MarketData, cfg.MarketDataSocket()},
		{wire.RelayDomain_Signals, cfg.SignalsSocket()},
	}

	var servers []*relay.Server
	for _, d := range domains {
		hub := relay.NewHub(d.domain, logger)
		server := relay.NewServer(hub, cfg.MaxMessageBytes, logger)
		if strict {
			server.OnProtocolViolation = func() {
				logger.Error("protocol violation in strict mode")
				os.Exit(exitProtocolViolation)
			}
		}
		if err := server.Listen(d.path); err != nil {
			fmt.Fprintf(os.Stderr, "error: bind %s: %s\n", d.path, err.Error())
			return exitBindFailure
		}
		go hub.Run()
		go server.Serve()
		logger.Info("relay listening", "domain", d.domain.String(), "socket", d.path)
		servers = append(servers, server)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")
	for _, server := range servers {
		server.Close()
	}
	return exitOK
}
