// Copyright (c) 2024 Neomantra Corp

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/onsi/gomega"
)

func TestDefaults(t *testing.T) {
	g := gomega.NewWithT(t)

	cfg, err := Load("")
	g.Expect(err).To(gomega.BeNil())
	g.Expect(cfg.SocketDir).To(gomega.Equal(DefaultSocketDir))
	g.Expect(cfg.Checksums).To(gomega.Equal(ChecksumsStartup))
	g.Expect(cfg.MarketDataSocket()).To(gomega.Equal("/tmp/alphapulse/market_data.sock"))
	g.Expect(cfg.SignalsSocket()).To(gomega.Equal("/tmp/alphapulse/signals.sock"))
	g.Expect(cfg.RingPath("trades")).To(gomega.Equal("/tmp/alphapulse/trades.ring"))
}

func TestEnvOverrides(t *testing.T) {
	g := gomega.NewWithT(t)

	t.Setenv("RELAY_SOCKET_DIR", "/run/ap")
	t.Setenv("MAX_MESSAGE_BYTES", "131072")
	t.Setenv("RING_CAPACITY_TRADES", "4096")
	t.Setenv("CHECKSUMS", "off")

	cfg, err := Load("")
	g.Expect(err).To(gomega.BeNil())
	g.Expect(cfg.SocketDir).To(gomega.Equal("/run/ap"))
	g.Expect(cfg.MaxMessageBytes).To(gomega.Equal(131072))
	g.Expect(cfg.RingCapacityTrades).To(gomega.Equal(4096))
	g.Expect(cfg.Checksums).To(gomega.Equal(ChecksumsOff))
	g.Expect(cfg.MarketDataSocket()).To(gomega.Equal("/run/ap/market_data.sock"))
}

func TestYamlFileWithEnvWinning(t *testing.T) {
	g := gomega.NewWithT(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
socket_dir: /var/run/alphapulse
checksums: on
venues:
  coinbase:
    symbols: ["BTC-USD", "ETH-USD"]
  uniswap_v3:
    rpc_url: wss://polygon-rpc.example/ws
    chain: polygon
`
	g.Expect(os.WriteFile(path, []byte(yaml), 0644)).To(gomega.Succeed())
	t.Setenv("CHECKSUMS", "startup")

	cfg, err := Load(path)
	g.Expect(err).To(gomega.BeNil())
	g.Expect(cfg.SocketDir).To(gomega.Equal("/var/run/alphapulse"))
	g.Expect(cfg.Checksums).To(gomega.Equal(ChecksumsStartup)) // env wins
	g.Expect(cfg.Venues["coinbase"].Symbols).To(gomega.Equal([]string{"BTC-USD", "ETH-USD"}))
	g.Expect(cfg.Venues["uniswap_v3"].Chain).To(gomega.Equal("polygon"))
}

func TestValidateRejectsBadValues(t *testing.T) {
	g := gomega.NewWithT(t)

	cfg := Default()
	cfg.RingCapacityTrades = 1000 // not a power of two
	g.Expect(cfg.Validate()).To(gomega.HaveOccurred())

	cfg = Default()
	cfg.Checksums = "sometimes"
	g.Expect(cfg.Validate()).To(gomega.HaveOccurred())

	cfg = Default()
	cfg.MaxMessageBytes = 8
	g.Expect(cfg.Validate()).To(gomega.HaveOccurred())

	t.Setenv("MAX_MESSAGE_BYTES", "not-a-number")
	_, err := Load("")
	g.Expect(err).To(gomega.HaveOccurred())
}
