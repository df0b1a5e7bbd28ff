// Copyright (c) 2024 Neomantra Corp

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dawsh2/alphapulse/internal/config"
	"github.com/dawsh2/alphapulse/internal/monitor"
)

var configFile string

func main() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (YAML)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "alphapulse-monitor",
	Short: "alphapulse-monitor is a terminal dashboard over the relay buses",
	Long:  "alphapulse-monitor is a terminal dashboard over the relay buses",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
			os.Exit(1)
		}
		logger := config.NewLogger(cfg.Logging)
		if err := monitor.Run(context.Background(), cfg, logger); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}
