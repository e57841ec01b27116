/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/h2overflow/apiserver/config"
	"github.com/h2overflow/apiserver/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "h2overflow",
	Short: "Water-saving activity tracker API",
	Long: `h2overflow records water-saving activities and reports how much
water each user saved over the current month.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads configuration and builds the process logger from it.
func loadConfig() (config.Config, zerolog.Logger) {
	cfg := config.LoadConfig()
	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat)
}
