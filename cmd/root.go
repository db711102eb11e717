// Package cmd provides the previewkit command-line interface.
//
// Configuration precedence, highest first: command-line flags,
// PREVIEWKIT_<SECTION>_<OPTION> environment variables, the YAML config
// file named by --config, built-in defaults.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/storefront-preview/previewkit/internal/config"
	"github.com/storefront-preview/previewkit/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "previewkit",
	Short: "Local storefront theme preview simulator",
	Long: `previewkit renders storefront themes locally against simulated
tenant data, without the live platform.

Quick start:
  previewkit seed --fixtures demo.yaml   Load demo tenants and themes
  previewkit serve                       Start the preview server`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
}

// loadConfig reads the effective configuration for a command run.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) logging.Logger {
	level := logging.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = cfg.Log.Format
	return logging.NewLogger(lc)
}
