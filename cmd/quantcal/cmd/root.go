// Package cmd implements the quantcal command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"quantcal/internal/config"
	"quantcal/internal/util"
)

var (
	cfgFile   string
	serverURL string
	logLevel  string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "quantcal",
	Short: "Trading calendar for bar timestamps and sessions",
	Long: `quantcal answers trading calendar questions: is a market open,
when does the current session close, which bar does a tick belong to.

Queries run against the local store unless --server points at a
quantcal-server. "quantcal update" refreshes the store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = "config/quantcal.yaml"
			if p := os.Getenv("QUANTCAL_CONFIG"); p != "" {
				path = p
			}
		}
		c, err := config.Load(path)
		if err != nil {
			if cfgFile != "" || !os.IsNotExist(err) {
				return fmt.Errorf("loading config: %w", err)
			}
			// No config file: run on presets and environment only.
			c = config.Default()
		}
		if logLevel != "" {
			c.Logging.Level = logLevel
		}
		cfg = c
		logger = util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
		util.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config/quantcal.yaml or $QUANTCAL_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "quantcal-server base URL, e.g. http://localhost:8080")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}
