// Package root contains the root command for the application.
package root

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"finsight/statement-hub/internal/config"
	"finsight/statement-hub/internal/logging"
)

var (
	// Log is the shared logger instance for commands.
	Log = logrus.New()

	// Cfg is the loaded application configuration, populated before
	// any command runs.
	Cfg *config.Config

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "statement-hub",
		Short: "Process bank and credit card statement exports into credit and tax views.",
		Long: `statement-hub ingests CSV and PDF statement exports, normalizes and
classifies their transactions, and serves aggregated credit behavior
and tax views over HTTP.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to statement-hub!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv(Log)

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			Cfg = cfg

			if override, _ := cmd.Flags().GetString("log-level"); override != "" {
				cfg.Log.Level = override
			}
			level, err := logrus.ParseLevel(cfg.Log.Level)
			if err != nil {
				level = logrus.InfoLevel
			}
			Log.SetLevel(level)
			if cfg.Log.Format == "json" {
				Log.SetFormatter(&logrus.JSONFormatter{})
			} else {
				Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			}
			return nil
		},
	}
)

// Init sets up persistent flags on the root command.
func Init() {
	Cmd.PersistentFlags().String("log-level", "", "override the configured log level")
}

// Logger returns the shared logger wrapped in the logging abstraction.
func Logger() logging.Logger {
	return logging.NewLogrusAdapterFromLogger(Log)
}
