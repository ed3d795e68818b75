package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/rulekeeper/internal/core/logging"
)

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "rulekeeper",
	Short: "RuleKeeper rule store and evaluation service",
	Long: `RuleKeeper stores named JSON predicates and evaluates batches of them
against JSON documents over HTTP and gRPC.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "seed database URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger from the persistent flags.
func newLogger() (*zap.Logger, error) {
	return logging.New(logLevel, logFormat)
}
