package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/secretsync/cmd/secretsync/commands"
	"github.com/systmms/secretsync/internal/config"
	"github.com/systmms/secretsync/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configDir string
		noColor   bool
		debug     bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "secretsync",
		Short: "Application secret lifecycle - declare, resolve, reconcile",
		Long: `secretsync reads per-environment secret declarations, resolves every
value (static, copied, or generated), and audits or reconciles the
environment's secret store against them.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			cfg.Dir = configDir
			cfg.Logger = logger
		},
	}

	rootCmd.PersistentFlags().StringVar(&configDir, "config", "environments", "Environment configuration directory")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewListCommand(cfg),
		commands.NewAuditCommand(cfg),
		commands.NewSyncCommand(cfg),
		commands.NewStaticCommand(cfg),
		commands.NewStaticTemplateCommand(cfg),
		commands.NewExportCommand(cfg),
		commands.NewLoginCommand(cfg),
	)

	return rootCmd.Execute()
}
