package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/secretsync/internal/config"
)

func NewExportCommand(cfg *config.Config) *cobra.Command {
	var (
		envName string
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump an environment's stored secrets to JSON files",
		Long: `Read the environment's secret store and write one <application>.json
per declared application into the output directory. Declared secrets
the store does not hold are written as null.

The output contains plaintext secret values; files are created with
mode 0600.

Examples:
  secretsync export --env idfdev --out ./idfdev-backup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newService(cfg).Export(cmd.Context(), envName, outDir)
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (required)")
	_ = cmd.MarkFlagRequired("env")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
