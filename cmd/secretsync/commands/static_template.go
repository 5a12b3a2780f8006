package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/secretsync/internal/config"
	dserrors "github.com/systmms/secretsync/internal/errors"
)

func NewStaticTemplateCommand(cfg *config.Config) *cobra.Command {
	var (
		envName string
		outFile string
	)

	cmd := &cobra.Command{
		Use:   "static-template",
		Short: "Generate a fill-in template for an environment's static secrets",
		Long: `Generate a YAML skeleton listing every static secret the environment
requires, with null value placeholders. Fill it in and pass it to audit
or sync with --secrets when no static source is configured.

Examples:
  secretsync static-template --env idfdev
  secretsync static-template --env idfdev --out static.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rendered, err := newService(cfg).StaticTemplate(envName)
			if err != nil {
				return err
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, []byte(rendered), 0o600); err != nil {
					return dserrors.UserError{
						Message:    fmt.Sprintf("Failed to write %s", outFile),
						Details:    err.Error(),
						Err:        err,
					}
				}
				cfg.Logger.Info("Wrote static secrets template for %s to %s", envName, outFile)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	cmd.Flags().StringVar(&outFile, "out", "", "Write the template to a file instead of stdout")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}
