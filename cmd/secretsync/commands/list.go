package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/secretsync/internal/config"
)

func NewListCommand(cfg *config.Config) *cobra.Command {
	var envName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the secrets an environment declares",
		Long: `List every secret declaration for an environment, with its rule kind
and description.

Examples:
  secretsync list --env idfdev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			declarations, err := newService(cfg).List(envName)
			if err != nil {
				return err
			}

			for _, decl := range declarations {
				line := fmt.Sprintf("%-40s %s", decl.Ref(), decl.Kind())
				if decl.Description != "" {
					line += "  " + decl.Description
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}
