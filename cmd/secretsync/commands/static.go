package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/systmms/secretsync/internal/config"
	dserrors "github.com/systmms/secretsync/internal/errors"
	"github.com/systmms/secretsync/internal/secrets"
)

func NewStaticCommand(cfg *config.Config) *cobra.Command {
	var (
		envName string
		outFile string
	)

	cmd := &cobra.Command{
		Use:   "static",
		Short: "Fetch an environment's static secrets from its source",
		Long: `Fetch every static secret the environment declares from its configured
static source and print them as YAML, in the shape the --secrets flag
of audit and sync reads back.

The output contains plaintext secret values. Prefer --out over shell
redirection so the file is created with restrictive permissions.

Examples:
  secretsync static --env idfdev --out static.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			static, err := newService(cfg).StaticSecrets(cmd.Context(), envName)
			if err != nil {
				return err
			}

			rendered, err := yaml.Marshal(revealStatic(static))
			if err != nil {
				return fmt.Errorf("failed to serialize static secrets: %w", err)
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, rendered, 0o600); err != nil {
					return dserrors.UserError{
						Message:    fmt.Sprintf("Failed to write %s", outFile),
						Details:    err.Error(),
						Err:        err,
					}
				}
				cfg.Logger.Info("Wrote static secrets for %s to %s", envName, outFile)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), string(rendered))
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	cmd.Flags().StringVar(&outFile, "out", "", "Write the YAML to a file instead of stdout")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}

// revealStatic converts the static set into plain YAML-marshalable
// maps. Value redacts itself when serialized, so this is the one
// deliberate plaintext rendering, at the operator's request.
func revealStatic(static *secrets.StaticSecrets) map[string]interface{} {
	applications := map[string]interface{}{}
	for application, entries := range static.Applications {
		values := map[string]interface{}{}
		for key, entry := range entries {
			item := map[string]interface{}{}
			if entry.Description != "" {
				item["description"] = entry.Description
			}
			if entry.Value != nil {
				item["value"] = entry.Value.Reveal()
			} else {
				item["value"] = nil
			}
			values[key] = item
		}
		applications[application] = values
	}

	out := map[string]interface{}{"applications": applications}
	if static.PullSecret.HasRegistries() {
		registries := map[string]interface{}{}
		for registry, credential := range static.PullSecret.Registries {
			entry := map[string]interface{}{
				"username": credential.Username,
				"password": credential.Password.Reveal(),
			}
			if credential.Email != "" {
				entry["email"] = credential.Email
			}
			registries[registry] = entry
		}
		out[secrets.PullSecretApplication] = map[string]interface{}{"registries": registries}
	}
	return out
}
