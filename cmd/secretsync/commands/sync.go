package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/secretsync/internal/config"
	"github.com/systmms/secretsync/internal/reconcile"
	"github.com/systmms/secretsync/internal/service"
)

func NewSyncCommand(cfg *config.Config) *cobra.Command {
	var (
		envName     string
		secretsFile string
		regenerate  bool
		deleteExtra bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile an environment's store with its declarations",
		Long: `Resolve every declared secret and write the differences to the
environment's secret store. Unchanged values are left alone, so a sync
against a matching store is a no-op.

Examples:
  secretsync sync --env idfdev
  secretsync sync --env idfdev --secrets static.yaml
  secretsync sync --env idfdev --regenerate   # rotate generated secrets
  secretsync sync --env idfdev --delete       # remove undeclared entries`,
		RunE: func(cmd *cobra.Command, args []string) error {
			static, err := loadStaticFlag(secretsFile)
			if err != nil {
				return err
			}

			events, err := newService(cfg).Sync(cmd.Context(), envName, static, service.SyncOptions{
				Regenerate: regenerate,
				Delete:     deleteExtra,
			})
			if err != nil {
				return err
			}

			if len(events) == 0 {
				cfg.Logger.Info("Store already matches the declared secrets for %s", envName)
				return nil
			}
			counts := map[reconcile.ChangeKind]int{}
			for _, event := range events {
				counts[event.Kind]++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d changes: %d created, %d updated, %d deleted\n",
				len(events), counts[reconcile.ChangeCreated], counts[reconcile.ChangeUpdated], counts[reconcile.ChangeDeleted])
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	cmd.Flags().StringVar(&secretsFile, "secrets", "", "Static secrets YAML file (replaces the static source)")
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "Replace generated secrets with fresh values")
	cmd.Flags().BoolVar(&deleteExtra, "delete", false, "Delete store entries the environment no longer declares")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}
