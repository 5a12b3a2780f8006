package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/secretsync/internal/config"
	dserrors "github.com/systmms/secretsync/internal/errors"
	"github.com/systmms/secretsync/internal/reconcile"
)

func NewAuditCommand(cfg *config.Config) *cobra.Command {
	var (
		envName     string
		secretsFile string
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Compare an environment's secrets against its store",
		Long: `Resolve every declared secret and compare the result against the
environment's secret store, without changing anything. Differences are
reported as missing, mismatched, or unknown; a non-clean audit exits
with status 1.

Examples:
  secretsync audit --env idfdev
  secretsync audit --env idfdev --secrets static.yaml
  secretsync audit --env idfdev --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			static, err := loadStaticFlag(secretsFile)
			if err != nil {
				return err
			}

			report, err := newService(cfg).Audit(cmd.Context(), envName, static)
			if err != nil {
				return err
			}

			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(report); err != nil {
					return fmt.Errorf("failed to encode JSON: %w", err)
				}
			} else {
				printReport(cmd, report)
			}

			if !report.Clean() {
				return dserrors.UserError{
					Message:    fmt.Sprintf("Audit found %d differences", len(report.Findings)),
					Suggestion: fmt.Sprintf("Run 'secretsync sync --env %s' to reconcile", envName),
				}
			}
			cfg.Logger.Info("Store matches the declared secrets for %s", envName)
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "Environment name (required)")
	cmd.Flags().StringVar(&secretsFile, "secrets", "", "Static secrets YAML file (replaces the static source)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report in JSON format")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}

func printReport(cmd *cobra.Command, report *reconcile.Report) {
	out := cmd.OutOrStdout()
	groups := []struct {
		class reconcile.Classification
		title string
	}{
		{reconcile.ClassMissing, "Missing from the store:"},
		{reconcile.ClassMismatch, "Stored value differs:"},
		{reconcile.ClassUnknown, "In the store but not declared:"},
	}
	for _, group := range groups {
		findings := report.ByClassification(group.class)
		if len(findings) == 0 {
			continue
		}
		fmt.Fprintln(out, group.title)
		for _, finding := range findings {
			fmt.Fprintf(out, "  %s/%s\n", finding.Application, finding.Key)
		}
	}
}
