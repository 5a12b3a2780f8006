package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"github.com/systmms/secretsync/internal/config"
	dserrors "github.com/systmms/secretsync/internal/errors"
	"github.com/systmms/secretsync/internal/onepassword"
	"github.com/systmms/secretsync/internal/store/vault"
)

func NewLoginCommand(cfg *config.Config) *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "login <vault|onepassword>",
		Short: "Store a backend token in the OS keyring",
		Long: `Store the Vault or 1Password Connect token in the OS keyring so it
does not have to live in environment variables. The token is read from
stdin.

Examples:
  secretsync login vault < token.txt
  echo "$OP_CONNECT_TOKEN" | secretsync login onepassword
  secretsync login vault --delete`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, account, err := keyringTarget(args[0])
			if err != nil {
				return err
			}

			if clear {
				if err := keyring.Delete(service, account); err != nil {
					return dserrors.UserError{
						Message:    fmt.Sprintf("Failed to remove the %s token from the keyring", args[0]),
						Details:    err.Error(),
						Err:        err,
					}
				}
				cfg.Logger.Info("Removed %s token from the keyring", args[0])
				return nil
			}

			token, err := readToken(cmd)
			if err != nil {
				return err
			}
			if err := keyring.Set(service, account, token); err != nil {
				return dserrors.UserError{
					Message:    fmt.Sprintf("Failed to store the %s token in the keyring", args[0]),
					Details:    err.Error(),
					Suggestion: "Check that an OS keyring service is available",
					Err:        err,
				}
			}
			cfg.Logger.Info("Stored %s token in the keyring", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "delete", false, "Remove the stored token instead")

	return cmd
}

func keyringTarget(backend string) (service, account string, err error) {
	switch strings.ToLower(backend) {
	case "vault":
		return vault.KeyringService, vault.KeyringAccount, nil
	case "onepassword", "1password", "op":
		return onepassword.KeyringService, onepassword.KeyringAccount, nil
	default:
		return "", "", dserrors.UserError{
			Message:    fmt.Sprintf("Unknown backend: %s", backend),
			Suggestion: "Use 'vault' or 'onepassword'",
		}
	}
}

func readToken(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Token: ")
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", dserrors.UserError{
			Message:    "Failed to read token from stdin",
			Suggestion: "Pipe the token in, e.g. echo \"$TOKEN\" | secretsync login vault",
			Err:        err,
		}
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", dserrors.UserError{
			Message:    "Empty token",
			Suggestion: "Provide the token on stdin",
		}
	}
	return token, nil
}
