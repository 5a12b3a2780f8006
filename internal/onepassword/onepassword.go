// Package onepassword fetches static secret values from a 1Password
// Connect server. Items in the configured vault are titled by
// application name, and each field holds one secret value. A
// "pull-secret" item carries registry credentials in per-registry
// sections.
package onepassword

import (
	"context"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	dserrors "github.com/systmms/secretsync/internal/errors"
	"github.com/systmms/secretsync/internal/logging"
	"github.com/systmms/secretsync/internal/secrets"
	"github.com/systmms/secretsync/internal/secure"
)

const (
	// KeyringService is the service name tokens are filed under in the
	// OS keyring.
	KeyringService = "secretsync"
	// KeyringAccount is the keyring account for the Connect token.
	KeyringAccount = "onepassword-token"
)

// Config locates the environment's static secrets in 1Password.
type Config struct {
	// ConnectURL is the Connect server base URL.
	ConnectURL string
	// VaultTitle names the 1Password vault holding the environment's
	// items.
	VaultTitle string
	// Token authenticates requests. When empty the client falls back
	// to OP_CONNECT_TOKEN and then the OS keyring.
	Token string
}

// Client reads static secrets from one environment's 1Password vault.
type Client struct {
	config Config
	token  *secure.Token
	logger *logging.Logger
}

// New creates a Connect client, resolving the token from config, the
// OP_CONNECT_TOKEN environment variable, or the OS keyring, in that
// order.
func New(config Config, logger *logging.Logger) (*Client, error) {
	raw := config.Token
	if raw == "" {
		raw = os.Getenv("OP_CONNECT_TOKEN")
	}
	if raw == "" {
		stored, err := keyring.Get(KeyringService, KeyringAccount)
		if err == nil {
			raw = stored
		}
	}
	if raw == "" {
		return nil, dserrors.UserError{
			Message:    "No 1Password Connect token available",
			Details:    "checked configuration, OP_CONNECT_TOKEN, and the OS keyring",
			Suggestion: "Run 'secretsync login onepassword' or set OP_CONNECT_TOKEN",
		}
	}
	config.Token = ""

	return &Client{
		config: config,
		token:  secure.NewTokenFromString(raw),
		logger: logger,
	}, nil
}

// GetSecrets fetches the static secret values for the queried
// applications and keys, plus the pull secret when a pull-secret item
// exists. Keys the vault does not hold are logged and omitted rather
// than failing the whole fetch.
func (c *Client) GetSecrets(ctx context.Context, query map[string][]string) (*secrets.StaticSecrets, error) {
	vaultID, err := c.findVault(ctx)
	if err != nil {
		return nil, err
	}

	items, err := c.listItems(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	byTitle := make(map[string]string, len(items))
	for _, item := range items {
		byTitle[item.Title] = item.ID
	}

	static := &secrets.StaticSecrets{
		Applications: make(map[string]map[string]secrets.StaticSecret, len(query)),
	}
	for application, keys := range query {
		itemID, ok := byTitle[application]
		if !ok {
			c.logger.Warn("No 1Password item for application %s", application)
			continue
		}
		item, err := c.getItem(ctx, vaultID, itemID)
		if err != nil {
			return nil, err
		}

		values := item.fieldValues()
		entries := make(map[string]secrets.StaticSecret, len(keys))
		for _, key := range keys {
			raw, ok := values[key]
			if !ok {
				c.logger.Warn("No 1Password field for secret %s/%s", application, key)
				continue
			}
			v := secrets.NewValue(raw)
			entries[key] = secrets.StaticSecret{Value: &v}
		}
		if len(entries) > 0 {
			static.Applications[application] = entries
		}
	}

	if itemID, ok := byTitle[secrets.PullSecretApplication]; ok {
		item, err := c.getItem(ctx, vaultID, itemID)
		if err != nil {
			return nil, err
		}
		static.PullSecret = item.pullSecret()
	}

	c.logger.Debug("Fetched static secrets for %d applications from 1Password",
		len(static.Applications))
	return static, nil
}

// findVault resolves the configured vault title to its ID.
func (c *Client) findVault(ctx context.Context) (string, error) {
	vaults, err := c.listVaults(ctx)
	if err != nil {
		return "", err
	}
	for _, vault := range vaults {
		if vault.Name == c.config.VaultTitle {
			return vault.ID, nil
		}
	}
	return "", dserrors.UserError{
		Message:    fmt.Sprintf("1Password vault %q not found", c.config.VaultTitle),
		Suggestion: "Check the vaultTitle setting and the Connect token's vault access",
	}
}
