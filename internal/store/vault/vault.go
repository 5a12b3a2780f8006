// Package vault implements the store contract against HashiCorp Vault's
// KV v2 engine over its HTTP API. Each application is one secret under
// the environment's path prefix.
package vault

import (
	"context"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/systmms/secretsync/internal/logging"
	"github.com/systmms/secretsync/internal/secrets"
	"github.com/systmms/secretsync/internal/secure"
	"github.com/systmms/secretsync/internal/store"
)

const (
	// KeyringService is the service name tokens are filed under in the
	// OS keyring.
	KeyringService = "secretsync"
	// KeyringAccount is the keyring account for the Vault token.
	KeyringAccount = "vault-token"
)

// Config locates one environment's secrets in Vault.
type Config struct {
	// Address is the Vault server URL.
	Address string
	// Mount is the KV v2 mount point, "secret" when empty.
	Mount string
	// Path is the per-environment prefix under the mount.
	Path string
	// Token authenticates requests. When empty the client falls back
	// to VAULT_TOKEN and then the OS keyring.
	Token string
	// TLSSkip disables certificate verification, for test servers.
	TLSSkip bool
}

// Client talks to Vault for one environment.
type Client struct {
	config Config
	token  *secure.Token
	logger *logging.Logger
}

// New creates a Vault client, resolving the token from config, the
// VAULT_TOKEN environment variable, or the OS keyring, in that order.
func New(config Config, logger *logging.Logger) (*Client, error) {
	if config.Mount == "" {
		config.Mount = "secret"
	}

	raw := config.Token
	if raw == "" {
		raw = os.Getenv("VAULT_TOKEN")
	}
	if raw == "" {
		stored, err := keyring.Get(KeyringService, KeyringAccount)
		if err == nil {
			raw = stored
		}
	}
	if raw == "" {
		return nil, &store.Error{
			Op:  "authenticate",
			Err: fmt.Errorf("no vault token in config, VAULT_TOKEN, or keyring; run 'secretsync login vault'"),
		}
	}
	config.Token = ""

	return &Client{
		config: config,
		token:  secure.NewTokenFromString(raw),
		logger: logger,
	}, nil
}

// GetEnvironmentSecrets reads the full store state for the environment:
// every application secret under the configured path.
func (c *Client) GetEnvironmentSecrets(ctx context.Context) (store.Snapshot, error) {
	applications, err := c.listApplications(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := make(store.Snapshot, len(applications))
	for _, application := range applications {
		values, err := c.readApplication(ctx, application)
		if err != nil {
			return nil, err
		}
		if values != nil {
			snapshot[application] = values
		}
	}
	c.logger.Debug("Read %d application secrets from vault", len(snapshot))
	return snapshot, nil
}

// StoreApplicationSecret writes an application's entry wholesale.
func (c *Client) StoreApplicationSecret(ctx context.Context, application string, values map[string]secrets.Value) error {
	payload := make(map[string]string, len(values))
	for key, value := range values {
		payload[key] = value.Reveal()
	}
	body := map[string]interface{}{"data": payload}

	status, _, err := c.do(ctx, "POST", c.dataPath(application), body)
	if err != nil {
		return &store.Error{Op: "store", Application: application, Err: err}
	}
	if status != 200 && status != 204 {
		return &store.Error{Op: "store", Application: application,
			Err: fmt.Errorf("vault returned status %d", status)}
	}
	return nil
}

// UpdateApplicationSecret writes one key, preserving the application's
// other keys. KV v2 has no single-key write, so this reads the current
// entry and writes it back with the key replaced.
func (c *Client) UpdateApplicationSecret(ctx context.Context, application, key string, value secrets.Value) error {
	current, err := c.readApplication(ctx, application)
	if err != nil {
		return err
	}
	if current == nil {
		current = map[string]secrets.Value{}
	}
	current[key] = value
	return c.StoreApplicationSecret(ctx, application, current)
}

// DeleteApplicationSecret removes an application's entry and all its
// version history.
func (c *Client) DeleteApplicationSecret(ctx context.Context, application string) error {
	status, _, err := c.do(ctx, "DELETE", c.metadataPath(application), nil)
	if err != nil {
		return &store.Error{Op: "delete", Application: application, Err: err}
	}
	if status != 204 && status != 404 {
		return &store.Error{Op: "delete", Application: application,
			Err: fmt.Errorf("vault returned status %d", status)}
	}
	return nil
}

var _ store.Client = (*Client)(nil)
