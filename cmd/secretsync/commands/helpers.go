package commands

import (
	"github.com/systmms/secretsync/internal/config"
	"github.com/systmms/secretsync/internal/secrets"
	"github.com/systmms/secretsync/internal/service"
)

// newService builds the secret service from the parsed global flags.
func newService(cfg *config.Config) *service.Service {
	return service.New(cfg.Dir, cfg.Logger)
}

// loadStaticFlag reads the --secrets override file, or returns nil so
// the configured static source is used instead.
func loadStaticFlag(path string) (*secrets.StaticSecrets, error) {
	if path == "" {
		return nil, nil
	}
	return service.LoadStaticSecretsFile(path)
}
