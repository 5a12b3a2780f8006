// Package service orchestrates the secret lifecycle for one
// environment: loading configuration, fetching static values, resolving
// declarations, and auditing or reconciling the secret store.
package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/systmms/secretsync/internal/config"
	dserrors "github.com/systmms/secretsync/internal/errors"
	"github.com/systmms/secretsync/internal/logging"
	"github.com/systmms/secretsync/internal/onepassword"
	"github.com/systmms/secretsync/internal/reconcile"
	"github.com/systmms/secretsync/internal/resolve"
	"github.com/systmms/secretsync/internal/secrets"
	"github.com/systmms/secretsync/internal/store"
	"github.com/systmms/secretsync/internal/store/awssm"
	"github.com/systmms/secretsync/internal/store/vault"
)

// StaticSource fetches externally managed secret values. The query maps
// application names to the keys needed for each.
type StaticSource interface {
	GetSecrets(ctx context.Context, query map[string][]string) (*secrets.StaticSecrets, error)
}

// StoreFactory builds a store client for an environment.
type StoreFactory func(ctx context.Context, env *config.Environment, logger *logging.Logger) (store.Client, error)

// SourceFactory builds a static source for an environment, or returns
// (nil, nil) when the environment has none configured.
type SourceFactory func(env *config.Environment, logger *logging.Logger) (StaticSource, error)

// Service ties configuration, static sources, resolution and
// reconciliation together.
type Service struct {
	loader    *config.Loader
	logger    *logging.Logger
	newStore  StoreFactory
	newSource SourceFactory
}

// Option is a functional option for configuring the service.
type Option func(*Service)

// WithStoreFactory overrides store client construction (for testing).
func WithStoreFactory(factory StoreFactory) Option {
	return func(s *Service) {
		s.newStore = factory
	}
}

// WithSourceFactory overrides static source construction (for testing).
func WithSourceFactory(factory SourceFactory) Option {
	return func(s *Service) {
		s.newSource = factory
	}
}

// New creates a service reading environment configuration from dir.
func New(dir string, logger *logging.Logger, opts ...Option) *Service {
	s := &Service{
		loader:    config.NewLoader(dir, logger),
		logger:    logger,
		newStore:  defaultStore,
		newSource: defaultSource,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultStore(ctx context.Context, env *config.Environment, logger *logging.Logger) (store.Client, error) {
	switch {
	case env.Vault != nil:
		return vault.New(vault.Config{
			Address: env.Vault.Address,
			Mount:   env.Vault.Mount,
			Path:    env.Vault.Path,
			TLSSkip: env.Vault.TLSSkip,
		}, logger)
	case env.AWS != nil:
		return awssm.New(ctx, awssm.Config{
			Region:   env.AWS.Region,
			Prefix:   env.AWS.Prefix,
			Endpoint: env.AWS.Endpoint,
		}, logger)
	default:
		return nil, dserrors.ConfigError{
			Field:      "environment",
			Value:      env.Name,
			Message:    "no secret store configured",
			Suggestion: "Add a vault: or awsSecretsManager: section",
		}
	}
}

func defaultSource(env *config.Environment, logger *logging.Logger) (StaticSource, error) {
	if env.Onepassword == nil {
		return nil, nil
	}
	return onepassword.New(onepassword.Config{
		ConnectURL: env.Onepassword.ConnectURL,
		VaultTitle: env.Onepassword.VaultTitle,
	}, logger)
}

// SyncOptions control a Sync run.
type SyncOptions struct {
	// Regenerate discards current values of generated secrets and
	// produces fresh ones.
	Regenerate bool
	// Delete removes store entries the environment no longer declares.
	Delete bool
}

// List returns every secret declaration for the environment, in
// configuration order.
func (s *Service) List(environment string) ([]secrets.Declaration, error) {
	env, err := s.loader.LoadEnvironment(environment)
	if err != nil {
		return nil, err
	}
	return env.AllSecrets(), nil
}

// Audit compares the environment's desired secrets against the store
// without modifying anything. When static is nil the configured static
// source is consulted; an environment with neither audits against
// current store values alone.
func (s *Service) Audit(ctx context.Context, environment string, static *secrets.StaticSecrets) (*reconcile.Report, error) {
	env, err := s.loader.LoadEnvironment(environment)
	if err != nil {
		return nil, err
	}
	client, err := s.newStore(ctx, env, s.logger)
	if err != nil {
		return nil, err
	}

	if static == nil {
		static, err = s.fetchStatic(ctx, env)
		if err != nil {
			return nil, err
		}
	}

	snapshot, err := client.GetEnvironmentSecrets(ctx)
	if err != nil {
		return nil, err
	}

	resolved, err := resolve.New(s.logger).Resolve(env.AllSecrets(), snapshot, static, false)
	if err != nil {
		return nil, err
	}
	return reconcile.NewAuditor().Audit(resolved, snapshot)
}

// Sync brings the store in line with the environment's declarations and
// returns the changes applied. When static is nil the configured static
// source is consulted.
func (s *Service) Sync(ctx context.Context, environment string, static *secrets.StaticSecrets, opts SyncOptions) ([]reconcile.ChangeEvent, error) {
	env, err := s.loader.LoadEnvironment(environment)
	if err != nil {
		return nil, err
	}
	client, err := s.newStore(ctx, env, s.logger)
	if err != nil {
		return nil, err
	}

	if static == nil {
		static, err = s.fetchStatic(ctx, env)
		if err != nil {
			return nil, err
		}
	}

	snapshot, err := client.GetEnvironmentSecrets(ctx)
	if err != nil {
		return nil, err
	}

	resolved, err := resolve.New(s.logger).Resolve(env.AllSecrets(), snapshot, static, opts.Regenerate)
	if err != nil {
		return nil, err
	}
	return reconcile.NewReconciler(client, s.logger).Sync(ctx, resolved, snapshot, opts.Delete)
}

// StaticSecrets fetches the environment's static secrets from its
// configured source. Environments without a source fail with
// NoStaticSourceError.
func (s *Service) StaticSecrets(ctx context.Context, environment string) (*secrets.StaticSecrets, error) {
	env, err := s.loader.LoadEnvironment(environment)
	if err != nil {
		return nil, err
	}
	if env.Onepassword == nil {
		return nil, dserrors.NoStaticSourceError{Environment: environment}
	}
	return s.fetchStatic(ctx, env)
}

// fetchStatic pulls static values from the environment's source when
// one is configured, decoding values whose declarations mark them
// base64-encoded at rest. Environments without a source resolve against
// an empty static set.
func (s *Service) fetchStatic(ctx context.Context, env *config.Environment) (*secrets.StaticSecrets, error) {
	source, err := s.newSource(env, s.logger)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return &secrets.StaticSecrets{}, nil
	}

	query := make(map[string][]string)
	for _, application := range env.AllApplications() {
		for _, decl := range application.StaticSecrets() {
			query[application.Name] = append(query[application.Name], decl.Key)
		}
	}

	static, err := source.GetSecrets(ctx, query)
	if err != nil {
		return nil, err
	}
	return decodeStatic(env, static)
}

// decodeStatic base64-decodes static values whose declaration carries
// encoded: true. Sources store some values encoded to survive fields
// that mangle whitespace.
func decodeStatic(env *config.Environment, static *secrets.StaticSecrets) (*secrets.StaticSecrets, error) {
	for _, decl := range env.AllSecrets() {
		if !decl.Source.Encoded {
			continue
		}
		entry, ok := static.ForApplication(decl.Application)[decl.Key]
		if !ok || entry.Value == nil {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(entry.Value.Reveal())
		if err != nil {
			return nil, dserrors.UserError{
				Message:    fmt.Sprintf("Static secret %s/%s is marked encoded but is not valid base64", decl.Application, decl.Key),
				Suggestion: "Fix the stored value or drop encoded: true from the declaration",
				Err:        err,
			}
		}
		v := secrets.NewValue(string(decoded))
		entry.Value = &v
		static.Applications[decl.Application][decl.Key] = entry
	}
	return static, nil
}

// Export writes the store's current contents to dir, one
// <application>.json per application. The dump is the union of the
// declarations and the store, so it is a faithful backup: declared keys
// the store does not hold are written as null so gaps are visible, and
// stored entries the environment no longer declares are still included.
func (s *Service) Export(ctx context.Context, environment, dir string) error {
	env, err := s.loader.LoadEnvironment(environment)
	if err != nil {
		return err
	}
	client, err := s.newStore(ctx, env, s.logger)
	if err != nil {
		return err
	}
	snapshot, err := client.GetEnvironmentSecrets(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return dserrors.UserError{
			Message:    "Failed to create export directory",
			Details:    err.Error(),
			Suggestion: "Check the --out path and its permissions",
			Err:        err,
		}
	}

	dumps := make(map[string]map[string]*string)
	for _, application := range env.AllApplications() {
		dump := make(map[string]*string, len(application.Secrets))
		for _, cfg := range application.Secrets {
			dump[cfg.Key] = nil
		}
		dumps[application.Name] = dump
	}
	for application, values := range snapshot {
		dump := dumps[application]
		if dump == nil {
			dump = make(map[string]*string, len(values))
			dumps[application] = dump
		}
		for key, value := range values {
			raw := value.Reveal()
			dump[key] = &raw
		}
	}

	for _, application := range sortedApplications(dumps) {
		dump := dumps[application]
		raw, err := json.MarshalIndent(dump, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", application, err)
		}
		path := filepath.Join(dir, application+".json")
		if err := os.WriteFile(path, append(raw, '\n'), 0o600); err != nil {
			return dserrors.UserError{
				Message: fmt.Sprintf("Failed to write %s", path),
				Details: err.Error(),
				Err:     err,
			}
		}
		s.logger.Info("Exported %d secrets for %s", len(dump), application)
	}
	return nil
}

func sortedApplications(dumps map[string]map[string]*string) []string {
	names := make([]string, 0, len(dumps))
	for name := range dumps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadStaticSecretsFile reads a static-secrets YAML file of the shape
// the static source would return, for use in place of the source.
func LoadStaticSecretsFile(path string) (*secrets.StaticSecrets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dserrors.UserError{
			Message:    "Failed to read static secrets file",
			Details:    err.Error(),
			Suggestion: "Check the --secrets path",
			Err:        err,
		}
	}
	var static secrets.StaticSecrets
	if err := yaml.Unmarshal(data, &static); err != nil {
		return nil, dserrors.UserError{
			Message:    "Failed to parse static secrets file",
			Details:    err.Error(),
			Suggestion: "The file must map applications to key: value pairs",
			Err:        err,
		}
	}
	return &static, nil
}
