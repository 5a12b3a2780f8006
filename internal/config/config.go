// Package config loads per-environment secret configuration: which
// applications exist, which secrets each declares, and how to reach the
// secret store and static source for that environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	dserrors "github.com/systmms/secretsync/internal/errors"
	"github.com/systmms/secretsync/internal/logging"
	"github.com/systmms/secretsync/internal/secrets"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration
type Config struct {
	Dir    string
	Logger *logging.Logger
}

// Environment is one deployed environment's secret configuration.
type Environment struct {
	Name         string             `yaml:"name" json:"name"`
	Vault        *VaultConfig       `yaml:"vault,omitempty" json:"vault,omitempty"`
	AWS          *AWSConfig         `yaml:"awsSecretsManager,omitempty" json:"awsSecretsManager,omitempty"`
	Onepassword  *OnepasswordConfig `yaml:"onepassword,omitempty" json:"onepassword,omitempty"`
	Applications []Application      `yaml:"applications" json:"applications"`
}

// VaultConfig locates the environment's secrets in Vault.
type VaultConfig struct {
	Address string `yaml:"address" json:"address"`
	Mount   string `yaml:"mount,omitempty" json:"mount,omitempty"`
	Path    string `yaml:"path" json:"path"`
	TLSSkip bool   `yaml:"tlsSkip,omitempty" json:"tlsSkip,omitempty"`
}

// AWSConfig locates the environment's secrets in AWS Secrets Manager.
type AWSConfig struct {
	Region   string `yaml:"region" json:"region"`
	Prefix   string `yaml:"prefix" json:"prefix"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// OnepasswordConfig locates the environment's static secret source.
type OnepasswordConfig struct {
	ConnectURL string `yaml:"connectUrl" json:"connectUrl"`
	VaultTitle string `yaml:"vaultTitle" json:"vaultTitle"`
}

// Application is one application and its declared secrets.
type Application struct {
	Name    string         `yaml:"name" json:"name"`
	Secrets []SecretConfig `yaml:"secrets" json:"secrets"`
}

// SecretConfig is the YAML shape of one secret declaration. A secret
// with no value, copy or generate stanza is static: its value comes
// from the static source or the current stored value.
type SecretConfig struct {
	Key         string                 `yaml:"key" json:"key"`
	Description string                 `yaml:"description,omitempty" json:"description,omitempty"`
	Value       *string                `yaml:"value,omitempty" json:"value,omitempty"`
	Copy        *secrets.CopyRule      `yaml:"copy,omitempty" json:"copy,omitempty"`
	Generate    *secrets.GenerateRule  `yaml:"generate,omitempty" json:"generate,omitempty"`
	Onepassword secrets.SourceOptions  `yaml:"onepassword,omitempty" json:"onepassword,omitempty"`
}

// AllApplications returns the environment's applications.
func (e *Environment) AllApplications() []Application {
	return e.Applications
}

// AllSecrets flattens the environment into one declaration per secret,
// in configuration order.
func (e *Environment) AllSecrets() []secrets.Declaration {
	var out []secrets.Declaration
	for _, application := range e.Applications {
		for _, cfg := range application.Secrets {
			out = append(out, cfg.declaration(application.Name))
		}
	}
	return out
}

// StaticSecrets returns the application's declarations that need an
// external static value.
func (a *Application) StaticSecrets() []secrets.Declaration {
	var out []secrets.Declaration
	for _, cfg := range a.Secrets {
		decl := cfg.declaration(a.Name)
		if decl.Kind() == secrets.RuleStatic {
			out = append(out, decl)
		}
	}
	return out
}

func (c *SecretConfig) declaration(application string) secrets.Declaration {
	decl := secrets.Declaration{
		Application: application,
		Key:         c.Key,
		Description: c.Description,
		Copy:        c.Copy,
		Generate:    c.Generate,
		Source:      c.Onepassword,
	}
	if c.Value != nil {
		v := secrets.NewValue(*c.Value)
		decl.Literal = &v
	}
	return decl
}

// Loader reads environment configuration files from a directory, one
// YAML file per environment.
type Loader struct {
	dir    string
	logger *logging.Logger
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, logger *logging.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// LoadEnvironment reads, schema-validates and semantically validates
// one environment's configuration.
func (l *Loader) LoadEnvironment(name string) (*Environment, error) {
	path := filepath.Join(l.dir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dserrors.ConfigError{
				Field:      "environment",
				Value:      name,
				Message:    "environment configuration not found",
				Suggestion: fmt.Sprintf("Expected %s; check the environment name and --config directory", path),
			}
		}
		return nil, dserrors.UserError{
			Message:    "Failed to read environment configuration",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var env Environment
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, dserrors.ConfigError{
			Field:      "environment",
			Value:      name,
			Message:    "invalid YAML syntax in environment configuration",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	if err := l.validate(&env, name); err != nil {
		return nil, err
	}
	l.logger.Debug("Loaded environment %s: %d applications, %d secrets",
		env.Name, len(env.Applications), len(env.AllSecrets()))
	return &env, nil
}

// validate checks the semantic rules the schema cannot express.
func (l *Loader) validate(env *Environment, name string) error {
	if env.Name != name {
		return dserrors.ConfigError{
			Field:      "name",
			Value:      env.Name,
			Message:    fmt.Sprintf("environment name does not match file name %s", name),
			Suggestion: "Set name: to match the configuration file name",
		}
	}
	if env.Vault == nil && env.AWS == nil {
		return dserrors.ConfigError{
			Field:      "environment",
			Value:      name,
			Message:    "no secret store configured",
			Suggestion: "Add a vault: or awsSecretsManager: section",
		}
	}
	if env.Vault != nil && env.AWS != nil {
		return dserrors.ConfigError{
			Field:      "environment",
			Value:      name,
			Message:    "more than one secret store configured",
			Suggestion: "Keep exactly one of vault: and awsSecretsManager:",
		}
	}

	seen := make(map[secrets.Ref]bool)
	for _, decl := range env.AllSecrets() {
		ref := decl.Ref()
		if seen[ref] {
			return dserrors.ConfigError{
				Field:      ref.String(),
				Message:    "duplicate secret declaration",
				Suggestion: "Each (application, key) pair may be declared once",
			}
		}
		seen[ref] = true
		if err := decl.Validate(); err != nil {
			return err
		}
	}
	return nil
}
