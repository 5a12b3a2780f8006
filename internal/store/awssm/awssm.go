// Package awssm implements the store contract against AWS Secrets
// Manager. Each application is one secret named "<prefix>/<application>"
// whose value is a JSON object of key/value pairs.
package awssm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/systmms/secretsync/internal/logging"
	"github.com/systmms/secretsync/internal/secrets"
	"github.com/systmms/secretsync/internal/store"
)

// ClientAPI is the subset of the Secrets Manager API the store uses.
// This allows for mocking in tests.
type ClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
}

// Config locates one environment's secrets in Secrets Manager.
type Config struct {
	// Region is the AWS region, "us-east-1" when empty.
	Region string
	// Prefix is the per-environment secret name prefix.
	Prefix string
	// Endpoint overrides the service endpoint, for LocalStack or tests.
	Endpoint string
	// AccessKeyID and SecretAccessKey set static credentials, for
	// LocalStack or tests. The default credential chain applies when
	// empty.
	AccessKeyID     string
	SecretAccessKey string
}

// Client talks to AWS Secrets Manager for one environment.
type Client struct {
	config Config
	client ClientAPI
	logger *logging.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Client)

// WithClient sets a custom Secrets Manager client (for testing).
func WithClient(api ClientAPI) Option {
	return func(c *Client) {
		c.client = api
	}
}

// New creates a Secrets Manager client for the environment.
func New(ctx context.Context, config Config, logger *logging.Logger, opts ...Option) (*Client, error) {
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	config.Prefix = strings.TrimSuffix(config.Prefix, "/")

	c := &Client{config: config, logger: logger}
	for _, opt := range opts {
		opt(c)
	}

	if c.client == nil {
		configOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(config.Region)}
		if config.AccessKeyID != "" && config.SecretAccessKey != "" {
			configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
			))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
		if err != nil {
			return nil, &store.Error{Op: "authenticate", Err: fmt.Errorf("failed to load AWS config: %w", err)}
		}
		var clientOpts []func(*secretsmanager.Options)
		if config.Endpoint != "" {
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = aws.String(config.Endpoint)
			})
		}
		c.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	}
	return c, nil
}

func (c *Client) secretName(application string) string {
	return c.config.Prefix + "/" + application
}

// GetEnvironmentSecrets reads the full store state for the environment:
// every secret under the configured prefix.
func (c *Client) GetEnvironmentSecrets(ctx context.Context) (store.Snapshot, error) {
	snapshot := make(store.Snapshot)

	var nextToken *string
	for {
		out, err := c.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
			NextToken: nextToken,
			Filters: []types.Filter{{
				Key:    types.FilterNameStringTypeName,
				Values: []string{c.config.Prefix + "/"},
			}},
		})
		if err != nil {
			return nil, &store.Error{Op: "list", Err: err}
		}

		for _, entry := range out.SecretList {
			if entry.Name == nil {
				continue
			}
			application := strings.TrimPrefix(*entry.Name, c.config.Prefix+"/")
			values, err := c.readApplication(ctx, application)
			if err != nil {
				return nil, err
			}
			if values != nil {
				snapshot[application] = values
			}
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	c.logger.Debug("Read %d application secrets from secrets manager", len(snapshot))
	return snapshot, nil
}

// readApplication reads one application's key map. Returns nil for an
// absent or scheduled-for-deletion entry.
func (c *Client) readApplication(ctx context.Context, application string) (map[string]secrets.Value, error) {
	out, err := c.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(c.secretName(application)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, &store.Error{Op: "read", Application: application, Err: err}
	}
	if out.SecretString == nil {
		return nil, &store.Error{Op: "read", Application: application,
			Err: fmt.Errorf("secret %s has no string value", c.secretName(application))}
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &payload); err != nil {
		return nil, &store.Error{Op: "read", Application: application,
			Err: fmt.Errorf("secret %s is not a JSON object: %w", c.secretName(application), err)}
	}

	values := make(map[string]secrets.Value, len(payload))
	for key, raw := range payload {
		values[key] = secrets.NewValue(raw)
	}
	return values, nil
}

// StoreApplicationSecret writes an application's entry wholesale,
// creating the secret on first write.
func (c *Client) StoreApplicationSecret(ctx context.Context, application string, values map[string]secrets.Value) error {
	payload := make(map[string]string, len(values))
	for key, value := range values {
		payload[key] = value.Reveal()
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return &store.Error{Op: "store", Application: application, Err: err}
	}

	_, err = c.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(c.secretName(application)),
		SecretString: aws.String(string(raw)),
	})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return &store.Error{Op: "store", Application: application, Err: err}
	}

	_, err = c.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(c.secretName(application)),
		SecretString: aws.String(string(raw)),
	})
	if err != nil {
		return &store.Error{Op: "store", Application: application, Err: err}
	}
	return nil
}

// UpdateApplicationSecret writes one key, preserving the application's
// other keys. Secrets Manager versions whole values, so this reads the
// current entry and writes it back with the key replaced.
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

// DeleteApplicationSecret removes an application's entry without a
// recovery window.
func (c *Client) DeleteApplicationSecret(ctx context.Context, application string) error {
	_, err := c.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   aws.String(c.secretName(application)),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	})
	if err != nil && !isNotFound(err) {
		return &store.Error{Op: "delete", Application: application, Err: err}
	}
	return nil
}

func isNotFound(err error) bool {
	var notFound *types.ResourceNotFoundException
	return errors.As(err, &notFound)
}

var _ store.Client = (*Client)(nil)
