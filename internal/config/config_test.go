package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretsync/internal/config"
	"github.com/systmms/secretsync/internal/logging"
	"github.com/systmms/secretsync/internal/secrets"
)

const validEnvironment = `
name: idfdev
vault:
  address: https://vault.example.com
  path: secrets/idfdev
onepassword:
  connectUrl: https://connect.example.com
  vaultTitle: idfdev
applications:
  - name: db
    secrets:
      - key: password
        description: Database superuser password.
        generate:
          type: password
  - name: api
    secrets:
      - key: dbpass
        copy:
          application: db
          key: password
      - key: slack-webhook
        description: Incoming webhook for alerts.
        onepassword:
          encoded: true
`

func writeEnvironment(t *testing.T, name, content string) *config.Loader {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0o600))
	return config.NewLoader(dir, logging.New(false, true))
}

func TestLoadEnvironment(t *testing.T) {
	t.Parallel()

	loader := writeEnvironment(t, "idfdev", validEnvironment)
	env, err := loader.LoadEnvironment("idfdev")
	require.NoError(t, err)

	assert.Equal(t, "idfdev", env.Name)
	require.NotNil(t, env.Vault)
	assert.Equal(t, "https://vault.example.com", env.Vault.Address)
	require.NotNil(t, env.Onepassword)

	declarations := env.AllSecrets()
	require.Len(t, declarations, 3)
	assert.Equal(t, secrets.RuleGenerate, declarations[0].Kind())
	assert.Equal(t, secrets.RuleCopy, declarations[1].Kind())
	assert.Equal(t, secrets.RuleStatic, declarations[2].Kind())
	assert.True(t, declarations[2].Source.Encoded)
}

func TestLoadEnvironmentNotFound(t *testing.T) {
	t.Parallel()

	loader := config.NewLoader(t.TempDir(), logging.New(false, true))
	_, err := loader.LoadEnvironment("nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestLoadEnvironmentRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	loader := writeEnvironment(t, "bad", `
name: bad
vault:
  address: https://vault.example.com
  path: secrets/bad
applications:
  - name: db
    secrets:
      - key: password
        generat:
          type: password
`)
	_, err := loader.LoadEnvironment("bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected structure")
}

func TestLoadEnvironmentRejectsDuplicates(t *testing.T) {
	t.Parallel()

	loader := writeEnvironment(t, "dup", `
name: dup
vault:
  address: https://vault.example.com
  path: secrets/dup
applications:
  - name: db
    secrets:
      - key: password
        generate:
          type: password
      - key: password
        generate:
          type: password
`)
	_, err := loader.LoadEnvironment("dup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate secret declaration")
}

func TestLoadEnvironmentRequiresOneStore(t *testing.T) {
	t.Parallel()

	loader := writeEnvironment(t, "nostore", `
name: nostore
applications:
  - name: db
    secrets:
      - key: password
        generate:
          type: password
`)
	_, err := loader.LoadEnvironment("nostore")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no secret store configured")

	loader = writeEnvironment(t, "twostores", `
name: twostores
vault:
  address: https://vault.example.com
  path: secrets/twostores
awsSecretsManager:
  region: us-east-1
  prefix: secretsync/twostores
applications:
  - name: db
    secrets:
      - key: password
        generate:
          type: password
`)
	_, err = loader.LoadEnvironment("twostores")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than one secret store")
}

func TestLoadEnvironmentRejectsBadGenerateType(t *testing.T) {
	t.Parallel()

	loader := writeEnvironment(t, "badgen", `
name: badgen
vault:
  address: https://vault.example.com
  path: secrets/badgen
applications:
  - name: db
    secrets:
      - key: password
        generate:
          type: rot13
`)
	_, err := loader.LoadEnvironment("badgen")
	require.Error(t, err)
}

func TestStaticSecretsPerApplication(t *testing.T) {
	t.Parallel()

	loader := writeEnvironment(t, "idfdev", validEnvironment)
	env, err := loader.LoadEnvironment("idfdev")
	require.NoError(t, err)

	apps := env.AllApplications()
	require.Len(t, apps, 2)

	assert.Empty(t, apps[0].StaticSecrets(), "generated secrets are not static")
	static := apps[1].StaticSecrets()
	require.Len(t, static, 1)
	assert.Equal(t, "slack-webhook", static[0].Key)
}

func TestLoadEnvironmentNameMismatch(t *testing.T) {
	t.Parallel()

	loader := writeEnvironment(t, "filename", `
name: other
vault:
  address: https://vault.example.com
  path: secrets/other
applications: []
`)
	_, err := loader.LoadEnvironment("filename")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}
