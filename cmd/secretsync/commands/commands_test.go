package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretsync/internal/config"
	"github.com/systmms/secretsync/internal/logging"
	"github.com/systmms/secretsync/internal/onepassword"
	"github.com/systmms/secretsync/internal/store/vault"
)

const testEnvironment = `name: idfdev
vault:
  address: https://vault.example.com
  path: secretsync/idfdev
applications:
  - name: db
    secrets:
      - key: password
        description: Database password
      - key: session-key
        generate:
          type: password
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "idfdev.yaml"), []byte(testEnvironment), 0o600))
	return &config.Config{
		Dir:    dir,
		Logger: logging.New(false, true),
	}
}

func TestCommandStructure(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Logger: logging.New(false, true)}

	list := NewListCommand(cfg)
	assert.Equal(t, "list", list.Use)
	assert.NotNil(t, list.Flags().Lookup("env"))

	audit := NewAuditCommand(cfg)
	assert.Equal(t, "audit", audit.Use)
	assert.NotNil(t, audit.Flags().Lookup("secrets"))
	assert.NotNil(t, audit.Flags().Lookup("json"))

	sync := NewSyncCommand(cfg)
	assert.Equal(t, "sync", sync.Use)
	assert.NotNil(t, sync.Flags().Lookup("regenerate"))
	assert.NotNil(t, sync.Flags().Lookup("delete"))

	static := NewStaticCommand(cfg)
	assert.Equal(t, "static", static.Use)
	assert.NotNil(t, static.Flags().Lookup("out"))

	template := NewStaticTemplateCommand(cfg)
	assert.Equal(t, "static-template", template.Use)
	assert.NotNil(t, template.Flags().Lookup("out"))

	export := NewExportCommand(cfg)
	assert.Equal(t, "export", export.Use)
	assert.NotNil(t, export.Flags().Lookup("out"))

	login := NewLoginCommand(cfg)
	assert.NotEmpty(t, login.Short)
	assert.NotNil(t, login.Flags().Lookup("delete"))
}

func TestListCommandOutput(t *testing.T) {
	cfg := testConfig(t)
	cmd := NewListCommand(cfg)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env", "idfdev"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "db/password")
	assert.Contains(t, out.String(), "Database password")
	assert.Contains(t, out.String(), "generate")
}

func TestStaticTemplateCommandOutput(t *testing.T) {
	cfg := testConfig(t)
	cmd := NewStaticTemplateCommand(cfg)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--env", "idfdev"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "password")
	assert.NotContains(t, out.String(), "session-key", "generated secrets are not static")
}

func TestListCommandUnknownEnvironment(t *testing.T) {
	cfg := testConfig(t)
	cmd := NewListCommand(cfg)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--env", "nonexistent"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestKeyringTarget(t *testing.T) {
	t.Parallel()

	service, account, err := keyringTarget("vault")
	require.NoError(t, err)
	assert.Equal(t, vault.KeyringService, service)
	assert.Equal(t, vault.KeyringAccount, account)

	service, account, err = keyringTarget("1password")
	require.NoError(t, err)
	assert.Equal(t, onepassword.KeyringService, service)
	assert.Equal(t, onepassword.KeyringAccount, account)

	_, _, err = keyringTarget("bitwarden")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown backend")
}
