package onepassword_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/systmms/secretsync/internal/logging"
	"github.com/systmms/secretsync/internal/onepassword"
)

// newFakeConnect serves a single vault "IDF Dev" with an application
// item and a pull-secret item.
func newFakeConnect(t *testing.T) *httptest.Server {
	t.Helper()

	vaults := []map[string]string{{"id": "v1", "name": "IDF Dev"}}
	items := []map[string]string{
		{"id": "i1", "title": "db"},
		{"id": "i2", "title": "pull-secret"},
	}
	db := map[string]interface{}{
		"id":    "i1",
		"title": "db",
		"fields": []map[string]interface{}{
			{"id": "f1", "label": "password", "value": "hunter2"},
			{"id": "f2", "label": "admin-password", "value": "swordfish"},
			{"id": "notesPlain", "label": "", "value": "ignore me"},
		},
	}
	pullSecret := map[string]interface{}{
		"id":       "i2",
		"title":    "pull-secret",
		"sections": []map[string]string{{"id": "s1", "label": "registry.example.com"}},
		"fields": []map[string]interface{}{
			{"id": "f1", "label": "username", "value": "puller", "section": map[string]string{"id": "s1"}},
			{"id": "f2", "label": "password", "value": "pullpass", "section": map[string]string{"id": "s1"}},
			{"id": "f3", "label": "email", "value": "ops@example.com", "section": map[string]string{"id": "s1"}},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/vaults", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer connect-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(vaults)
	})
	mux.HandleFunc("/v1/vaults/v1/items", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(items)
	})
	mux.HandleFunc("/v1/vaults/v1/items/i1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(db)
	})
	mux.HandleFunc("/v1/vaults/v1/items/i2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(pullSecret)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, serverURL, vaultTitle string) *onepassword.Client {
	t.Helper()
	client, err := onepassword.New(onepassword.Config{
		ConnectURL: serverURL,
		VaultTitle: vaultTitle,
		Token:      "connect-token",
	}, logging.New(false, true))
	require.NoError(t, err)
	return client
}

func TestGetSecrets(t *testing.T) {
	server := newFakeConnect(t)
	client := newTestClient(t, server.URL, "IDF Dev")

	static, err := client.GetSecrets(context.Background(), map[string][]string{
		"db": {"password", "admin-password"},
	})
	require.NoError(t, err)

	password := static.Lookup("db", "password")
	require.NotNil(t, password)
	assert.Equal(t, "hunter2", password.Reveal())

	admin := static.Lookup("db", "admin-password")
	require.NotNil(t, admin)
	assert.Equal(t, "swordfish", admin.Reveal())
}

func TestGetSecretsSkipsMissing(t *testing.T) {
	server := newFakeConnect(t)
	client := newTestClient(t, server.URL, "IDF Dev")

	static, err := client.GetSecrets(context.Background(), map[string][]string{
		"db":      {"password", "no-such-field"},
		"unknown": {"whatever"},
	})
	require.NoError(t, err)

	assert.Nil(t, static.Lookup("db", "no-such-field"))
	assert.Nil(t, static.Lookup("unknown", "whatever"))
	assert.NotNil(t, static.Lookup("db", "password"))
}

func TestGetSecretsPullSecret(t *testing.T) {
	server := newFakeConnect(t)
	client := newTestClient(t, server.URL, "IDF Dev")

	static, err := client.GetSecrets(context.Background(), map[string][]string{})
	require.NoError(t, err)

	require.NotNil(t, static.PullSecret)
	credential, ok := static.PullSecret.Registries["registry.example.com"]
	require.True(t, ok)
	assert.Equal(t, "puller", credential.Username)
	assert.Equal(t, "pullpass", credential.Password.Reveal())
	assert.Equal(t, "ops@example.com", credential.Email)
}

func TestGetSecretsVaultNotFound(t *testing.T) {
	server := newFakeConnect(t)
	client := newTestClient(t, server.URL, "No Such Vault")

	_, err := client.GetSecrets(context.Background(), map[string][]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No Such Vault")
}

func TestNewRequiresToken(t *testing.T) {
	t.Setenv("OP_CONNECT_TOKEN", "")
	keyring.MockInit()

	_, err := onepassword.New(onepassword.Config{
		ConnectURL: "https://connect.example.com",
		VaultTitle: "IDF Dev",
	}, logging.New(false, true))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secretsync login onepassword")
}
