package secrets_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretsync/internal/secrets"
)

func TestPullSecretToDockerConfigJSON(t *testing.T) {
	t.Parallel()

	pull := &secrets.PullSecret{
		Registries: map[string]secrets.RegistryCredential{
			"docker.io": {
				Username: "robot",
				Password: secrets.NewValue("s3cret"),
				Email:    "robot@example.com",
			},
		},
	}

	value, err := pull.ToDockerConfigJSON()
	require.NoError(t, err)

	var parsed struct {
		Auths map[string]struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Email    string `json:"email"`
			Auth     string `json:"auth"`
		} `json:"auths"`
	}
	require.NoError(t, json.Unmarshal([]byte(value.Reveal()), &parsed))

	entry, ok := parsed.Auths["docker.io"]
	require.True(t, ok)
	assert.Equal(t, "robot", entry.Username)
	assert.Equal(t, "s3cret", entry.Password)
	assert.Equal(t, "robot@example.com", entry.Email)

	decoded, err := base64.StdEncoding.DecodeString(entry.Auth)
	require.NoError(t, err)
	assert.Equal(t, "robot:s3cret", string(decoded))
}

func TestPullSecretSerializationDeterministic(t *testing.T) {
	t.Parallel()

	pull := &secrets.PullSecret{
		Registries: map[string]secrets.RegistryCredential{
			"ghcr.io":   {Username: "a", Password: secrets.NewValue("1")},
			"docker.io": {Username: "b", Password: secrets.NewValue("2")},
			"quay.io":   {Username: "c", Password: secrets.NewValue("3")},
		},
	}

	first, err := pull.ToDockerConfigJSON()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := pull.ToDockerConfigJSON()
		require.NoError(t, err)
		assert.True(t, first.Equal(again), "serialization must be stable across calls")
	}
}

func TestPullSecretHasRegistries(t *testing.T) {
	t.Parallel()

	var nilPull *secrets.PullSecret
	assert.False(t, nilPull.HasRegistries())
	assert.False(t, (&secrets.PullSecret{}).HasRegistries())
	assert.True(t, (&secrets.PullSecret{
		Registries: map[string]secrets.RegistryCredential{"docker.io": {}},
	}).HasRegistries())
}
