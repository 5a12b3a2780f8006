package secure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretsync/internal/secure"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	token := secure.NewTokenFromString("hvs.example-token")

	var got string
	err := token.Use(func(plaintext []byte) error {
		got = string(plaintext)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hvs.example-token", got)
}

func TestTokenUseAfterClear(t *testing.T) {
	t.Parallel()

	token := secure.NewTokenFromString("hvs.example-token")
	token.Clear()
	token.Clear() // idempotent

	var got []byte
	err := token.Use(func(plaintext []byte) error {
		got = plaintext
		return nil
	})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenUseDoesNotRetainPlaintext(t *testing.T) {
	t.Parallel()

	token := secure.NewToken([]byte("abc123"))

	// Each Use opens a fresh buffer; repeated calls see the same value.
	for i := 0; i < 3; i++ {
		var got string
		err := token.Use(func(plaintext []byte) error {
			got = string(plaintext)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "abc123", got)
	}
}
