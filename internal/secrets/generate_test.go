package secrets_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretsync/internal/secrets"
	"golang.org/x/crypto/bcrypt"
)

func TestGeneratePassword(t *testing.T) {
	t.Parallel()

	decl := secrets.Declaration{
		Application: "db", Key: "password",
		Generate: &secrets.GenerateRule{Type: secrets.GeneratePassword},
	}

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		got, ok, err := decl.Evaluate(secrets.EvalInput{})
		require.NoError(t, err)
		require.True(t, ok)
		raw := got.Reveal()
		assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9]{43}$`), raw)
		assert.False(t, seen[raw], "generator produced a duplicate")
		seen[raw] = true
	}
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	decl := secrets.Declaration{
		Application: "gafaelfawr", Key: "bootstrap-token",
		Generate: &secrets.GenerateRule{Type: secrets.GenerateToken},
	}

	got, ok, err := decl.Evaluate(secrets.EvalInput{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), got.Reveal())
}

func TestGenerateBcryptHash(t *testing.T) {
	t.Parallel()

	decl := secrets.Declaration{
		Application: "nublado", Key: "hub-password-hash",
		Generate: &secrets.GenerateRule{Type: secrets.GenerateBcryptHash, Source: "hub-password"},
	}

	source := secrets.NewValue("correct horse battery staple")
	got, ok, err := decl.Evaluate(secrets.EvalInput{Dependency: &source})
	require.NoError(t, err)
	require.True(t, ok)

	err = bcrypt.CompareHashAndPassword([]byte(got.Reveal()), []byte("correct horse battery staple"))
	assert.NoError(t, err, "hash must verify against the source secret")
}
