package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// GenerateType selects the generation function for a generate rule.
type GenerateType string

const (
	// GeneratePassword produces a random alphanumeric password.
	GeneratePassword GenerateType = "password"
	// GenerateToken produces a random hex token.
	GenerateToken GenerateType = "token"
	// GenerateBcryptHash derives a bcrypt hash of the source secret.
	GenerateBcryptHash GenerateType = "bcrypt-hash"
	// GenerateSHA256Hex derives a hex SHA-256 digest of the source secret.
	GenerateSHA256Hex GenerateType = "sha256-hex"
)

// generatedPasswordLength matches the entropy of a 32-byte secret
// encoded without padding.
const generatedPasswordLength = 43

// RequiresSource reports whether the generator derives its value from
// another resolved secret.
func (t GenerateType) RequiresSource() bool {
	return t == GenerateBcryptHash || t == GenerateSHA256Hex
}

func (t GenerateType) known() bool {
	switch t {
	case GeneratePassword, GenerateToken, GenerateBcryptHash, GenerateSHA256Hex:
		return true
	}
	return false
}

func knownGenerateTypes() string {
	return strings.Join([]string{
		string(GeneratePassword),
		string(GenerateToken),
		string(GenerateBcryptHash),
		string(GenerateSHA256Hex),
	}, ", ")
}

// generate produces a value for the rule. source must be non-nil for
// derived types; the resolver guarantees this.
func (g *GenerateRule) generate(source *Value) (Value, bool, error) {
	switch g.Type {
	case GeneratePassword:
		s, err := randomString(generatedPasswordLength)
		if err != nil {
			return Value{}, false, err
		}
		return NewValue(s), true, nil

	case GenerateToken:
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return Value{}, false, fmt.Errorf("failed to generate token: %w", err)
		}
		return NewValue(hex.EncodeToString(raw)), true, nil

	case GenerateBcryptHash:
		hash, err := bcrypt.GenerateFromPassword([]byte(source.Reveal()), bcrypt.DefaultCost)
		if err != nil {
			return Value{}, false, fmt.Errorf("failed to hash source secret: %w", err)
		}
		return NewValue(string(hash)), true, nil

	case GenerateSHA256Hex:
		digest := sha256.Sum256([]byte(source.Reveal()))
		return NewValue(hex.EncodeToString(digest[:])), true, nil

	default:
		return Value{}, false, fmt.Errorf("unknown generate type: %s", g.Type)
	}
}

// randomString creates a cryptographically secure random string over an
// alphanumeric charset.
func randomString(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = charset[randomBytes[i]%byte(len(charset))]
	}
	return string(out), nil
}
