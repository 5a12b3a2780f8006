package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Token holds a credential in an encrypted memguard enclave. The
// plaintext is decrypted only for the duration of a Use call and wiped
// afterwards.
//
// memguard.Enclave has no Destroy method of its own; the encrypted data
// is safe to leave for garbage collection. Callers that want a full
// sweep at process exit should defer memguard.Purge() in main.
type Token struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	cleared bool
}

// NewToken seals the given credential bytes into a protected enclave.
// The input slice is wiped by memguard; the caller must not reuse it.
func NewToken(data []byte) *Token {
	return &Token{enclave: memguard.NewEnclave(data)}
}

// NewTokenFromString seals a credential string into a protected enclave.
func NewTokenFromString(s string) *Token {
	return NewToken([]byte(s))
}

// Use decrypts the token and passes the plaintext to fn. The buffer is
// destroyed as soon as fn returns, so fn must not retain the slice.
func (t *Token) Use(fn func(plaintext []byte) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.cleared || t.enclave == nil {
		return fn(nil)
	}

	locked, err := t.enclave.Open()
	if err != nil {
		return err
	}
	defer locked.Destroy()
	return fn(locked.Bytes())
}

// Clear marks the token as unusable. Idempotent; after Clear, Use sees
// an empty credential.
func (t *Token) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cleared {
		return
	}
	t.enclave = nil
	t.cleared = true
}
