// Package store defines the narrow contract the reconciler uses to read
// and mutate the backing secret store, plus the immutable snapshot type
// the resolver and auditor operate on.
package store

import (
	"context"
	"fmt"

	"github.com/systmms/secretsync/internal/secrets"
)

// Snapshot is the observed store state for one environment, read once
// per operation: application → key → value.
type Snapshot map[string]map[string]secrets.Value

// Lookup returns the stored value for one secret, or nil when absent.
func (s Snapshot) Lookup(application, key string) *secrets.Value {
	values, ok := s[application]
	if !ok {
		return nil
	}
	value, ok := values[key]
	if !ok {
		return nil
	}
	return &value
}

// Copy returns a deep copy so callers can treat the original as an
// immutable baseline while working through a derived view.
func (s Snapshot) Copy() Snapshot {
	out := make(Snapshot, len(s))
	for application, values := range s {
		dup := make(map[string]secrets.Value, len(values))
		for key, value := range values {
			dup[key] = value
		}
		out[application] = dup
	}
	return out
}

// Client is the store collaborator contract. Calls are synchronous and
// either fully succeed or return an Error; the core never retries.
type Client interface {
	// GetEnvironmentSecrets retrieves the full store state for the
	// environment.
	GetEnvironmentSecrets(ctx context.Context) (Snapshot, error)
	// StoreApplicationSecret writes an application's entry wholesale,
	// replacing whatever was there.
	StoreApplicationSecret(ctx context.Context, application string, values map[string]secrets.Value) error
	// UpdateApplicationSecret writes one key within an application's
	// entry, leaving other keys untouched.
	UpdateApplicationSecret(ctx context.Context, application, key string, value secrets.Value) error
	// DeleteApplicationSecret removes an application's entry entirely.
	DeleteApplicationSecret(ctx context.Context, application string) error
}

// Error wraps a store-communication failure with the operation and
// target that produced it.
type Error struct {
	Op          string
	Application string
	Err         error
}

func (e *Error) Error() string {
	if e.Application != "" {
		return fmt.Sprintf("store %s failed for %s: %v", e.Op, e.Application, e.Err)
	}
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
