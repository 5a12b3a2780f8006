package reconcile_test

import (
	"context"
	"fmt"

	"github.com/systmms/secretsync/internal/secrets"
	"github.com/systmms/secretsync/internal/store"
)

// fakeStore is an in-memory store.Client that records mutations and
// applies them, so a second snapshot reflects the first sync.
type fakeStore struct {
	data    store.Snapshot
	calls   []string
	failOn  string
	failErr error
}

func newFakeStore(initial store.Snapshot) *fakeStore {
	if initial == nil {
		initial = store.Snapshot{}
	}
	return &fakeStore{data: initial.Copy()}
}

func (f *fakeStore) fail(op string) error {
	if f.failOn == op {
		if f.failErr != nil {
			return f.failErr
		}
		return &store.Error{Op: op, Err: fmt.Errorf("injected failure")}
	}
	return nil
}

func (f *fakeStore) GetEnvironmentSecrets(ctx context.Context) (store.Snapshot, error) {
	if err := f.fail("get"); err != nil {
		return nil, err
	}
	return f.data.Copy(), nil
}

func (f *fakeStore) StoreApplicationSecret(ctx context.Context, application string, values map[string]secrets.Value) error {
	if err := f.fail("store"); err != nil {
		return err
	}
	f.calls = append(f.calls, "store "+application)
	dup := make(map[string]secrets.Value, len(values))
	for key, value := range values {
		dup[key] = value
	}
	f.data[application] = dup
	return nil
}

func (f *fakeStore) UpdateApplicationSecret(ctx context.Context, application, key string, value secrets.Value) error {
	if err := f.fail("update"); err != nil {
		return err
	}
	f.calls = append(f.calls, "update "+application+" "+key)
	if f.data[application] == nil {
		f.data[application] = map[string]secrets.Value{}
	}
	f.data[application][key] = value
	return nil
}

func (f *fakeStore) DeleteApplicationSecret(ctx context.Context, application string) error {
	if err := f.fail("delete"); err != nil {
		return err
	}
	f.calls = append(f.calls, "delete "+application)
	delete(f.data, application)
	return nil
}

var _ store.Client = (*fakeStore)(nil)
