package reconcile

import (
	"context"
	"sort"

	"github.com/systmms/secretsync/internal/logging"
	"github.com/systmms/secretsync/internal/secrets"
	"github.com/systmms/secretsync/internal/store"
)

// Reconciler applies the difference between resolved secrets and the
// store snapshot. Mutations are incremental: a failure surfaces
// immediately and prior writes are not rolled back; the events returned
// alongside the error record what was already applied.
type Reconciler struct {
	store  store.Client
	logger *logging.Logger
}

// NewReconciler creates a reconciler that writes through the given
// store client.
func NewReconciler(client store.Client, logger *logging.Logger) *Reconciler {
	return &Reconciler{store: client, logger: logger}
}

// Sync brings the store in line with the resolved secrets. Unchanged
// keys are left untouched so the store is not rewritten needlessly.
// When deleteExtraneous is set, snapshot entries absent from the
// resolved set are removed, except the pull-secret entry whenever the
// environment has one.
func (r *Reconciler) Sync(
	ctx context.Context,
	resolved *secrets.ResolvedSecrets,
	snapshot store.Snapshot,
	deleteExtraneous bool,
) ([]ChangeEvent, error) {
	initMetrics()

	var events []ChangeEvent

	events, err := r.syncApplications(ctx, resolved, snapshot, events)
	if err != nil {
		return events, err
	}

	if resolved.PullSecret.HasRegistries() {
		events, err = r.syncPullSecret(ctx, resolved.PullSecret, snapshot, events)
		if err != nil {
			return events, err
		}
	}

	if deleteExtraneous {
		events, err = r.deleteExtraneous(ctx, resolved, snapshot, events)
		if err != nil {
			return events, err
		}
	}

	for _, event := range events {
		syncChangesTotal.WithLabelValues(string(event.Kind)).Inc()
	}
	return events, nil
}

// syncApplications creates missing application entries wholesale and
// updates individual keys that differ from the snapshot.
func (r *Reconciler) syncApplications(
	ctx context.Context,
	resolved *secrets.ResolvedSecrets,
	snapshot store.Snapshot,
	events []ChangeEvent,
) ([]ChangeEvent, error) {
	for _, application := range sortedKeys(resolved.Applications) {
		values := resolved.Applications[application]
		current, exists := snapshot[application]
		if !exists {
			if err := r.store.StoreApplicationSecret(ctx, application, values); err != nil {
				return events, err
			}
			r.logger.Info("Created store entry for %s", application)
			events = append(events, ChangeEvent{Kind: ChangeCreated, Application: application})
			continue
		}
		for _, key := range sortedKeys(values) {
			value := values[key]
			if stored, ok := current[key]; ok && stored.Equal(value) {
				continue
			}
			if err := r.store.UpdateApplicationSecret(ctx, application, key, value); err != nil {
				return events, err
			}
			r.logger.Info("Updated store entry for %s %s", application, key)
			events = append(events, ChangeEvent{Kind: ChangeUpdated, Application: application, Key: key})
		}
	}
	return events, nil
}

// syncPullSecret writes the composite pull secret as a single unit:
// the serialized value is compared whole against the snapshot entry and
// created or replaced atomically, never merged per field.
func (r *Reconciler) syncPullSecret(
	ctx context.Context,
	pull *secrets.PullSecret,
	snapshot store.Snapshot,
	events []ChangeEvent,
) ([]ChangeEvent, error) {
	value, err := pull.ToDockerConfigJSON()
	if err != nil {
		return events, err
	}
	desired := map[string]secrets.Value{secrets.DockerConfigKey: value}

	current, exists := snapshot[secrets.PullSecretApplication]
	if !exists {
		if err := r.store.StoreApplicationSecret(ctx, secrets.PullSecretApplication, desired); err != nil {
			return events, err
		}
		r.logger.Info("Created store entry for %s", secrets.PullSecretApplication)
		return append(events, ChangeEvent{Kind: ChangeCreated, Application: secrets.PullSecretApplication}), nil
	}
	if !secretMapsEqual(current, desired) {
		if err := r.store.StoreApplicationSecret(ctx, secrets.PullSecretApplication, desired); err != nil {
			return events, err
		}
		r.logger.Info("Updated store entry for %s", secrets.PullSecretApplication)
		return append(events, ChangeEvent{Kind: ChangeUpdated, Application: secrets.PullSecretApplication}), nil
	}
	return events, nil
}

// deleteExtraneous removes snapshot applications missing from the
// resolved set and snapshot keys the resolved set no longer declares.
// The pull-secret entry is never deleted while the environment is
// configured to have one.
func (r *Reconciler) deleteExtraneous(
	ctx context.Context,
	resolved *secrets.ResolvedSecrets,
	snapshot store.Snapshot,
	events []ChangeEvent,
) ([]ChangeEvent, error) {
	hasPullSecret := resolved.PullSecret != nil

	for _, application := range sortedKeys(snapshot) {
		values := snapshot[application]
		expected, exists := resolved.Applications[application]
		if !exists {
			if application == secrets.PullSecretApplication && hasPullSecret {
				continue
			}
			if err := r.store.DeleteApplicationSecret(ctx, application); err != nil {
				return events, err
			}
			r.logger.Info("Deleted store entry for %s", application)
			events = append(events, ChangeEvent{Kind: ChangeDeleted, Application: application})
			continue
		}

		var extraneous []string
		for key := range values {
			if _, ok := expected[key]; !ok {
				extraneous = append(extraneous, key)
			}
		}
		if len(extraneous) == 0 {
			continue
		}
		sort.Strings(extraneous)

		surviving := make(map[string]secrets.Value, len(values)-len(extraneous))
		for key, value := range values {
			if _, ok := expected[key]; ok {
				surviving[key] = value
			}
		}
		if err := r.store.StoreApplicationSecret(ctx, application, surviving); err != nil {
			return events, err
		}
		for _, key := range extraneous {
			r.logger.Info("Deleted store entry for %s %s", application, key)
			events = append(events, ChangeEvent{Kind: ChangeDeleted, Application: application, Key: key})
		}
	}
	return events, nil
}

func secretMapsEqual(a, b map[string]secrets.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for key, value := range a {
		other, ok := b[key]
		if !ok || !other.Equal(value) {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
