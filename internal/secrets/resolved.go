package secrets

// ResolvedSecrets is the complete, concrete set of secret values
// computed for one environment: every resolvable declaration appears
// exactly once. It is an ephemeral result consumed immediately by the
// reconciler or auditor.
type ResolvedSecrets struct {
	Applications map[string]map[string]Value
	PullSecret   *PullSecret
}

// Lookup returns the resolved value for one secret, or nil when the
// secret has not been resolved.
func (r *ResolvedSecrets) Lookup(application, key string) *Value {
	values, ok := r.Applications[application]
	if !ok {
		return nil
	}
	value, ok := values[key]
	if !ok {
		return nil
	}
	return &value
}
