package secrets

// StaticSecret is one externally supplied secret value. Value is nil
// when no value is known yet (template placeholders).
type StaticSecret struct {
	Description string `yaml:"description,omitempty"`
	Value       *Value `yaml:"value"`
}

// StaticSecrets holds every externally supplied secret for an
// environment, grouped by application, plus the optional pull secret.
type StaticSecrets struct {
	Applications map[string]map[string]StaticSecret `yaml:"applications"`
	PullSecret   *PullSecret                        `yaml:"pull-secret,omitempty"`
}

// ForApplication returns the static secrets for one application, or an
// empty map when none are defined.
func (s *StaticSecrets) ForApplication(application string) map[string]StaticSecret {
	if s == nil || s.Applications == nil {
		return map[string]StaticSecret{}
	}
	values, ok := s.Applications[application]
	if !ok {
		return map[string]StaticSecret{}
	}
	return values
}

// Lookup returns the static value for one secret, or nil when the
// static source has nothing for it.
func (s *StaticSecrets) Lookup(application, key string) *Value {
	secret, ok := s.ForApplication(application)[key]
	if !ok {
		return nil
	}
	return secret.Value
}
