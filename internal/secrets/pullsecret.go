package secrets

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	// PullSecretApplication is the well-known application name the
	// composite pull secret is stored under.
	PullSecretApplication = "pull-secret"
	// DockerConfigKey is the well-known key the serialized pull secret
	// is stored under.
	DockerConfigKey = ".dockerconfigjson"
)

// RegistryCredential holds the login for one container registry.
type RegistryCredential struct {
	Username string `yaml:"username"`
	Password Value  `yaml:"password"`
	Email    string `yaml:"email,omitempty"`
}

// PullSecret describes container-registry credentials that serialize to
// a single composite secret value. It is compared and written as one
// opaque unit, never merged field by field.
type PullSecret struct {
	Registries map[string]RegistryCredential `yaml:"registries"`
}

// HasRegistries reports whether the pull secret has any credentials to
// serialize.
func (p *PullSecret) HasRegistries() bool {
	return p != nil && len(p.Registries) > 0
}

// ToDockerConfigJSON serializes the pull secret into the
// .dockerconfigjson format consumed by container runtimes. Output is
// deterministic: encoding/json sorts the registry map by key.
func (p *PullSecret) ToDockerConfigJSON() (Value, error) {
	type dockerAuth struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email,omitempty"`
		Auth     string `json:"auth"`
	}
	auths := make(map[string]dockerAuth, len(p.Registries))
	for registry, cred := range p.Registries {
		login := cred.Username + ":" + cred.Password.Reveal()
		auths[registry] = dockerAuth{
			Username: cred.Username,
			Password: cred.Password.Reveal(),
			Email:    cred.Email,
			Auth:     base64.StdEncoding.EncodeToString([]byte(login)),
		}
	}
	raw, err := json.Marshal(map[string]map[string]dockerAuth{"auths": auths})
	if err != nil {
		return Value{}, fmt.Errorf("failed to serialize pull secret: %w", err)
	}
	return NewValue(string(raw)), nil
}
