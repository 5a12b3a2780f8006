package secrets_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/secretsync/internal/secrets"
	"gopkg.in/yaml.v3"
)

func TestValueRedaction(t *testing.T) {
	t.Parallel()

	v := secrets.NewValue("hunter2-password")

	assert.Equal(t, "[REDACTED]", v.String())
	assert.Equal(t, "[REDACTED]", v.GoString())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", v))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", v))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", v))
	assert.Equal(t, "hunter2-password", v.Reveal())
}

func TestValueMarshalRedacted(t *testing.T) {
	t.Parallel()

	v := secrets.NewValue("hunter2-password")

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(raw))
	assert.NotContains(t, string(raw), "hunter2")

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(out), "[REDACTED]")
	assert.NotContains(t, string(out), "hunter2")
}

func TestValueUnmarshalYAML(t *testing.T) {
	t.Parallel()

	var v secrets.Value
	require.NoError(t, yaml.Unmarshal([]byte("some-secret"), &v))
	assert.Equal(t, "some-secret", v.Reveal())
}

func TestValueEqual(t *testing.T) {
	t.Parallel()

	a := secrets.NewValue("x")
	b := secrets.NewValue("x")
	c := secrets.NewValue("y")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, secrets.Value{}.IsZero())
	assert.False(t, a.IsZero())
}
