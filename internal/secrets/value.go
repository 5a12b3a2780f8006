package secrets

import "gopkg.in/yaml.v3"

// Value holds one secret value. The raw text is only reachable through
// Reveal; Stringer, GoStringer and the marshal interfaces all produce a
// redaction marker so a value can never leak through incidental
// formatting or serialization.
type Value struct {
	raw string
}

// NewValue wraps raw secret text in a redaction-aware Value.
func NewValue(raw string) Value {
	return Value{raw: raw}
}

// Reveal returns the raw secret text. This is the only accessor; call
// sites that need the plaintext (store writes, explicit exports) must
// use it deliberately.
func (v Value) Reveal() string {
	return v.raw
}

// Equal reports whether two values hold identical raw text.
func (v Value) Equal(other Value) bool {
	return v.raw == other.raw
}

// IsZero reports whether the value is empty.
func (v Value) IsZero() bool {
	return v.raw == ""
}

// String implements the Stringer interface, always returning a redacted value
func (v Value) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (v Value) GoString() string {
	return "[REDACTED]"
}

// MarshalJSON redacts the value. Exports that need the raw text build
// plain structures from Reveal explicitly.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(`"[REDACTED]"`), nil
}

// MarshalYAML redacts the value, mirroring MarshalJSON.
func (v Value) MarshalYAML() (interface{}, error) {
	return "[REDACTED]", nil
}

// UnmarshalYAML reads a raw scalar into the value so user-provided
// static secret files can be parsed.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	v.raw = raw
	return nil
}
