// Package secrets defines the declaration model for per-application
// secrets: how each secret's value is derived (literal, copy, generate,
// static), the redaction-aware Value type, and the composite pull
// secret.
package secrets

import (
	"fmt"

	dserrors "github.com/systmms/secretsync/internal/errors"
)

// Ref identifies one secret as an (application, key) pair.
type Ref struct {
	Application string `yaml:"application" json:"application"`
	Key         string `yaml:"key" json:"key"`
}

func (r Ref) String() string {
	return r.Application + "/" + r.Key
}

// RuleKind enumerates the provenance rules a declaration can carry.
// Exactly one kind applies to any valid declaration.
type RuleKind int

const (
	// RuleStatic means the value comes from a static source or the
	// current stored value; nothing is computed.
	RuleStatic RuleKind = iota
	// RuleLiteral means the value is fixed in configuration.
	RuleLiteral
	// RuleCopy means the value duplicates another secret's resolved value.
	RuleCopy
	// RuleGenerate means the value is produced by a generator.
	RuleGenerate
	// RuleGenerateFromSource means the generator derives the value from
	// another resolved secret in the same application.
	RuleGenerateFromSource
)

func (k RuleKind) String() string {
	switch k {
	case RuleLiteral:
		return "literal"
	case RuleCopy:
		return "copy"
	case RuleGenerate:
		return "generate"
	case RuleGenerateFromSource:
		return "generate-from-source"
	default:
		return "static"
	}
}

// CopyRule references the secret whose resolved value is duplicated.
type CopyRule struct {
	Application string `yaml:"application" json:"application"`
	Key         string `yaml:"key" json:"key"`
}

// GenerateRule describes how a generated secret's value is produced.
// Source is set only for the derived generator types.
type GenerateRule struct {
	Type   GenerateType `yaml:"type" json:"type"`
	Source string       `yaml:"source,omitempty" json:"source,omitempty"`
}

// SourceOptions carries static-source metadata for a declaration.
type SourceOptions struct {
	// Encoded marks values the static source stores base64-encoded;
	// the adapter decodes them before resolution.
	Encoded bool `yaml:"encoded,omitempty" json:"encoded,omitempty"`
}

// Declaration describes how one secret's value should be derived. At
// most one of Literal, Copy and Generate is set; when none is set the
// secret is static.
type Declaration struct {
	Application string
	Key         string
	Description string
	Literal     *Value
	Copy        *CopyRule
	Generate    *GenerateRule
	Source      SourceOptions
}

// Ref returns the declaration's (application, key) identity.
func (d *Declaration) Ref() Ref {
	return Ref{Application: d.Application, Key: d.Key}
}

// Kind returns the declaration's rule kind.
func (d *Declaration) Kind() RuleKind {
	switch {
	case d.Literal != nil:
		return RuleLiteral
	case d.Copy != nil:
		return RuleCopy
	case d.Generate != nil && d.Generate.Type.RequiresSource():
		return RuleGenerateFromSource
	case d.Generate != nil:
		return RuleGenerate
	default:
		return RuleStatic
	}
}

// DependsOn returns the secret this declaration needs resolved first,
// if any. Copy rules reference an arbitrary secret; source generators
// reference a key within the same application.
func (d *Declaration) DependsOn() (Ref, bool) {
	switch d.Kind() {
	case RuleCopy:
		return Ref{Application: d.Copy.Application, Key: d.Copy.Key}, true
	case RuleGenerateFromSource:
		return Ref{Application: d.Application, Key: d.Generate.Source}, true
	default:
		return Ref{}, false
	}
}

// Validate checks that the declaration carries exactly one well-formed
// rule.
func (d *Declaration) Validate() error {
	rules := 0
	if d.Literal != nil {
		rules++
	}
	if d.Copy != nil {
		rules++
	}
	if d.Generate != nil {
		rules++
	}
	if rules > 1 {
		return dserrors.ConfigError{
			Field:      d.Ref().String(),
			Message:    "secret declares more than one of value, copy and generate",
			Suggestion: "Keep exactly one provenance rule per secret",
		}
	}
	if d.Copy != nil && (d.Copy.Application == "" || d.Copy.Key == "") {
		return dserrors.ConfigError{
			Field:      d.Ref().String(),
			Message:    "copy rule must name both application and key",
			Suggestion: "Set copy.application and copy.key",
		}
	}
	if d.Generate != nil {
		if !d.Generate.Type.known() {
			return dserrors.ConfigError{
				Field:      d.Ref().String(),
				Value:      string(d.Generate.Type),
				Message:    "unknown generate type",
				Suggestion: fmt.Sprintf("Use one of: %s", knownGenerateTypes()),
			}
		}
		if d.Generate.Type.RequiresSource() && d.Generate.Source == "" {
			return dserrors.ConfigError{
				Field:      d.Ref().String(),
				Message:    fmt.Sprintf("generate type %s requires a source key", d.Generate.Type),
				Suggestion: "Set generate.source to another key in the same application",
			}
		}
		if !d.Generate.Type.RequiresSource() && d.Generate.Source != "" {
			return dserrors.ConfigError{
				Field:      d.Ref().String(),
				Message:    fmt.Sprintf("generate type %s does not take a source key", d.Generate.Type),
				Suggestion: "Remove generate.source or use a derived generate type",
			}
		}
	}
	return nil
}

// EvalInput carries everything a single evaluation pass may consult:
// the current stored value, the static value, the resolved value of the
// declaration's dependency, and the regenerate flag.
type EvalInput struct {
	Current    *Value
	Static     *Value
	Dependency *Value
	Regenerate bool
}

// Evaluate attempts to produce the declaration's value for one resolver
// pass. The boolean is false when the declaration cannot be resolved
// yet (its dependency is still pending, or a static secret has no
// source at all); that is not an error, it drives the fixpoint loop.
// Evaluate has no side effects beyond drawing randomness for
// generators.
func (d *Declaration) Evaluate(in EvalInput) (Value, bool, error) {
	switch d.Kind() {
	case RuleLiteral:
		return *d.Literal, true, nil

	case RuleCopy:
		if in.Dependency == nil {
			return Value{}, false, nil
		}
		return *in.Dependency, true, nil

	case RuleGenerate:
		// Generated secrets are stable once created.
		if in.Current != nil && !in.Regenerate {
			return *in.Current, true, nil
		}
		return d.Generate.generate(nil)

	case RuleGenerateFromSource:
		if in.Current != nil && !in.Regenerate {
			return *in.Current, true, nil
		}
		if in.Dependency == nil {
			return Value{}, false, nil
		}
		return d.Generate.generate(in.Dependency)

	default:
		if in.Static != nil {
			return *in.Static, true, nil
		}
		if in.Current != nil {
			return *in.Current, true, nil
		}
		// No static source and no current value: unresolvable until
		// one appears, so the resolver reports it rather than letting
		// it surface later as a missing-secret audit finding.
		return Value{}, false, nil
	}
}
