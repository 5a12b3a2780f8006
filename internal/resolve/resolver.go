// Package resolve turns secret declarations, a store snapshot and
// static values into a fully resolved secret set via iterative fixpoint
// passes.
package resolve

import (
	"fmt"
	"strings"

	"github.com/systmms/secretsync/internal/logging"
	"github.com/systmms/secretsync/internal/secrets"
	"github.com/systmms/secretsync/internal/store"
)

// Resolver computes concrete secret values from declarations.
type Resolver struct {
	logger *logging.Logger
}

// New creates a new resolver instance
func New(logger *logging.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// UnresolvedError reports declarations the fixpoint loop could not
// resolve: a cyclic copy/generate chain, a dependency that never
// resolves, or a static secret with no source and no current value.
type UnresolvedError struct {
	Secrets []secrets.Ref
}

func (e *UnresolvedError) Error() string {
	refs := make([]string, 0, len(e.Secrets))
	for _, ref := range e.Secrets {
		refs = append(refs, ref.String())
	}
	return "unable to resolve secrets: " + strings.Join(refs, ", ")
}

// Resolve computes a value for every declaration, or fails with an
// UnresolvedError naming the stuck declarations. The snapshot is only
// read; resolution performs no I/O.
//
// Declarations may depend on each other through copy and
// generate-from-source rules, but no dependency graph is built.
// Repeated relaxation passes discover a valid evaluation order lazily:
// each pass evaluates every pending declaration against the values
// resolved so far, and a pass that makes zero progress proves the
// remainder unsatisfiable, equivalent to topological-sort failure
// detection.
func (r *Resolver) Resolve(
	declarations []secrets.Declaration,
	snapshot store.Snapshot,
	static *secrets.StaticSecrets,
	regenerate bool,
) (*secrets.ResolvedSecrets, error) {
	resolved := make(map[string]map[string]secrets.Value)

	pending := make([]secrets.Declaration, len(declarations))
	copy(pending, declarations)
	left := len(pending)

	// A DAG resolves in at most len(declarations) passes, so the cap
	// only trips on a cycle or a progress-tracking bug.
	maxPasses := len(declarations) + 1

	for pass := 0; len(pending) > 0; pass++ {
		if pass >= maxPasses {
			return nil, &UnresolvedError{Secrets: refs(pending)}
		}

		var unresolved []secrets.Declaration
		for i := range pending {
			decl := &pending[i]
			in := secrets.EvalInput{
				Current:    snapshot.Lookup(decl.Application, decl.Key),
				Static:     static.Lookup(decl.Application, decl.Key),
				Regenerate: regenerate,
			}
			if dep, ok := decl.DependsOn(); ok {
				in.Dependency = lookup(resolved, dep)
			}

			value, ok, err := decl.Evaluate(in)
			if err != nil {
				return nil, fmt.Errorf("failed to evaluate %s: %w", decl.Ref(), err)
			}
			if !ok {
				unresolved = append(unresolved, *decl)
				continue
			}
			if resolved[decl.Application] == nil {
				resolved[decl.Application] = make(map[string]secrets.Value)
			}
			resolved[decl.Application][decl.Key] = value
		}

		if len(unresolved) >= left {
			return nil, &UnresolvedError{Secrets: refs(unresolved)}
		}
		left = len(unresolved)
		pending = unresolved
		r.logger.Debug("resolution pass %d complete, %d secrets pending", pass+1, left)
	}

	out := &secrets.ResolvedSecrets{Applications: resolved}
	if static != nil {
		out.PullSecret = static.PullSecret
	}
	return out, nil
}

func lookup(resolved map[string]map[string]secrets.Value, ref secrets.Ref) *secrets.Value {
	values, ok := resolved[ref.Application]
	if !ok {
		return nil
	}
	value, ok := values[ref.Key]
	if !ok {
		return nil
	}
	return &value
}

func refs(declarations []secrets.Declaration) []secrets.Ref {
	out := make([]secrets.Ref, 0, len(declarations))
	for i := range declarations {
		out = append(out, declarations[i].Ref())
	}
	return out
}
