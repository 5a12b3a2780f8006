// Package reconcile diffs resolved secrets against the store snapshot:
// the Reconciler applies create/update/delete operations and the
// Auditor classifies differences without mutating anything.
package reconcile

import "fmt"

// ChangeKind classifies a store mutation.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent records one store mutation. Key is empty for events that
// target a whole application entry (wholesale creates, deletes, and
// atomic pull-secret writes).
type ChangeEvent struct {
	Kind        ChangeKind `json:"kind"`
	Application string     `json:"application"`
	Key         string     `json:"key,omitempty"`
}

func (e ChangeEvent) String() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s %s", e.Kind, e.Application, e.Key)
	}
	return fmt.Sprintf("%s %s", e.Kind, e.Application)
}
