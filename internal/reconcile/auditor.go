package reconcile

import (
	"github.com/systmms/secretsync/internal/secrets"
	"github.com/systmms/secretsync/internal/store"
)

// Classification labels one audit finding.
type Classification string

const (
	// ClassMissing marks a resolved secret absent from the store.
	ClassMissing Classification = "missing"
	// ClassMismatch marks a stored value that differs from the
	// resolved one.
	ClassMismatch Classification = "mismatch"
	// ClassUnknown marks a stored secret the resolved set does not
	// expect.
	ClassUnknown Classification = "unknown"
)

// Finding is one classified difference between resolved and stored
// state.
type Finding struct {
	Classification Classification `json:"classification"`
	Application    string         `json:"application"`
	Key            string         `json:"key"`
}

// Report lists audit findings grouped missing → mismatch → unknown,
// each group in sorted (application, key) order so reports are stable
// across runs. Secrets that are present and equal produce no finding.
type Report struct {
	Findings []Finding `json:"findings"`
}

// Clean reports whether the audit found no differences.
func (r *Report) Clean() bool {
	return len(r.Findings) == 0
}

// ByClassification returns the findings in one group, preserving order.
func (r *Report) ByClassification(class Classification) []Finding {
	var out []Finding
	for _, finding := range r.Findings {
		if finding.Classification == class {
			out = append(out, finding)
		}
	}
	return out
}

// Auditor is the read-only variant of the diff: it classifies
// differences without touching the store.
type Auditor struct{}

// NewAuditor creates an auditor.
func NewAuditor() *Auditor {
	return &Auditor{}
}

// Audit classifies every (application, key) in the union of the
// resolved set and the snapshot as ok, missing, mismatch or unknown.
// Exactly one classification applies to each pair; ok pairs are
// omitted from the report. A configured pull secret is compared by its
// serialized form, the same unit Sync writes.
func (a *Auditor) Audit(resolved *secrets.ResolvedSecrets, snapshot store.Snapshot) (*Report, error) {
	initMetrics()

	// The snapshot is an immutable baseline; consume a copy while
	// accounting for resolved keys.
	remaining := snapshot.Copy()

	expected := resolved.Applications
	if resolved.PullSecret.HasRegistries() {
		value, err := resolved.PullSecret.ToDockerConfigJSON()
		if err != nil {
			return nil, err
		}
		expected = make(map[string]map[string]secrets.Value, len(resolved.Applications)+1)
		for application, values := range resolved.Applications {
			expected[application] = values
		}
		expected[secrets.PullSecretApplication] = map[string]secrets.Value{secrets.DockerConfigKey: value}
	} else if resolved.PullSecret != nil {
		// A configured pull secret with no registries yet writes nothing,
		// but its store entry is still owned, matching the deletion
		// protection in Sync: accounted for, not unknown.
		delete(remaining, secrets.PullSecretApplication)
	}

	var missing, mismatch, unknown []Finding

	for _, application := range sortedKeys(expected) {
		values := expected[application]
		for _, key := range sortedKeys(values) {
			stored := remaining.Lookup(application, key)
			if stored == nil {
				missing = append(missing, Finding{ClassMissing, application, key})
				continue
			}
			if !stored.Equal(values[key]) {
				mismatch = append(mismatch, Finding{ClassMismatch, application, key})
			}
			delete(remaining[application], key)
		}
	}

	for _, application := range sortedKeys(remaining) {
		for _, key := range sortedKeys(remaining[application]) {
			unknown = append(unknown, Finding{ClassUnknown, application, key})
		}
	}

	report := &Report{}
	report.Findings = append(report.Findings, missing...)
	report.Findings = append(report.Findings, mismatch...)
	report.Findings = append(report.Findings, unknown...)

	for _, finding := range report.Findings {
		auditFindingsTotal.WithLabelValues(string(finding.Classification)).Inc()
	}
	return report, nil
}
