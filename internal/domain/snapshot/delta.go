package snapshot

import (
	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
	"github.com/cloudgovern/policyaudit/internal/domain/exemption"
)

// Trend is the overall verdict of a delta comparison.
type Trend string

const (
	TrendImproving Trend = "Improving"
	TrendDegrading Trend = "Degrading"
	TrendStable    Trend = "Stable"
	TrendMixed     Trend = "Mixed"
)

// FieldChange is one tracked field that differs between two runs.
type FieldChange struct {
	Field    string `json:"field"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// AssignmentChange collects the field-level differences for one assignment
// present in both snapshots.
type AssignmentChange struct {
	AssignmentName string        `json:"assignment_name"`
	ScopePath      string        `json:"scope_path"`
	Changes        []FieldChange `json:"changes"`
}

// EffectCountDelta is the signed count change for one effect label.
type EffectCountDelta struct {
	Effect   string `json:"effect"`
	Previous int    `json:"previous"`
	Current  int    `json:"current"`
	Delta    int    `json:"delta"`
}

// DeltaResult is the structured comparison of two assessment runs.
type DeltaResult struct {
	PreviousID         string              `json:"previous_id,omitempty"`
	PreviousTimestamp  string              `json:"previous_timestamp,omitempty"`
	NewAssignments     []assignment.Record `json:"new_assignments"`
	RemovedAssignments []assignment.Record `json:"removed_assignments"`
	ChangedAssignments []AssignmentChange  `json:"changed_assignments"`
	EffectDeltas       []EffectCountDelta  `json:"effect_deltas"`
	NewExemptions      []exemption.Record  `json:"new_exemptions"`
	RemovedExemptions  []exemption.Record  `json:"removed_exemptions"`
	NonCompliantDelta  int                 `json:"non_compliant_delta"`
	HighRiskDelta      int                 `json:"high_risk_delta"`
	EnforcedDelta      int                 `json:"enforced_delta"`
	Trend              Trend               `json:"trend"`
}

// HasChanges reports whether the delta carries any difference at all.
func (d *DeltaResult) HasChanges() bool {
	return len(d.NewAssignments) > 0 ||
		len(d.RemovedAssignments) > 0 ||
		len(d.ChangedAssignments) > 0 ||
		len(d.NewExemptions) > 0 ||
		len(d.RemovedExemptions) > 0 ||
		len(d.EffectDeltas) > 0
}
