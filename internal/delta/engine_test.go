package delta

import (
	"testing"
	"time"

	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
	"github.com/cloudgovern/policyaudit/internal/domain/exemption"
	"github.com/cloudgovern/policyaudit/internal/domain/snapshot"
)

func record(name, scope, effect string, mode assignment.EnforcementMode, nonCompliant int, risk assignment.ImpactLevel) assignment.Record {
	return assignment.Record{
		AssignmentName:            name,
		ScopePath:                 scope,
		Effect:                    effect,
		EnforcementMode:           mode,
		NonCompliantResourceCount: nonCompliant,
		RiskLevel:                 risk,
	}
}

func previousSnapshot(assignments []assignment.Record, exemptions []exemption.Record) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		ID:          "snap-prev",
		Timestamp:   time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		TenantID:    "tenant-1",
		Assignments: assignments,
		Exemptions:  exemptions,
	}
}

func TestEngine_Compute_MissingPrevious(t *testing.T) {
	e := New()

	if _, err := e.Compute(nil, nil, nil, ""); err == nil {
		t.Error("Compute(nil previous) error = nil, want error")
	}

	if _, err := e.Compute(&snapshot.Snapshot{ID: "x"}, nil, nil, ""); err == nil {
		t.Error("Compute(zero timestamp) error = nil, want error")
	}
}

func TestEngine_Compute_ScopeIdentity(t *testing.T) {
	e := New()

	// Same rule name bound at two independent scopes. Moving it from one
	// scope to another must report one removal and one addition, never a
	// change entry.
	prev := previousSnapshot([]assignment.Record{
		record("require-tags", "/providers/Microsoft.Management/managementGroups/org-a", "Modify", assignment.Enforced, 0, assignment.LevelLow),
	}, nil)
	current := []assignment.Record{
		record("require-tags", "/providers/Microsoft.Management/managementGroups/org-b", "Modify", assignment.Enforced, 0, assignment.LevelLow),
	}

	result, err := e.Compute(prev, current, nil, "")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if len(result.NewAssignments) != 1 || result.NewAssignments[0].ScopePath != "/providers/Microsoft.Management/managementGroups/org-b" {
		t.Errorf("NewAssignments = %+v, want one at org-b", result.NewAssignments)
	}
	if len(result.RemovedAssignments) != 1 || result.RemovedAssignments[0].ScopePath != "/providers/Microsoft.Management/managementGroups/org-a" {
		t.Errorf("RemovedAssignments = %+v, want one at org-a", result.RemovedAssignments)
	}
	if len(result.ChangedAssignments) != 0 {
		t.Errorf("ChangedAssignments = %+v, want none", result.ChangedAssignments)
	}
}

func TestEngine_Compute_TrackedFieldChanges(t *testing.T) {
	e := New()

	prev := previousSnapshot([]assignment.Record{
		record("deny-public-ip", "/subscriptions/sub-1", "Deny", assignment.Enforced, 5, assignment.LevelMedium),
		record("audit-vms", "/subscriptions/sub-1", "Audit", assignment.Enforced, 2, assignment.LevelLow),
	}, nil)
	current := []assignment.Record{
		record("deny-public-ip", "/subscriptions/sub-1", "Deny", assignment.NotEnforced, 9, assignment.LevelHigh),
		record("audit-vms", "/subscriptions/sub-1", "Audit", assignment.Enforced, 2, assignment.LevelLow),
	}

	result, err := e.Compute(prev, current, nil, "")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if len(result.ChangedAssignments) != 1 {
		t.Fatalf("ChangedAssignments = %d, want 1", len(result.ChangedAssignments))
	}
	change := result.ChangedAssignments[0]
	if change.AssignmentName != "deny-public-ip" {
		t.Errorf("changed assignment = %s, want deny-public-ip", change.AssignmentName)
	}

	fields := map[string][2]string{}
	for _, f := range change.Changes {
		fields[f.Field] = [2]string{f.Previous, f.Current}
	}
	if got := fields["enforcement_mode"]; got != [2]string{"Enforced", "NotEnforced"} {
		t.Errorf("enforcement_mode change = %v", got)
	}
	if got := fields["non_compliant_resource_count"]; got != [2]string{"5", "9"} {
		t.Errorf("non_compliant_resource_count change = %v", got)
	}
	if got := fields["risk_level"]; got != [2]string{"Medium", "High"} {
		t.Errorf("risk_level change = %v", got)
	}
	if _, ok := fields["effect"]; ok {
		t.Error("effect reported as changed when identical")
	}
}

func TestEngine_Compute_EffectDistribution(t *testing.T) {
	e := New()

	prev := previousSnapshot([]assignment.Record{
		record("a", "/subscriptions/s", "Deny", assignment.Enforced, 0, assignment.LevelLow),
		record("b", "/subscriptions/s", "Deny", assignment.Enforced, 0, assignment.LevelLow),
		record("c", "/subscriptions/s", "Audit(5), Deny(2)", assignment.Enforced, 0, assignment.LevelLow),
	}, nil)
	current := []assignment.Record{
		record("a", "/subscriptions/s", "Deny", assignment.Enforced, 0, assignment.LevelLow),
		// composite label changed: opaque comparison, counts as a
		// different label entirely
		record("c", "/subscriptions/s", "Audit(4), Deny(3)", assignment.Enforced, 0, assignment.LevelLow),
	}

	result, err := e.Compute(prev, current, nil, "")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	byEffect := map[string]snapshot.EffectCountDelta{}
	for _, d := range result.EffectDeltas {
		byEffect[d.Effect] = d
	}

	if got := byEffect["Deny"]; got.Previous != 2 || got.Current != 1 || got.Delta != -1 {
		t.Errorf("Deny delta = %+v", got)
	}
	if got := byEffect["Audit(5), Deny(2)"]; got.Previous != 1 || got.Current != 0 {
		t.Errorf("old composite delta = %+v", got)
	}
	if got := byEffect["Audit(4), Deny(3)"]; got.Previous != 0 || got.Current != 1 {
		t.Errorf("new composite delta = %+v", got)
	}
}

func TestEngine_Compute_ScopeFilter(t *testing.T) {
	e := New()

	// Previous snapshot was tenant-wide; current run is scoped to sub-1.
	// The sub-2 assignment must not be reported as removed.
	prev := previousSnapshot([]assignment.Record{
		record("deny-public-ip", "/subscriptions/sub-1", "Deny", assignment.Enforced, 0, assignment.LevelLow),
		record("deny-public-ip", "/subscriptions/sub-2", "Deny", assignment.Enforced, 0, assignment.LevelLow),
	}, nil)
	current := []assignment.Record{
		record("deny-public-ip", "/subscriptions/sub-1", "Deny", assignment.Enforced, 0, assignment.LevelLow),
	}

	result, err := e.Compute(prev, current, nil, "/subscriptions/sub-1")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if len(result.RemovedAssignments) != 0 {
		t.Errorf("RemovedAssignments = %+v, want none with scope filter", result.RemovedAssignments)
	}
	if result.HasChanges() {
		t.Errorf("HasChanges() = true for identical scoped runs")
	}
	if result.Trend != snapshot.TrendStable {
		t.Errorf("Trend = %v, want Stable", result.Trend)
	}
}

func TestEngine_Compute_Exemptions(t *testing.T) {
	e := New()

	prev := previousSnapshot(nil, []exemption.Record{
		{ExemptionName: "old-waiver", ScopePath: "/subscriptions/sub-1"},
		{ExemptionName: "kept-waiver", ScopePath: "/subscriptions/sub-1"},
	})
	current := []exemption.Record{
		{ExemptionName: "kept-waiver", ScopePath: "/subscriptions/sub-1"},
		{ExemptionName: "new-waiver", ScopePath: "/subscriptions/sub-1"},
	}

	result, err := e.Compute(prev, nil, current, "")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if len(result.NewExemptions) != 1 || result.NewExemptions[0].ExemptionName != "new-waiver" {
		t.Errorf("NewExemptions = %+v", result.NewExemptions)
	}
	if len(result.RemovedExemptions) != 1 || result.RemovedExemptions[0].ExemptionName != "old-waiver" {
		t.Errorf("RemovedExemptions = %+v", result.RemovedExemptions)
	}
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		name  string
		delta snapshot.DeltaResult
		want  snapshot.Trend
	}{
		{
			name:  "fewer violations, same risk, same enforcement",
			delta: snapshot.DeltaResult{NonCompliantDelta: -3},
			want:  snapshot.TrendImproving,
		},
		{
			name:  "fewer violations but enforcement dropped",
			delta: snapshot.DeltaResult{NonCompliantDelta: -3, EnforcedDelta: -1},
			want:  snapshot.TrendMixed,
		},
		{
			name:  "more violations always degrades",
			delta: snapshot.DeltaResult{NonCompliantDelta: 2, HighRiskDelta: -1},
			want:  snapshot.TrendDegrading,
		},
		{
			name:  "more high risk degrades even with fewer violations",
			delta: snapshot.DeltaResult{NonCompliantDelta: -5, HighRiskDelta: 1},
			want:  snapshot.TrendDegrading,
		},
		{
			name:  "no movement is stable",
			delta: snapshot.DeltaResult{},
			want:  snapshot.TrendStable,
		},
		{
			name:  "stable counts with enforcement loss is still stable",
			delta: snapshot.DeltaResult{EnforcedDelta: -2},
			want:  snapshot.TrendStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := verdict(&tt.delta); got != tt.want {
				t.Errorf("verdict() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngine_Compute_AggregateDeltas(t *testing.T) {
	e := New()

	prev := previousSnapshot([]assignment.Record{
		record("a", "/subscriptions/s", "Deny", assignment.Enforced, 10, assignment.LevelHigh),
		record("b", "/subscriptions/s", "Audit", assignment.NotEnforced, 4, assignment.LevelLow),
	}, nil)
	current := []assignment.Record{
		record("a", "/subscriptions/s", "Deny", assignment.Enforced, 6, assignment.LevelHigh),
		record("b", "/subscriptions/s", "Audit", assignment.Enforced, 2, assignment.LevelLow),
	}

	result, err := e.Compute(prev, current, nil, "")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if result.NonCompliantDelta != -6 {
		t.Errorf("NonCompliantDelta = %d, want -6", result.NonCompliantDelta)
	}
	if result.HighRiskDelta != 0 {
		t.Errorf("HighRiskDelta = %d, want 0", result.HighRiskDelta)
	}
	if result.EnforcedDelta != 1 {
		t.Errorf("EnforcedDelta = %d, want 1", result.EnforcedDelta)
	}
	if result.Trend != snapshot.TrendImproving {
		t.Errorf("Trend = %v, want Improving", result.Trend)
	}
}

func TestEngine_Compute_Symmetry(t *testing.T) {
	e := New()

	shared := record("deny-public-ip", "/subscriptions/sub-1", "Deny", assignment.Enforced, 0, assignment.LevelHigh)
	onlyA := record("audit-vms", "/subscriptions/sub-1", "Audit", assignment.Enforced, 0, assignment.LevelLow)
	onlyB := record("require-tags", "/subscriptions/sub-1", "Modify", assignment.Enforced, 0, assignment.LevelLow)

	setA := []assignment.Record{shared, onlyA}
	setB := []assignment.Record{shared, onlyB}

	forward, err := e.Compute(previousSnapshot(setA, nil), setB, nil, "")
	if err != nil {
		t.Fatalf("Compute(A, B) error = %v", err)
	}
	backward, err := e.Compute(previousSnapshot(setB, nil), setA, nil, "")
	if err != nil {
		t.Fatalf("Compute(B, A) error = %v", err)
	}

	if len(forward.NewAssignments) != 1 || forward.NewAssignments[0].Key() != onlyB.Key() {
		t.Errorf("forward new = %+v, want %s", forward.NewAssignments, onlyB.Key())
	}
	if len(backward.RemovedAssignments) != 1 || backward.RemovedAssignments[0].Key() != onlyB.Key() {
		t.Errorf("backward removed = %+v, want %s", backward.RemovedAssignments, onlyB.Key())
	}
	if len(forward.RemovedAssignments) != 1 || forward.RemovedAssignments[0].Key() != onlyA.Key() {
		t.Errorf("forward removed = %+v, want %s", forward.RemovedAssignments, onlyA.Key())
	}
	if len(backward.NewAssignments) != 1 || backward.NewAssignments[0].Key() != onlyA.Key() {
		t.Errorf("backward new = %+v, want %s", backward.NewAssignments, onlyA.Key())
	}
}
