package snapshot

import (
	"testing"
	"time"

	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
	"github.com/cloudgovern/policyaudit/internal/domain/exemption"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	records := []assignment.Record{
		{
			AssignmentName:            "deny-public-ip",
			Effect:                    "Deny",
			EnforcementMode:           assignment.Enforced,
			RiskLevel:                 assignment.LevelHigh,
			NonCompliantResourceCount: 7,
			TotalResourceCount:        40,
		},
		{
			AssignmentName:            "audit-tags",
			Effect:                    "Audit",
			EnforcementMode:           assignment.Enforced,
			RiskLevel:                 assignment.LevelLow,
			NonCompliantResourceCount: 3,
			TotalResourceCount:        40,
		},
		{
			AssignmentName:  "baseline",
			Effect:          "Deny",
			EnforcementMode: assignment.NotEnforced,
			RiskLevel:       assignment.LevelMedium,
		},
	}
	exemptions := []exemption.Record{
		{ExemptionName: "expired-waiver", ExpiresOn: &past},
		{ExemptionName: "active-waiver", ExpiresOn: &future},
		{ExemptionName: "permanent"},
	}

	s := Summarize(records, exemptions, now)

	if s.TotalAssignments != 3 {
		t.Errorf("TotalAssignments = %d, want 3", s.TotalAssignments)
	}
	if s.EnforcedCount != 2 || s.NotEnforcedCount != 1 {
		t.Errorf("enforced/not = %d/%d, want 2/1", s.EnforcedCount, s.NotEnforcedCount)
	}
	if s.HighRiskCount != 1 {
		t.Errorf("HighRiskCount = %d, want 1", s.HighRiskCount)
	}
	if s.NonCompliantResources != 10 || s.TotalResources != 80 {
		t.Errorf("resources = %d/%d, want 10/80", s.NonCompliantResources, s.TotalResources)
	}
	if s.EffectCounts["Deny"] != 2 || s.EffectCounts["Audit"] != 1 {
		t.Errorf("EffectCounts = %v", s.EffectCounts)
	}
	if s.ExemptionCount != 3 || s.ExpiredExemptionCount != 1 {
		t.Errorf("exemptions = %d total, %d expired; want 3, 1", s.ExemptionCount, s.ExpiredExemptionCount)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, nil, time.Now())
	if s.TotalAssignments != 0 || s.ExemptionCount != 0 {
		t.Errorf("Summarize(nil) = %+v, want zero counters", s)
	}
	if s.EffectCounts == nil {
		t.Error("EffectCounts is nil, want an initialized map")
	}
}
