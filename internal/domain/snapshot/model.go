package snapshot

import (
	"time"

	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
	"github.com/cloudgovern/policyaudit/internal/domain/exemption"
)

// Summary holds aggregate counters for one assessment run.
type Summary struct {
	TotalAssignments      int            `json:"total_assignments"`
	EnforcedCount         int            `json:"enforced_count"`
	NotEnforcedCount      int            `json:"not_enforced_count"`
	HighRiskCount         int            `json:"high_risk_count"`
	NonCompliantResources int            `json:"non_compliant_resources"`
	TotalResources        int            `json:"total_resources"`
	ExemptionCount        int            `json:"exemption_count"`
	ExpiredExemptionCount int            `json:"expired_exemption_count"`
	EffectCounts          map[string]int `json:"effect_counts,omitempty"`
}

// Snapshot is an immutable point-in-time capture of one assessment run.
// It is created once, optionally persisted, and never updated in place.
type Snapshot struct {
	ID          string              `json:"id"`
	Timestamp   time.Time           `json:"timestamp"`
	VersionTag  string              `json:"version_tag"`
	TenantID    string              `json:"tenant_id"`
	ScopeFilter string              `json:"scope_filter,omitempty"`
	Summary     Summary             `json:"summary"`
	Assignments []assignment.Record `json:"assignments"`
	Exemptions  []exemption.Record  `json:"exemptions"`
}

// Summarize computes the aggregate counters for a record set. The exemption
// expiry check uses the given time so results are reproducible in tests.
func Summarize(records []assignment.Record, exemptions []exemption.Record, now time.Time) Summary {
	s := Summary{
		TotalAssignments: len(records),
		ExemptionCount:   len(exemptions),
		EffectCounts:     make(map[string]int),
	}
	for i := range records {
		r := &records[i]
		if r.IsEnforced() {
			s.EnforcedCount++
		} else {
			s.NotEnforcedCount++
		}
		if r.RiskLevel == assignment.LevelHigh {
			s.HighRiskCount++
		}
		s.NonCompliantResources += r.NonCompliantResourceCount
		s.TotalResources += r.TotalResourceCount
		s.EffectCounts[r.Effect]++
	}
	for i := range exemptions {
		if exemptions[i].IsExpired(now) {
			s.ExpiredExemptionCount++
		}
	}
	return s
}
