package classifier

import (
	"testing"

	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
)

func TestClassifier_SecurityImpact(t *testing.T) {
	c := New()

	tests := []struct {
		name   string
		record assignment.Record
		want   assignment.ImpactLevel
	}{
		{
			name: "enforced deny on network firewall policy",
			record: assignment.Record{
				AssignmentName:  "deny-fw-insecure",
				DisplayName:     "Deny Firewall Configuration Changes",
				Category:        "Network",
				Effect:          assignment.EffectDeny,
				EnforcementMode: assignment.Enforced,
			},
			want: assignment.LevelHigh,
		},
		{
			name: "same policy not enforced drops one level",
			record: assignment.Record{
				AssignmentName:  "deny-fw-insecure",
				DisplayName:     "Deny Firewall Configuration Changes",
				Category:        "Network",
				Effect:          assignment.EffectDeny,
				EnforcementMode: assignment.NotEnforced,
			},
			want: assignment.LevelMedium,
		},
		{
			name: "disabled effect lands exactly on the low boundary",
			record: assignment.Record{
				AssignmentName:  "old-policy",
				DisplayName:     "Legacy Policy",
				Effect:          assignment.EffectDisabled,
				EnforcementMode: assignment.Enforced,
			},
			want: assignment.LevelLow,
		},
		{
			name: "plain audit with no signals is medium from the baseline",
			record: assignment.Record{
				AssignmentName:  "audit-generic",
				DisplayName:     "Audit resource configuration",
				Effect:          assignment.EffectAudit,
				EnforcementMode: assignment.Enforced,
			},
			want: assignment.LevelMedium,
		},
		{
			name: "administrative category pulls below medium",
			record: assignment.Record{
				AssignmentName:  "require-tags",
				DisplayName:     "Require resource tags",
				Category:        "Tags",
				Effect:          assignment.EffectAudit,
				EnforcementMode: assignment.Enforced,
			},
			want: assignment.LevelLow,
		},
		{
			name: "security category plus remediation effect",
			record: assignment.Record{
				AssignmentName:  "deploy-defender",
				DisplayName:     "Deploy Defender agent",
				Category:        "Security Center",
				Effect:          assignment.EffectDeployIfNotExists,
				EnforcementMode: assignment.Enforced,
			},
			want: assignment.LevelHigh,
		},
		{
			name: "composite dominant deny scores reduced",
			record: assignment.Record{
				AssignmentName:  "cis-benchmark",
				DisplayName:     "CIS Benchmark Initiative",
				Category:        "Guest Configuration",
				Effect:          "Deny(8), Audit(3)",
				EnforcementMode: assignment.Enforced,
			},
			// 50 + 25 + 10 + 5(governance name) = 90
			want: assignment.LevelHigh,
		},
		{
			name: "parameterized effect scores on security category",
			record: assignment.Record{
				AssignmentName:  "param-effect",
				DisplayName:     "Configure diagnostic settings",
				Category:        "Key Vault",
				Effect:          assignment.EffectAudit,
				Parameterized:   true,
				EnforcementMode: assignment.Enforced,
			},
			// 50 + 15 + 15 = 80
			want: assignment.LevelHigh,
		},
		{
			name: "not enforced score never drops below the floor",
			record: assignment.Record{
				AssignmentName:  "disabled-tags",
				DisplayName:     "Require resource tags",
				Category:        "Tags",
				Effect:          assignment.EffectDisabled,
				EnforcementMode: assignment.NotEnforced,
			},
			// 50 - 35 - 15 = 0 before scaling, clamped to the floor of
			// 10, still below the low threshold
			want: assignment.LevelNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.record
			c.Classify(&r)
			if r.SecurityImpact != tt.want {
				t.Errorf("SecurityImpact = %v, want %v", r.SecurityImpact, tt.want)
			}
		})
	}
}

func TestClassifier_CostImpact(t *testing.T) {
	c := New()

	tests := []struct {
		name   string
		record assignment.Record
		want   assignment.ImpactLevel
	}{
		{
			name: "remediation into monitoring is high cost",
			record: assignment.Record{
				DisplayName:     "Deploy Log Analytics agent",
				Category:        "Monitoring",
				Effect:          assignment.EffectDeployIfNotExists,
				EnforcementMode: assignment.Enforced,
			},
			// 20 + 45 + 10(log analytics keyword) = 75
			want: assignment.LevelHigh,
		},
		{
			name: "deny prevents spend",
			record: assignment.Record{
				DisplayName:     "Deny expensive SKUs",
				Category:        "Compute",
				Effect:          assignment.EffectDeny,
				EnforcementMode: assignment.Enforced,
			},
			want: assignment.LevelLow,
		},
		{
			name: "modify on tags is administrative",
			record: assignment.Record{
				DisplayName:     "Add tag to resources",
				Category:        "Tags",
				Effect:          assignment.EffectModify,
				EnforcementMode: assignment.Enforced,
			},
			// 20 + 0 - 10 = 10
			want: assignment.LevelLow,
		},
		{
			name: "modify on network infrastructure",
			record: assignment.Record{
				DisplayName:     "Modify NSG rules",
				Category:        "Network",
				Effect:          assignment.EffectModify,
				EnforcementMode: assignment.Enforced,
			},
			// 20 + 20 = 40
			want: assignment.LevelMedium,
		},
		{
			name: "parameterized effect assumes reduced remediation cost",
			record: assignment.Record{
				DisplayName:     "Configure backup on VMs",
				Category:        "Backup",
				Effect:          assignment.EffectAudit,
				Parameterized:   true,
				EnforcementMode: assignment.Enforced,
			},
			// 20 + 30 + 10(backup keyword) = 60
			want: assignment.LevelHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.record
			c.Classify(&r)
			if r.CostImpact != tt.want {
				t.Errorf("CostImpact = %v, want %v", r.CostImpact, tt.want)
			}
		})
	}
}

func TestClassifier_ComplianceImpact(t *testing.T) {
	c := New()

	tests := []struct {
		name   string
		record assignment.Record
		want   assignment.ImpactLevel
	}{
		{
			name: "regulatory set is always high",
			record: assignment.Record{
				RuleKind:        assignment.KindRegulatorySet,
				Effect:          assignment.EffectAudit,
				EnforcementMode: assignment.NotEnforced,
			},
			want: assignment.LevelHigh,
		},
		{
			name: "deny member in a composite is high",
			record: assignment.Record{
				RuleKind:        assignment.KindPolicySet,
				Category:        "Monitoring",
				Effect:          "Audit(9), Deny(1)",
				EnforcementMode: assignment.Enforced,
			},
			want: assignment.LevelHigh,
		},
		{
			name: "not enforced audit in a routine category is low",
			record: assignment.Record{
				RuleKind:        assignment.KindSinglePolicy,
				Category:        "Monitoring",
				Effect:          assignment.EffectAudit,
				EnforcementMode: assignment.NotEnforced,
			},
			want: assignment.LevelLow,
		},
		{
			name: "enforced audit defaults to medium",
			record: assignment.Record{
				RuleKind:        assignment.KindSinglePolicy,
				Category:        "Monitoring",
				Effect:          assignment.EffectAudit,
				EnforcementMode: assignment.Enforced,
			},
			want: assignment.LevelMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.record
			c.Classify(&r)
			if r.ComplianceImpact != tt.want {
				t.Errorf("ComplianceImpact = %v, want %v", r.ComplianceImpact, tt.want)
			}
		})
	}
}

func TestClassifier_RiskLevel(t *testing.T) {
	c := New()

	tests := []struct {
		name   string
		record assignment.Record
		want   assignment.ImpactLevel
	}{
		{
			name: "enforced deny offsets high security impact",
			record: assignment.Record{
				DisplayName:     "Deny Firewall Configuration Changes",
				Category:        "Network",
				Effect:          assignment.EffectDeny,
				EnforcementMode: assignment.Enforced,
			},
			// security High: 40 - 10(enforced active effect) = 30
			want: assignment.LevelMedium,
		},
		{
			name: "security relevant but not enforced is high risk",
			record: assignment.Record{
				DisplayName:     "Deny Firewall Configuration Changes",
				Category:        "Network",
				Effect:          assignment.EffectDeny,
				EnforcementMode: assignment.NotEnforced,
			},
			// security Medium: 20 + 15 = 35... and no enforced offset
			want: assignment.LevelMedium,
		},
		{
			name: "disabled effect adds residual risk",
			record: assignment.Record{
				DisplayName:     "Legacy Policy",
				Effect:          assignment.EffectDisabled,
				EnforcementMode: assignment.Enforced,
			},
			// security Low: 5 + 10 = 15
			want: assignment.LevelLow,
		},
		{
			name: "high security audit has no active effect offset",
			record: assignment.Record{
				DisplayName:     "Audit encrypted storage accounts",
				Category:        "Security",
				Effect:          assignment.EffectAudit,
				EnforcementMode: assignment.Enforced,
			},
			// security High: 40, no offset since Audit never remediates
			want: assignment.LevelHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.record
			c.Classify(&r)
			if r.RiskLevel != tt.want {
				t.Errorf("RiskLevel = %v, want %v", r.RiskLevel, tt.want)
			}
		})
	}
}

func TestClassifier_OperationalOverhead(t *testing.T) {
	c := New()

	tests := []struct {
		name   string
		record assignment.Record
		want   assignment.ImpactLevel
	}{
		{
			name: "remediation effect needs ongoing attention",
			record: assignment.Record{
				Category:        "Monitoring",
				Effect:          assignment.EffectDeployIfNotExists,
				EnforcementMode: assignment.Enforced,
			},
			want: assignment.LevelHigh,
		},
		{
			name: "modify on tags is routine",
			record: assignment.Record{
				Category:        "Tags",
				Effect:          assignment.EffectModify,
				EnforcementMode: assignment.Enforced,
			},
			want: assignment.LevelLow,
		},
		{
			name: "deny carries exception handling burden",
			record: assignment.Record{
				Category:        "Network",
				Effect:          assignment.EffectDeny,
				EnforcementMode: assignment.Enforced,
			},
			want: assignment.LevelMedium,
		},
		{
			name: "parameterized security effect needs review",
			record: assignment.Record{
				Category:        "Security Center",
				Effect:          assignment.EffectAudit,
				Parameterized:   true,
				EnforcementMode: assignment.Enforced,
			},
			want: assignment.LevelHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.record
			c.Classify(&r)
			if r.OperationalOverhead != tt.want {
				t.Errorf("OperationalOverhead = %v, want %v", r.OperationalOverhead, tt.want)
			}
		})
	}
}

func TestClassifier_Idempotent(t *testing.T) {
	c := New()

	r := assignment.Record{
		AssignmentName:            "deny-fw-insecure",
		DisplayName:               "Deny Firewall Configuration Changes",
		Category:                  "Network",
		Effect:                    assignment.EffectDeny,
		EnforcementMode:           assignment.Enforced,
		NonCompliantResourceCount: 4,
	}

	c.Classify(&r)
	first := r
	c.Classify(&r)

	if r != first {
		t.Errorf("second Classify changed the record: %+v != %+v", r, first)
	}
}

func TestClassifier_EnforcementNeverRaisesSecurity(t *testing.T) {
	c := New()

	records := []assignment.Record{
		{DisplayName: "Deny Firewall Configuration Changes", Category: "Network", Effect: assignment.EffectDeny},
		{DisplayName: "Audit storage encryption", Category: "Storage", Effect: assignment.EffectAudit},
		{DisplayName: "Deploy Defender", Category: "Security Center", Effect: assignment.EffectDeployIfNotExists},
		{DisplayName: "Require resource tags", Category: "Tags", Effect: assignment.EffectModify},
	}

	for _, base := range records {
		enforced := base
		enforced.EnforcementMode = assignment.Enforced
		c.Classify(&enforced)

		relaxed := base
		relaxed.EnforcementMode = assignment.NotEnforced
		c.Classify(&relaxed)

		if relaxed.SecurityImpact.Rank() > enforced.SecurityImpact.Rank() {
			t.Errorf("%s: NotEnforced security %v outranks Enforced %v",
				base.DisplayName, relaxed.SecurityImpact, enforced.SecurityImpact)
		}
	}
}

func TestClassifier_Recommendation(t *testing.T) {
	c := New()

	tests := []struct {
		name   string
		record assignment.Record
		want   string
	}{
		{
			name: "disabled effect wins over everything",
			record: assignment.Record{
				Effect:          assignment.EffectDisabled,
				EnforcementMode: assignment.NotEnforced,
			},
			want: "Policy effect is Disabled; the assignment provides no coverage. Re-enable the effect or remove the assignment.",
		},
		{
			name: "security relevant not enforced",
			record: assignment.Record{
				DisplayName:     "Deny Firewall Configuration Changes",
				Category:        "Network",
				Effect:          assignment.EffectDeny,
				EnforcementMode: assignment.NotEnforced,
			},
			want: "Enforcement is off for a security-relevant assignment. Enable enforcement to activate its protections.",
		},
		{
			name: "non compliant resources reported",
			record: assignment.Record{
				DisplayName:               "Audit VM configuration",
				Category:                  "Compute",
				Effect:                    assignment.EffectAudit,
				EnforcementMode:           assignment.Enforced,
				NonCompliantResourceCount: 7,
			},
			want: "7 non-compliant resources reported. Triage the findings and plan remediation.",
		},
		{
			name: "clean audit record",
			record: assignment.Record{
				DisplayName:     "Audit VM configuration",
				Category:        "Compute",
				Effect:          assignment.EffectAudit,
				EnforcementMode: assignment.Enforced,
			},
			want: "No action required.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.record
			c.Classify(&r)
			if r.Recommendation != tt.want {
				t.Errorf("Recommendation = %q, want %q", r.Recommendation, tt.want)
			}
		})
	}
}
