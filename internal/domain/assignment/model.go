package assignment

// RuleKind identifies what kind of governance rule an assignment binds.
type RuleKind string

const (
	KindSinglePolicy  RuleKind = "SinglePolicy"
	KindPolicySet     RuleKind = "PolicySet"
	KindRegulatorySet RuleKind = "RegulatorySet"
)

// ScopeType identifies the level of the resource hierarchy an assignment is bound at.
type ScopeType string

const (
	ScopeOrg           ScopeType = "Org"
	ScopeAccount       ScopeType = "Account"
	ScopeResourceGroup ScopeType = "ResourceGroup"
)

// EnforcementMode indicates whether an assignment's effect is actively applied.
type EnforcementMode string

const (
	Enforced    EnforcementMode = "Enforced"
	NotEnforced EnforcementMode = "NotEnforced"
)

// ImpactLevel is an ordinal classification level for a single impact dimension.
type ImpactLevel string

const (
	LevelNone   ImpactLevel = "None"
	LevelLow    ImpactLevel = "Low"
	LevelMedium ImpactLevel = "Medium"
	LevelHigh   ImpactLevel = "High"
)

// Rank returns the ordinal position of a level, for comparisons.
func (l ImpactLevel) Rank() int {
	switch l {
	case LevelHigh:
		return 3
	case LevelMedium:
		return 2
	case LevelLow:
		return 1
	default:
		return 0
	}
}

// Record is one governance rule bound to a scope, with classification results
// attached once the classifier has run.
type Record struct {
	// Identity
	AssignmentID   string `json:"assignment_id"`
	AssignmentName string `json:"assignment_name"`
	DisplayName    string `json:"display_name"`
	RuleName       string `json:"rule_name,omitempty"` // resolved definition display name

	// Classification inputs
	RuleKind        RuleKind        `json:"rule_kind"`
	Category        string          `json:"category,omitempty"`
	Effect          string          `json:"effect"`
	Parameterized   bool            `json:"parameterized,omitempty"` // effect fell back to the Audit default
	EnforcementMode EnforcementMode `json:"enforcement_mode"`

	// Scope
	ScopeType ScopeType `json:"scope_type"`
	ScopeName string    `json:"scope_name"`
	ScopePath string    `json:"scope_path"`

	// Compliance facts, filled by the retrieval layer when available
	NonCompliantResourceCount int `json:"non_compliant_resource_count"`
	TotalResourceCount        int `json:"total_resource_count"`
	ActiveExemptionCount      int `json:"active_exemption_count"`

	// Derived by the classifier, pure function of the fields above
	SecurityImpact      ImpactLevel `json:"security_impact,omitempty"`
	CostImpact          ImpactLevel `json:"cost_impact,omitempty"`
	ComplianceImpact    ImpactLevel `json:"compliance_impact,omitempty"`
	OperationalOverhead ImpactLevel `json:"operational_overhead,omitempty"`
	RiskLevel           ImpactLevel `json:"risk_level,omitempty"`
	Recommendation      string      `json:"recommendation,omitempty"`
}

// Key returns the composite identity used by the delta engine. The same rule
// name may be bound at several independent scopes, so name alone is not enough.
func (r *Record) Key() string {
	return r.AssignmentName + "|" + r.ScopePath
}

// IsEnforced reports whether the assignment's effect is actively applied.
func (r *Record) IsEnforced() bool {
	return r.EnforcementMode == Enforced
}

// Filter contains assignment filtering options.
type Filter struct {
	ScopePath string
	RiskLevel ImpactLevel
	Effect    string
	Category  string
}

// Matches reports whether a record satisfies every set filter field.
func (f Filter) Matches(r *Record) bool {
	if f.ScopePath != "" && !containsFold(r.ScopePath, f.ScopePath) {
		return false
	}
	if f.RiskLevel != "" && r.RiskLevel != f.RiskLevel {
		return false
	}
	if f.Effect != "" && r.Effect != f.Effect {
		return false
	}
	if f.Category != "" && !equalFold(r.Category, f.Category) {
		return false
	}
	return true
}
