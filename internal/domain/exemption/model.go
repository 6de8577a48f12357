package exemption

import "time"

// Category distinguishes why a scope was exempted.
type Category string

const (
	CategoryWaiver    Category = "Waiver"    // risk accepted
	CategoryMitigated Category = "Mitigated" // control substituted elsewhere
)

// Record is a scope- or sub-rule-level exclusion from evaluation.
type Record struct {
	ExemptionID        string     `json:"exemption_id"`
	ExemptionName      string     `json:"exemption_name"`
	TargetAssignmentID string     `json:"target_assignment_id"`
	Category           Category   `json:"category"`
	ScopeType          string     `json:"scope_type"`
	ScopeName          string     `json:"scope_name"`
	ScopePath          string     `json:"scope_path"`
	ExpiresOn          *time.Time `json:"expires_on,omitempty"`
	// 0 means the whole assignment is exempted, >0 a partial member-rule subset.
	ExemptedSubRuleCount int `json:"exempted_sub_rule_count"`
}

// Key returns the composite identity used by the delta engine.
func (r *Record) Key() string {
	return r.ExemptionName + "|" + r.ScopePath
}

// IsExpired reports whether the exemption's expiry has passed at the given time.
func (r *Record) IsExpired(now time.Time) bool {
	return r.ExpiresOn != nil && r.ExpiresOn.Before(now)
}

// IsActive reports whether the exemption is still in force at the given time.
func (r *Record) IsActive(now time.Time) bool {
	return !r.IsExpired(now)
}
