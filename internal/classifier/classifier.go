package classifier

import (
	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
)

// Classifier computes the derived impact levels of an assignment record by
// accumulating points from independent signals on a bounded numeric scale
// per dimension, then mapping each point total to an ordinal level via fixed
// thresholds. Earlier pattern-cascade designs scored inconsistently when
// several signals applied to the same record; independent accumulation does
// not have that problem and keeps each signal testable on its own.
type Classifier struct{}

// New creates a new classifier.
func New() *Classifier {
	return &Classifier{}
}

// Security score thresholds. The accumulator starts at securityBaseline and
// moves on effect, category, name-keyword and enforcement signals.
const (
	securityBaseline  = 50
	securityHighMin   = 75
	securityMediumMin = 40
	securityLowMin    = 15
	notEnforcedFactor = 0.65
	notEnforcedFloor  = 10
	costBaseline      = 20
	costHighMin       = 55
	costMediumMin     = 30
	riskHighMin       = 40
	riskMediumMin     = 20
)

// Classify populates the derived fields of a record. It is a pure function
// of the non-derived fields: classifying an unchanged record twice produces
// identical output.
func (c *Classifier) Classify(r *assignment.Record) {
	r.SecurityImpact = c.securityImpact(r)
	r.CostImpact = c.costImpact(r)
	r.ComplianceImpact = c.complianceImpact(r)
	r.OperationalOverhead = c.operationalOverhead(r)
	r.RiskLevel = c.riskLevel(r)
	r.Recommendation = c.recommend(r)
}

func (c *Classifier) securityImpact(r *assignment.Record) assignment.ImpactLevel {
	score := securityBaseline

	score += securityEffectSignal(r)
	score += securityCategorySignal(r.Category)

	if IsSecurityRelatedName(r.DisplayName) {
		score += 10
	}
	if IsGovernanceFrameworkName(r.DisplayName) {
		score += 5
	}

	if r.EnforcementMode == assignment.NotEnforced {
		// An unenforced rule still reports violations, so it keeps
		// residual value rather than dropping to zero.
		score = int(float64(score) * notEnforcedFactor)
		if score < notEnforcedFloor {
			score = notEnforcedFloor
		}
	}

	switch {
	case score >= securityHighMin:
		return assignment.LevelHigh
	case score >= securityMediumMin:
		return assignment.LevelMedium
	case score >= securityLowMin:
		return assignment.LevelLow
	default:
		return assignment.LevelNone
	}
}

func securityEffectSignal(r *assignment.Record) int {
	if r.Parameterized {
		// The effect fell back to the Audit default; score on the
		// category instead of the unresolved effect.
		switch {
		case IsSecuritySensitiveCategory(r.Category):
			return 15
		case IsModerateSecurityCategory(r.Category):
			return 10
		default:
			return 5
		}
	}

	if assignment.IsComposite(r.Effect) {
		// Mixed member effects: the dominant one speaks for the set,
		// at reduced magnitude for the enforcing effects.
		switch assignment.DominantEffect(r.Effect) {
		case assignment.EffectDeny:
			return 25
		case assignment.EffectDeployIfNotExists:
			return 20
		case assignment.EffectModify:
			return 15
		case assignment.EffectAuditIfNotExists:
			return 5
		case assignment.EffectDisabled:
			return -35
		default:
			return 0
		}
	}

	switch r.Effect {
	case assignment.EffectDeny:
		return 30
	case assignment.EffectDeployIfNotExists:
		return 25
	case assignment.EffectModify:
		return 20
	case assignment.EffectAuditIfNotExists:
		return 5
	case assignment.EffectDisabled:
		return -35
	default:
		return 0
	}
}

func securityCategorySignal(category string) int {
	switch {
	case category == "":
		return 0
	case IsSecuritySensitiveCategory(category):
		return 15
	case IsModerateSecurityCategory(category):
		return 10
	case IsRoutineCategory(category):
		return 5
	case IsAdministrativeCategory(category):
		return -15
	default:
		return 0
	}
}

func (c *Classifier) costImpact(r *assignment.Record) assignment.ImpactLevel {
	score := costBaseline

	score += costEffectSignal(r)

	if IsCostHeavyName(r.DisplayName) {
		score += 10
	}
	if IsLowCostName(r.DisplayName) {
		score -= 10
	}

	switch {
	case score >= costHighMin:
		return assignment.LevelHigh
	case score >= costMediumMin:
		return assignment.LevelMedium
	default:
		return assignment.LevelLow
	}
}

// costEffectSignal applies the effect-by-category matrix. Remediation-style
// effects dominate the cost picture because what they deploy varies
// enormously in price.
func costEffectSignal(r *assignment.Record) int {
	if r.Parameterized {
		// Unresolved effect: assume remediation is possible, at
		// reduced magnitude.
		switch {
		case isMonitoringSecurityBackupCategory(r.Category):
			return 30
		case isNetworkComputeDatabaseCategory(r.Category):
			return 20
		case isStorageRegistryPipelineCategory(r.Category):
			return 15
		default:
			return 10
		}
	}

	switch assignment.DominantEffect(r.Effect) {
	case assignment.EffectDeployIfNotExists:
		switch {
		case isMonitoringSecurityBackupCategory(r.Category):
			return 45
		case isNetworkComputeDatabaseCategory(r.Category):
			return 30
		case isStorageRegistryPipelineCategory(r.Category):
			return 20
		default:
			return 15
		}
	case assignment.EffectModify:
		switch {
		case IsAdministrativeCategory(r.Category):
			return 0
		case IsInfrastructureCategory(r.Category):
			return 20
		case isMonitoringSecurityBackupCategory(r.Category):
			return 15
		default:
			return 10
		}
	case assignment.EffectDeny:
		return -5
	case assignment.EffectDisabled:
		return -10
	default:
		return 0
	}
}

func (c *Classifier) complianceImpact(r *assignment.Record) assignment.ImpactLevel {
	switch {
	case r.RuleKind == assignment.KindRegulatorySet,
		assignment.ContainsEffect(r.Effect, assignment.EffectDeny),
		IsComplianceCriticalCategory(r.Category):
		return assignment.LevelHigh
	case r.EnforcementMode == assignment.NotEnforced:
		return assignment.LevelLow
	default:
		return assignment.LevelMedium
	}
}

// IsComplianceCriticalCategory matches categories that regulators care about
// directly.
func IsComplianceCriticalCategory(category string) bool {
	return categoryHasAny(category, "security", "network", "encryption", "key vault")
}

func (c *Classifier) operationalOverhead(r *assignment.Record) assignment.ImpactLevel {
	if r.Parameterized {
		switch {
		case categoryHasAny(r.Category, "security", "monitoring", "backup"):
			return assignment.LevelHigh
		case categoryHasAny(r.Category, "network", "compute"):
			return assignment.LevelMedium
		default:
			return assignment.LevelLow
		}
	}

	dominant := assignment.DominantEffect(r.Effect)
	switch {
	case (dominant == assignment.EffectDeployIfNotExists || dominant == assignment.EffectModify) &&
		!IsAdministrativeCategory(r.Category):
		return assignment.LevelHigh
	case dominant == assignment.EffectDeny:
		// Deny carries an exception-handling burden.
		return assignment.LevelMedium
	default:
		return assignment.LevelLow
	}
}

func (c *Classifier) riskLevel(r *assignment.Record) assignment.ImpactLevel {
	score := 0

	switch r.SecurityImpact {
	case assignment.LevelHigh:
		score += 40
	case assignment.LevelMedium:
		score += 20
	case assignment.LevelLow:
		score += 5
	}

	secRelevant := r.SecurityImpact == assignment.LevelHigh || r.SecurityImpact == assignment.LevelMedium
	if r.EnforcementMode == assignment.NotEnforced && secRelevant {
		score += 15
	}

	activeEffect := assignment.ContainsEffect(r.Effect, assignment.EffectDeny) ||
		assignment.ContainsEffect(r.Effect, assignment.EffectDeployIfNotExists) ||
		assignment.ContainsEffect(r.Effect, assignment.EffectModify)
	if r.EnforcementMode == assignment.Enforced && activeEffect {
		score -= 10
	}

	if r.Effect == assignment.EffectDisabled {
		score += 10
	}

	switch {
	case score >= riskHighMin:
		return assignment.LevelHigh
	case score >= riskMediumMin:
		return assignment.LevelMedium
	default:
		return assignment.LevelLow
	}
}
