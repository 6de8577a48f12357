package classifier

import (
	"fmt"

	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
)

// recommend selects one of a fixed set of templated sentences from a decision
// tree keyed on enforcement mode, effect, cost impact and category. Selection
// is deterministic for the same inputs; Classify sets CostImpact and
// SecurityImpact before this runs.
func (c *Classifier) recommend(r *assignment.Record) string {
	dominant := assignment.DominantEffect(r.Effect)
	secRelevant := r.SecurityImpact == assignment.LevelHigh || r.SecurityImpact == assignment.LevelMedium
	remediating := dominant == assignment.EffectDeployIfNotExists || dominant == assignment.EffectModify

	switch {
	case r.Effect == assignment.EffectDisabled:
		return "Policy effect is Disabled; the assignment provides no coverage. Re-enable the effect or remove the assignment."

	case r.EnforcementMode == assignment.NotEnforced && secRelevant:
		return "Enforcement is off for a security-relevant assignment. Enable enforcement to activate its protections."

	case r.EnforcementMode == assignment.NotEnforced:
		return "Assignment evaluates in report-only mode. Review its findings and enable enforcement once remediation is planned."

	case remediating && r.CostImpact == assignment.LevelHigh:
		return "Auto-remediation in this category can incur significant deployment cost. Monitor remediation task spend and scope."

	case remediating:
		return "Review remediation task results periodically to confirm deployments are succeeding."

	case dominant == assignment.EffectDeny && IsAdministrativeCategory(r.Category):
		return "Deny on an administrative policy can block routine operations. Confirm an exception process exists."

	case dominant == assignment.EffectDeny:
		return "Hard enforcement is active. Ensure an exemption process covers legitimate exceptions."

	case r.NonCompliantResourceCount > 0:
		return fmt.Sprintf("%d non-compliant resources reported. Triage the findings and plan remediation.", r.NonCompliantResourceCount)

	default:
		return "No action required."
	}
}
