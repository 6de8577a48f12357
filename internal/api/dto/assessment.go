package dto

import (
	"time"

	"github.com/cloudgovern/policyaudit/internal/normalizer"
	"github.com/cloudgovern/policyaudit/internal/services"
)

// DefinitionInput carries rule or rule-set metadata referenced by the
// submitted assignments, so runs resolve without a live governance API.
type DefinitionInput struct {
	ID            string   `json:"id" validate:"required"`
	DisplayName   string   `json:"display_name"`
	Category      string   `json:"category"`
	IsSet         bool     `json:"is_set"`
	Effect        string   `json:"effect"`
	MemberEffects []string `json:"member_effects"`
}

// AssignmentInput is one raw policy assignment submitted for assessment.
type AssignmentInput struct {
	ID                 string            `json:"id" validate:"required"`
	Name               string            `json:"name" validate:"required"`
	DisplayName        string            `json:"display_name"`
	PolicyDefinitionID string            `json:"policy_definition_id" validate:"required"`
	ScopePath          string            `json:"scope_path" validate:"required"`
	EnforcementMode    string            `json:"enforcement_mode"`
	Parameters         map[string]string `json:"parameters"`
}

// ExemptionInput is one raw policy exemption submitted for assessment.
type ExemptionInput struct {
	ID                     string     `json:"id" validate:"required"`
	Name                   string     `json:"name" validate:"required"`
	PolicyAssignmentID     string     `json:"policy_assignment_id" validate:"required"`
	Category               string     `json:"category"`
	ScopePath              string     `json:"scope_path"`
	ExpiresOn              *time.Time `json:"expires_on"`
	PolicyDefinitionRefIDs []string   `json:"policy_definition_ref_ids"`
}

// ComplianceFactsInput carries per-assignment compliance counters keyed by
// assignment ID.
type ComplianceFactsInput struct {
	NonCompliantResourceCount int `json:"non_compliant_resource_count" validate:"min=0"`
	TotalResourceCount        int `json:"total_resource_count" validate:"min=0"`
	ActiveExemptionCount      int `json:"active_exemption_count" validate:"min=0"`
}

// RunAssessmentRequest is the payload for an on-demand assessment run.
type RunAssessmentRequest struct {
	TenantID        string                          `json:"tenant_id" validate:"required"`
	ScopeFilter     string                          `json:"scope_filter"`
	VersionTag      string                          `json:"version_tag"`
	Definitions     []DefinitionInput               `json:"definitions" validate:"dive"`
	Assignments     []AssignmentInput               `json:"assignments" validate:"required,min=1,dive"`
	Exemptions      []ExemptionInput                `json:"exemptions" validate:"dive"`
	ComplianceFacts map[string]ComplianceFactsInput `json:"compliance_facts"`
	Persist         bool                            `json:"persist"`
	CompareLatest   bool                            `json:"compare_latest"`
}

// ToServiceInput converts the request into the service-layer input.
func (r *RunAssessmentRequest) ToServiceInput() services.AssessmentInput {
	input := services.AssessmentInput{
		TenantID:      r.TenantID,
		ScopeFilter:   r.ScopeFilter,
		VersionTag:    r.VersionTag,
		Persist:       r.Persist,
		CompareLatest: r.CompareLatest,
	}
	for _, a := range r.Assignments {
		input.Assignments = append(input.Assignments, normalizer.RawAssignment{
			ID:                 a.ID,
			Name:               a.Name,
			DisplayName:        a.DisplayName,
			PolicyDefinitionID: a.PolicyDefinitionID,
			ScopePath:          a.ScopePath,
			EnforcementMode:    a.EnforcementMode,
			Parameters:         a.Parameters,
		})
	}
	for _, e := range r.Exemptions {
		input.Exemptions = append(input.Exemptions, normalizer.RawExemption{
			ID:                     e.ID,
			Name:                   e.Name,
			PolicyAssignmentID:     e.PolicyAssignmentID,
			Category:               e.Category,
			ScopePath:              e.ScopePath,
			ExpiresOn:              e.ExpiresOn,
			PolicyDefinitionRefIDs: e.PolicyDefinitionRefIDs,
		})
	}
	if len(r.ComplianceFacts) > 0 {
		input.ComplianceFacts = make(map[string]services.ComplianceFacts, len(r.ComplianceFacts))
		for id, f := range r.ComplianceFacts {
			input.ComplianceFacts[id] = services.ComplianceFacts{
				NonCompliantResourceCount: f.NonCompliantResourceCount,
				TotalResourceCount:        f.TotalResourceCount,
				ActiveExemptionCount:      f.ActiveExemptionCount,
			}
		}
	}
	return input
}

// ToDefinitions converts the request's definition metadata.
func (r *RunAssessmentRequest) ToDefinitions() []normalizer.Definition {
	defs := make([]normalizer.Definition, 0, len(r.Definitions))
	for _, d := range r.Definitions {
		defs = append(defs, normalizer.Definition{
			ID:            d.ID,
			DisplayName:   d.DisplayName,
			Category:      d.Category,
			IsSet:         d.IsSet,
			Effect:        d.Effect,
			MemberEffects: d.MemberEffects,
		})
	}
	return defs
}
