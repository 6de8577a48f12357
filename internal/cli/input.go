package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cloudgovern/policyaudit/internal/normalizer"
	"github.com/cloudgovern/policyaudit/internal/services"
)

// inputDocument is a self-contained assessment input: raw assignments and
// exemptions plus the definition metadata needed to resolve them offline.
type inputDocument struct {
	Definitions []struct {
		ID            string   `json:"id" yaml:"id"`
		DisplayName   string   `json:"display_name" yaml:"display_name"`
		Category      string   `json:"category" yaml:"category"`
		IsSet         bool     `json:"is_set" yaml:"is_set"`
		Effect        string   `json:"effect" yaml:"effect"`
		MemberEffects []string `json:"member_effects" yaml:"member_effects"`
	} `json:"definitions" yaml:"definitions"`

	Assignments []struct {
		ID                 string            `json:"id" yaml:"id"`
		Name               string            `json:"name" yaml:"name"`
		DisplayName        string            `json:"display_name" yaml:"display_name"`
		PolicyDefinitionID string            `json:"policy_definition_id" yaml:"policy_definition_id"`
		ScopePath          string            `json:"scope_path" yaml:"scope_path"`
		EnforcementMode    string            `json:"enforcement_mode" yaml:"enforcement_mode"`
		Parameters         map[string]string `json:"parameters" yaml:"parameters"`
	} `json:"assignments" yaml:"assignments"`

	Exemptions []struct {
		ID                     string     `json:"id" yaml:"id"`
		Name                   string     `json:"name" yaml:"name"`
		PolicyAssignmentID     string     `json:"policy_assignment_id" yaml:"policy_assignment_id"`
		Category               string     `json:"category" yaml:"category"`
		ScopePath              string     `json:"scope_path" yaml:"scope_path"`
		ExpiresOn              *time.Time `json:"expires_on" yaml:"expires_on"`
		PolicyDefinitionRefIDs []string   `json:"policy_definition_ref_ids" yaml:"policy_definition_ref_ids"`
	} `json:"exemptions" yaml:"exemptions"`

	ComplianceFacts map[string]struct {
		NonCompliantResourceCount int `json:"non_compliant_resource_count" yaml:"non_compliant_resource_count"`
		TotalResourceCount        int `json:"total_resource_count" yaml:"total_resource_count"`
		ActiveExemptionCount      int `json:"active_exemption_count" yaml:"active_exemption_count"`
	} `json:"compliance_facts" yaml:"compliance_facts"`
}

// loadInput parses an assessment input file. YAML and JSON are supported,
// chosen by file extension.
func loadInput(path string) (*inputDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	var doc inputDocument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse input file: %w", err)
	}
	return &doc, nil
}

// resolver builds a static definition resolver over the document's
// definitions.
func (d *inputDocument) resolver() *normalizer.StaticResolver {
	defs := make([]normalizer.Definition, 0, len(d.Definitions))
	for _, def := range d.Definitions {
		defs = append(defs, normalizer.Definition{
			ID:            def.ID,
			DisplayName:   def.DisplayName,
			Category:      def.Category,
			IsSet:         def.IsSet,
			Effect:        def.Effect,
			MemberEffects: def.MemberEffects,
		})
	}
	return normalizer.NewStaticResolver(defs)
}

// toServiceInput converts the document into a service-layer input.
func (d *inputDocument) toServiceInput() services.AssessmentInput {
	var input services.AssessmentInput
	for _, a := range d.Assignments {
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
	for _, e := range d.Exemptions {
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
	if len(d.ComplianceFacts) > 0 {
		input.ComplianceFacts = make(map[string]services.ComplianceFacts, len(d.ComplianceFacts))
		for id, f := range d.ComplianceFacts {
			input.ComplianceFacts[id] = services.ComplianceFacts{
				NonCompliantResourceCount: f.NonCompliantResourceCount,
				TotalResourceCount:        f.TotalResourceCount,
				ActiveExemptionCount:      f.ActiveExemptionCount,
			}
		}
	}
	return input
}
