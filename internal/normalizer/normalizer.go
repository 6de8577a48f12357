package normalizer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
	"github.com/cloudgovern/policyaudit/internal/domain/exemption"
	"github.com/cloudgovern/policyaudit/internal/pkg/errors"
	"github.com/cloudgovern/policyaudit/internal/pkg/logger"
	"github.com/cloudgovern/policyaudit/internal/pkg/metrics"
)

// RawAssignment is the open-ended shape the retrieval layer hands over. The
// normalizer converts it into a closed assignment.Record or rejects it.
type RawAssignment struct {
	ID                 string
	Name               string
	DisplayName        string
	PolicyDefinitionID string
	ScopePath          string
	EnforcementMode    string
	Parameters         map[string]string
}

// RawExemption is the raw shape of an exemption record.
type RawExemption struct {
	ID                     string
	Name                   string
	PolicyAssignmentID     string
	Category               string
	ScopePath              string
	ExpiresOn              *time.Time
	PolicyDefinitionRefIDs []string
}

// Definition is the catalog metadata for a rule or rule-set, supplied by a
// DefinitionResolver.
type Definition struct {
	ID          string
	DisplayName string
	Category    string
	IsSet       bool
	// Effect is the declared effect of a single rule. It may itself be a
	// deferred parameter reference like "[parameters('effect')]".
	Effect string
	// MemberEffects holds the resolved effects of a rule-set's members.
	// Unresolvable members appear as empty strings.
	MemberEffects []string
}

// DefinitionResolver looks up rule/rule-set metadata by definition ID.
// Implementations may cache; the normalizer never does lookups of its own,
// so tests can supply deterministic fixtures.
type DefinitionResolver interface {
	Resolve(definitionID string) (*Definition, error)
}

// Normalizer converts raw assignment and exemption inputs into canonical
// records.
type Normalizer struct {
	resolver DefinitionResolver
	logger   *logger.Logger
}

// New creates a normalizer with an injected definition resolver.
func New(resolver DefinitionResolver, log *logger.Logger) *Normalizer {
	return &Normalizer{resolver: resolver, logger: log}
}

const regulatoryCategory = "Regulatory Compliance"

var deferredParamPattern = regexp.MustCompile(`^\[parameters\('([^']+)'\)\]$`)

// Normalize converts one raw assignment into a canonical record.
func (n *Normalizer) Normalize(raw RawAssignment) (*assignment.Record, error) {
	if raw.PolicyDefinitionID == "" {
		return nil, errors.NormalizationError(
			fmt.Sprintf("assignment %q has no rule reference", raw.Name), nil)
	}

	scopeType, scopeName, err := ParseScope(raw.ScopePath)
	if err != nil {
		return nil, errors.NormalizationError(
			fmt.Sprintf("assignment %q has unparseable scope %q", raw.Name, raw.ScopePath), err)
	}

	def, err := n.resolver.Resolve(raw.PolicyDefinitionID)
	if err != nil {
		return nil, errors.NormalizationError(
			fmt.Sprintf("assignment %q references unresolvable definition %q", raw.Name, raw.PolicyDefinitionID), err)
	}

	rec := &assignment.Record{
		AssignmentID:    raw.ID,
		AssignmentName:  raw.Name,
		DisplayName:     raw.DisplayName,
		RuleName:        def.DisplayName,
		Category:        def.Category,
		ScopeType:       scopeType,
		ScopeName:       scopeName,
		ScopePath:       raw.ScopePath,
		EnforcementMode: parseEnforcementMode(raw.EnforcementMode),
	}
	if rec.DisplayName == "" {
		rec.DisplayName = def.DisplayName
	}

	if def.IsSet {
		rec.RuleKind = assignment.KindPolicySet
		if def.Category == regulatoryCategory {
			rec.RuleKind = assignment.KindRegulatorySet
		}
		rec.Effect = summarizeMemberEffects(def.MemberEffects)
	} else {
		rec.RuleKind = assignment.KindSinglePolicy
		rec.Effect, rec.Parameterized = n.resolveSingleEffect(def.Effect, raw.Parameters)
	}

	return rec, nil
}

// NormalizeAll converts a batch, dropping records that fail with a logged
// warning. A bad record is never batch-fatal.
func (n *Normalizer) NormalizeAll(raws []RawAssignment) []assignment.Record {
	out := make([]assignment.Record, 0, len(raws))
	for _, raw := range raws {
		rec, err := n.Normalize(raw)
		if err != nil {
			n.logger.WithFields(map[string]interface{}{
				"assignment": raw.Name,
				"scope":      raw.ScopePath,
			}).WithError(err).Warn("dropping assignment record")
			metrics.RecordDroppedRecord()
			continue
		}
		out = append(out, *rec)
	}
	return out
}

// NormalizeExemption converts one raw exemption.
func (n *Normalizer) NormalizeExemption(raw RawExemption) (*exemption.Record, error) {
	scopeType, scopeName, err := ParseScope(raw.ScopePath)
	if err != nil {
		return nil, errors.NormalizationError(
			fmt.Sprintf("exemption %q has unparseable scope %q", raw.Name, raw.ScopePath), err)
	}

	category := exemption.CategoryWaiver
	if strings.EqualFold(raw.Category, string(exemption.CategoryMitigated)) {
		category = exemption.CategoryMitigated
	}

	return &exemption.Record{
		ExemptionID:          raw.ID,
		ExemptionName:        raw.Name,
		TargetAssignmentID:   raw.PolicyAssignmentID,
		Category:             category,
		ScopeType:            string(scopeType),
		ScopeName:            scopeName,
		ScopePath:            raw.ScopePath,
		ExpiresOn:            raw.ExpiresOn,
		ExemptedSubRuleCount: len(raw.PolicyDefinitionRefIDs),
	}, nil
}

// NormalizeExemptions converts a batch of exemptions with the same
// drop-and-continue behavior as assignments.
func (n *Normalizer) NormalizeExemptions(raws []RawExemption) []exemption.Record {
	out := make([]exemption.Record, 0, len(raws))
	for _, raw := range raws {
		rec, err := n.NormalizeExemption(raw)
		if err != nil {
			n.logger.WithFields(map[string]interface{}{
				"exemption": raw.Name,
				"scope":     raw.ScopePath,
			}).WithError(err).Warn("dropping exemption record")
			continue
		}
		out = append(out, *rec)
	}
	return out
}

// resolveSingleEffect resolves a single rule's declared effect. A deferred
// parameter reference is looked up in the assignment's bound parameters; if
// it stays unresolved the effect defaults to Audit and the record is tagged
// Parameterized so the classifier scores it on category instead.
func (n *Normalizer) resolveSingleEffect(declared string, params map[string]string) (string, bool) {
	if declared == "" {
		return assignment.EffectAudit, true
	}
	m := deferredParamPattern.FindStringSubmatch(declared)
	if m == nil {
		return canonicalEffect(declared), false
	}
	if v, ok := params[m[1]]; ok && v != "" {
		return canonicalEffect(v), false
	}
	return assignment.EffectAudit, true
}

// summarizeMemberEffects computes the weighted effect summary of a rule-set.
func summarizeMemberEffects(members []string) string {
	counts := make(map[string]int)
	for _, eff := range members {
		if eff == "" {
			continue
		}
		counts[canonicalEffect(eff)]++
	}
	if len(counts) == 0 {
		return fmt.Sprintf("Multiple (%d policies)", len(members))
	}
	return assignment.CompositeEffect(counts)
}

func parseEnforcementMode(mode string) assignment.EnforcementMode {
	switch strings.ToLower(mode) {
	case "donotenforce", "notenforced":
		return assignment.NotEnforced
	default:
		return assignment.Enforced
	}
}

// canonicalEffect normalizes the casing of a known effect name.
func canonicalEffect(effect string) string {
	for _, known := range []string{
		assignment.EffectDeny,
		assignment.EffectAudit,
		assignment.EffectAuditIfNotExists,
		assignment.EffectDeployIfNotExists,
		assignment.EffectModify,
		assignment.EffectDisabled,
	} {
		if strings.EqualFold(effect, known) {
			return known
		}
	}
	return effect
}
