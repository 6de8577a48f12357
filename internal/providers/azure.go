package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armpolicy"
	"golang.org/x/time/rate"

	"github.com/cloudgovern/policyaudit/internal/config"
	"github.com/cloudgovern/policyaudit/internal/normalizer"
	"github.com/cloudgovern/policyaudit/internal/pkg/errors"
	"github.com/cloudgovern/policyaudit/internal/pkg/logger"
)

// AzureClient is the thin retrieval layer over the governance API. It only
// fetches raw records; all interpretation happens in the normalizer and
// classifier.
type AzureClient struct {
	assignments    *armpolicy.AssignmentsClient
	definitions    *armpolicy.DefinitionsClient
	setDefinitions *armpolicy.SetDefinitionsClient
	exemptions     *armpolicy.ExemptionsClient
	limiter        *rate.Limiter
	logger         *logger.Logger
}

// NewAzureClient authenticates with a client secret credential and builds the
// policy clients for one subscription.
func NewAzureClient(cfg config.AzureConfig, log *logger.Logger) (*AzureClient, error) {
	cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	if err != nil {
		return nil, errors.ProviderAuthError("azure", err)
	}
	return newAzureClient(cfg, cred, log)
}

func newAzureClient(cfg config.AzureConfig, cred azcore.TokenCredential, log *logger.Logger) (*AzureClient, error) {
	assignments, err := armpolicy.NewAssignmentsClient(cfg.SubscriptionID, cred, nil)
	if err != nil {
		return nil, errors.ProviderAPIError("azure", err)
	}
	definitions, err := armpolicy.NewDefinitionsClient(cfg.SubscriptionID, cred, nil)
	if err != nil {
		return nil, errors.ProviderAPIError("azure", err)
	}
	setDefinitions, err := armpolicy.NewSetDefinitionsClient(cfg.SubscriptionID, cred, nil)
	if err != nil {
		return nil, errors.ProviderAPIError("azure", err)
	}
	exemptions, err := armpolicy.NewExemptionsClient(cfg.SubscriptionID, cred, nil)
	if err != nil {
		return nil, errors.ProviderAPIError("azure", err)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &AzureClient{
		assignments:    assignments,
		definitions:    definitions,
		setDefinitions: setDefinitions,
		exemptions:     exemptions,
		limiter:        rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		logger:         log,
	}, nil
}

// ListAssignments pages through all policy assignments visible in the
// subscription and returns them as raw records.
func (c *AzureClient) ListAssignments(ctx context.Context) ([]normalizer.RawAssignment, error) {
	var out []normalizer.RawAssignment

	pager := c.assignments.NewListPager(nil)
	for pager.More() {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.ProviderAPIError("azure", err)
		}
		for _, a := range page.Value {
			if a == nil || a.Properties == nil {
				continue
			}
			raw := normalizer.RawAssignment{
				ID:                 deref(a.ID),
				Name:               deref(a.Name),
				DisplayName:        deref(a.Properties.DisplayName),
				PolicyDefinitionID: deref(a.Properties.PolicyDefinitionID),
				ScopePath:          deref(a.Properties.Scope),
			}
			if a.Properties.EnforcementMode != nil {
				raw.EnforcementMode = string(*a.Properties.EnforcementMode)
			}
			raw.Parameters = flattenParameters(a.Properties.Parameters)
			out = append(out, raw)
		}
	}

	return out, nil
}

// ListExemptions pages through all policy exemptions in the subscription.
func (c *AzureClient) ListExemptions(ctx context.Context) ([]normalizer.RawExemption, error) {
	var out []normalizer.RawExemption

	pager := c.exemptions.NewListPager(nil)
	for pager.More() {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.ProviderAPIError("azure", err)
		}
		for _, e := range page.Value {
			if e == nil || e.Properties == nil {
				continue
			}
			raw := normalizer.RawExemption{
				ID:                 deref(e.ID),
				Name:               deref(e.Name),
				PolicyAssignmentID: deref(e.Properties.PolicyAssignmentID),
				ExpiresOn:          e.Properties.ExpiresOn,
				ScopePath:          scopeFromResourceID(deref(e.ID)),
			}
			if e.Properties.ExemptionCategory != nil {
				raw.Category = string(*e.Properties.ExemptionCategory)
			}
			for _, ref := range e.Properties.PolicyDefinitionReferenceIDs {
				if ref != nil {
					raw.PolicyDefinitionRefIDs = append(raw.PolicyDefinitionRefIDs, *ref)
				}
			}
			out = append(out, raw)
		}
	}

	return out, nil
}

// Resolver returns a DefinitionResolver backed by the definition clients,
// with results cached for the lifetime of the client.
func (c *AzureClient) Resolver(ctx context.Context) normalizer.DefinitionResolver {
	return &azureResolver{client: c, ctx: ctx, cache: make(map[string]*normalizer.Definition)}
}

// azureResolver resolves rule and rule-set metadata with a process-local
// cache so repeated assignments of the same definition cost one lookup.
type azureResolver struct {
	client *AzureClient
	ctx    context.Context
	mu     sync.Mutex
	cache  map[string]*normalizer.Definition
}

func (r *azureResolver) Resolve(definitionID string) (*normalizer.Definition, error) {
	r.mu.Lock()
	if def, ok := r.cache[definitionID]; ok {
		r.mu.Unlock()
		return def, nil
	}
	r.mu.Unlock()

	var def *normalizer.Definition
	var err error
	if strings.Contains(strings.ToLower(definitionID), "/policysetdefinitions/") {
		def, err = r.resolveSet(definitionID)
	} else {
		def, err = r.resolveSingle(definitionID)
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[definitionID] = def
	r.mu.Unlock()
	return def, nil
}

func (r *azureResolver) resolveSingle(definitionID string) (*normalizer.Definition, error) {
	if err := r.client.limiter.Wait(r.ctx); err != nil {
		return nil, err
	}
	name := lastSegment(definitionID)

	var props *armpolicy.DefinitionProperties
	if isBuiltIn(definitionID) {
		resp, err := r.client.definitions.GetBuiltIn(r.ctx, name, nil)
		if err != nil {
			return nil, errors.ProviderAPIError("azure", err)
		}
		props = resp.Properties
	} else {
		resp, err := r.client.definitions.Get(r.ctx, name, nil)
		if err != nil {
			return nil, errors.ProviderAPIError("azure", err)
		}
		props = resp.Properties
	}
	if props == nil {
		return nil, errors.ProviderAPIError("azure", fmt.Errorf("definition %s has no properties", definitionID))
	}

	return &normalizer.Definition{
		ID:          definitionID,
		DisplayName: deref(props.DisplayName),
		Category:    metadataCategory(props.Metadata),
		Effect:      ruleEffect(props.PolicyRule),
	}, nil
}

func (r *azureResolver) resolveSet(definitionID string) (*normalizer.Definition, error) {
	if err := r.client.limiter.Wait(r.ctx); err != nil {
		return nil, err
	}
	name := lastSegment(definitionID)

	var props *armpolicy.SetDefinitionProperties
	if isBuiltIn(definitionID) {
		resp, err := r.client.setDefinitions.GetBuiltIn(r.ctx, name, nil)
		if err != nil {
			return nil, errors.ProviderAPIError("azure", err)
		}
		props = resp.Properties
	} else {
		resp, err := r.client.setDefinitions.Get(r.ctx, name, nil)
		if err != nil {
			return nil, errors.ProviderAPIError("azure", err)
		}
		props = resp.Properties
	}
	if props == nil {
		return nil, errors.ProviderAPIError("azure", fmt.Errorf("set definition %s has no properties", definitionID))
	}

	def := &normalizer.Definition{
		ID:          definitionID,
		DisplayName: deref(props.DisplayName),
		Category:    metadataCategory(props.Metadata),
		IsSet:       true,
	}

	// Resolve each member's effect. Unresolvable members stay as empty
	// strings; the normalizer summarizes whatever resolved.
	for _, ref := range props.PolicyDefinitions {
		if ref == nil || ref.PolicyDefinitionID == nil {
			continue
		}
		member, err := r.resolveSingle(*ref.PolicyDefinitionID)
		if err != nil {
			r.client.logger.WithFields(map[string]interface{}{
				"definition": *ref.PolicyDefinitionID,
			}).WithError(err).Warn("member definition lookup failed")
			def.MemberEffects = append(def.MemberEffects, "")
			continue
		}
		def.MemberEffects = append(def.MemberEffects, resolveMemberEffect(member.Effect, ref.Parameters))
	}

	return def, nil
}

// resolveMemberEffect substitutes a deferred effect parameter with the value
// the set binds for that member, when there is one.
func resolveMemberEffect(effect string, params map[string]*armpolicy.ParameterValuesValue) string {
	if !strings.HasPrefix(effect, "[parameters(") {
		return effect
	}
	name := strings.TrimSuffix(strings.TrimPrefix(effect, "[parameters('"), "')]")
	if v, ok := params[name]; ok && v != nil && v.Value != nil {
		if s, ok := v.Value.(string); ok {
			return s
		}
	}
	return ""
}

func flattenParameters(params map[string]*armpolicy.ParameterValuesValue) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for k, v := range params {
		if v == nil || v.Value == nil {
			continue
		}
		if s, ok := v.Value.(string); ok {
			out[k] = s
		}
	}
	return out
}

func metadataCategory(metadata interface{}) string {
	m, ok := metadata.(map[string]interface{})
	if !ok {
		return ""
	}
	if cat, ok := m["category"].(string); ok {
		return cat
	}
	return ""
}

// ruleEffect digs the declared effect out of a policy rule document.
func ruleEffect(policyRule interface{}) string {
	m, ok := policyRule.(map[string]interface{})
	if !ok {
		return ""
	}
	then, ok := m["then"].(map[string]interface{})
	if !ok {
		return ""
	}
	if eff, ok := then["effect"].(string); ok {
		return eff
	}
	return ""
}

func isBuiltIn(definitionID string) bool {
	return strings.HasPrefix(strings.ToLower(definitionID), "/providers/microsoft.authorization/")
}

func lastSegment(id string) string {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	return parts[len(parts)-1]
}

// scopeFromResourceID strips the trailing provider segments from a resource
// ID to recover the scope it sits at.
func scopeFromResourceID(id string) string {
	lower := strings.ToLower(id)
	if idx := strings.Index(lower, "/providers/microsoft.authorization/policyexemptions/"); idx > 0 {
		return id[:idx]
	}
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
