package normalizer

import (
	"fmt"
	"strings"

	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
)

// ParseScope classifies a hierarchical scope path into one of the three
// supported scope types and extracts the scope's own name.
//
//	/providers/Microsoft.Management/managementGroups/<name>  -> Org
//	/subscriptions/<id>                                      -> Account
//	/subscriptions/<id>/resourceGroups/<name>                -> ResourceGroup
func ParseScope(path string) (assignment.ScopeType, string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "", "", fmt.Errorf("empty scope path")
	}
	segments := strings.Split(trimmed, "/")
	lower := strings.ToLower(trimmed)

	if idx := strings.Index(lower, "managementgroups/"); idx >= 0 {
		rest := trimmed[idx+len("managementgroups/"):]
		name := strings.SplitN(rest, "/", 2)[0]
		if name == "" {
			return "", "", fmt.Errorf("management group scope %q has no name", path)
		}
		return assignment.ScopeOrg, name, nil
	}

	if strings.EqualFold(segments[0], "subscriptions") {
		if len(segments) < 2 || segments[1] == "" {
			return "", "", fmt.Errorf("subscription scope %q has no id", path)
		}
		if len(segments) >= 4 && strings.EqualFold(segments[2], "resourcegroups") {
			return assignment.ScopeResourceGroup, segments[3], nil
		}
		if len(segments) == 2 {
			return assignment.ScopeAccount, segments[1], nil
		}
		return "", "", fmt.Errorf("unrecognized subscription sub-scope %q", path)
	}

	return "", "", fmt.Errorf("unrecognized scope path %q", path)
}
