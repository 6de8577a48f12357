package classifier

import (
	"regexp"
	"strings"
)

// Name-keyword and category predicates used by the scoring engine. Each one
// is exported so the pattern can be tested independently of the point
// arithmetic that consumes it.

var (
	securityNamePattern = regexp.MustCompile(`(?i)\b(encrypt(ed|ion)?|firewall|mfa|multi[- ]?factor|defender|vulnerab\w*|access[- ]control|tls|ssl|https|private[- ](endpoint|link)|secrets?|rbac|zero[- ]trust|authenticat\w*|malware|threat|ddos|waf|certificate)\b`)

	governanceNamePattern = regexp.MustCompile(`(?i)\b(iso[- ]?27\d*|nist|cis|pci([- ]dss)?|hipaa|soc[- ]?2|fedramp|gdpr|benchmark|regulatory|compliance)\b`)

	costHeavyNamePattern = regexp.MustCompile(`(?i)\b(backup|disaster[- ]recovery|site[- ]recovery|log[- ]analytics|retention|premium|security[- ]center|sentinel)\b`)

	lowCostNamePattern = regexp.MustCompile(`(?i)\b(tags?|tagging|naming|resource[- ]locks?)\b`)
)

// IsSecurityRelatedName reports whether a display name carries a curated
// security-relevant term.
func IsSecurityRelatedName(name string) bool {
	return securityNamePattern.MatchString(name)
}

// IsGovernanceFrameworkName reports whether a display name references a
// governance or regulatory framework.
func IsGovernanceFrameworkName(name string) bool {
	return governanceNamePattern.MatchString(name)
}

// IsCostHeavyName reports whether a display name carries a term associated
// with cost-incurring services.
func IsCostHeavyName(name string) bool {
	return costHeavyNamePattern.MatchString(name)
}

// IsLowCostName reports whether a display name carries a term associated
// with zero-cost administrative policies.
func IsLowCostName(name string) bool {
	return lowCostNamePattern.MatchString(name)
}

func categoryHasAny(category string, terms ...string) bool {
	c := strings.ToLower(category)
	for _, term := range terms {
		if strings.Contains(c, term) {
			return true
		}
	}
	return false
}

// IsSecuritySensitiveCategory matches categories whose policies directly
// protect workloads: security tooling, key management, encryption.
func IsSecuritySensitiveCategory(category string) bool {
	return categoryHasAny(category, "security", "key vault", "encryption", "defender")
}

// IsModerateSecurityCategory matches network, identity and guardrail
// configuration categories.
func IsModerateSecurityCategory(category string) bool {
	return categoryHasAny(category, "network", "identity", "guest configuration", "guardrail", "compliance")
}

// IsRoutineCategory matches operationally routine categories.
func IsRoutineCategory(category string) bool {
	return categoryHasAny(category, "monitoring", "backup", "compute", "storage")
}

// IsAdministrativeCategory matches purely administrative categories.
func IsAdministrativeCategory(category string) bool {
	return categoryHasAny(category, "tag", "general")
}

// IsInfrastructureCategory matches categories where a Modify effect touches
// billable infrastructure.
func IsInfrastructureCategory(category string) bool {
	return categoryHasAny(category, "network", "compute", "database", "sql", "storage")
}

// cost tiers for remediation-style effects

func isMonitoringSecurityBackupCategory(category string) bool {
	return categoryHasAny(category, "monitoring", "security", "backup", "key vault", "defender")
}

func isNetworkComputeDatabaseCategory(category string) bool {
	return categoryHasAny(category, "network", "compute", "database", "sql")
}

func isStorageRegistryPipelineCategory(category string) bool {
	return categoryHasAny(category, "storage", "registry", "container", "pipeline")
}
