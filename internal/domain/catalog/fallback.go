package catalog

// Fallback returns the built-in baseline used when no external catalog can be
// loaded. The content is a small set of broadly recommended guardrails; any
// deployment can replace it by supplying a catalog file.
func Fallback() Catalog {
	return Catalog{Groups: []Group{
		{
			Category: "Security",
			Entries: []string{
				"Deploy-MDFC-Config",
				"Deny-Public-IP",
				"Enforce-Encryption-At-Rest",
				"Deploy-Defender-Plans",
				"Enforce-TLS-Version",
			},
		},
		{
			Category: "Network",
			Entries: []string{
				"Deny-Public-Endpoints",
				"Deploy-Firewall-Policy",
				"Deny-RDP-From-Internet",
				"Enforce-Private-Link",
			},
		},
		{
			Category: "Monitoring",
			Entries: []string{
				"Deploy-Activity-Log-Export",
				"Deploy-VM-Monitoring",
				"Deploy-Diagnostic-Settings",
			},
		},
		{
			Category: "Governance",
			Entries: []string{
				"Require-Resource-Tags",
				"Allowed-Locations",
				"Deny-Classic-Resources",
			},
		},
	}}
}
