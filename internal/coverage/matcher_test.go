package coverage

import (
	"testing"

	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
	"github.com/cloudgovern/policyaudit/internal/domain/catalog"
)

func testCatalog() catalog.Catalog {
	return catalog.Catalog{
		Groups: []catalog.Group{
			{
				Category: "Network",
				Entries:  []string{"Deny-Public-IP", "Require-NSG"},
			},
			{
				Category: "Security",
				Entries:  []string{"Require-Storage-Encryption", "Enable-Defender"},
			},
		},
	}
}

func TestMatch_NamingTolerance(t *testing.T) {
	records := []assignment.Record{
		{
			// catalog entry is a substring of the tenant's name
			AssignmentName:  "Corp-Deny-Public-IP-v2",
			EnforcementMode: assignment.Enforced,
		},
		{
			// tenant's rule name is a substring of the catalog entry
			AssignmentName:  "enc-1",
			DisplayName:     "custom",
			RuleName:        "Storage-Encryption",
			EnforcementMode: assignment.Enforced,
		},
	}

	result := Match(records, testCatalog())

	byName := map[string]EntryResult{}
	for _, e := range result.Entries {
		byName[e.Name] = e
	}

	if got := byName["Deny-Public-IP"].Status; got != StatusMatched {
		t.Errorf("Deny-Public-IP status = %v, want Matched", got)
	}
	if got := byName["Deny-Public-IP"].MatchedWith; len(got) != 1 || got[0] != "Corp-Deny-Public-IP-v2" {
		t.Errorf("Deny-Public-IP matched with %v", got)
	}
	if got := byName["Require-Storage-Encryption"].Status; got != StatusMatched {
		t.Errorf("Require-Storage-Encryption status = %v, want Matched", got)
	}
	if got := byName["Require-NSG"].Status; got != StatusMissing {
		t.Errorf("Require-NSG status = %v, want Missing", got)
	}
	if got := byName["Enable-Defender"].Status; got != StatusMissing {
		t.Errorf("Enable-Defender status = %v, want Missing", got)
	}
}

func TestMatch_AuditOnly(t *testing.T) {
	records := []assignment.Record{
		{
			AssignmentName:  "deny-public-ip",
			EnforcementMode: assignment.NotEnforced,
		},
		{
			AssignmentName:  "deny-public-ip-prod",
			EnforcementMode: assignment.NotEnforced,
		},
		{
			AssignmentName:  "require-nsg",
			EnforcementMode: assignment.NotEnforced,
		},
		{
			// one enforced match flips the entry back to Matched
			AssignmentName:  "require-nsg-prod",
			EnforcementMode: assignment.Enforced,
		},
	}

	result := Match(records, testCatalog())

	byName := map[string]EntryResult{}
	for _, e := range result.Entries {
		byName[e.Name] = e
	}

	if got := byName["Deny-Public-IP"].Status; got != StatusAuditOnly {
		t.Errorf("Deny-Public-IP status = %v, want AuditOnly", got)
	}
	if got := byName["Require-NSG"].Status; got != StatusMatched {
		t.Errorf("Require-NSG status = %v, want Matched", got)
	}
}

func TestMatch_Completeness(t *testing.T) {
	records := []assignment.Record{
		{AssignmentName: "Deny-Public-IP", EnforcementMode: assignment.Enforced},
		{AssignmentName: "Enable-Defender", EnforcementMode: assignment.NotEnforced},
	}

	result := Match(records, testCatalog())

	total := result.Matched + result.AuditOnly + result.Missing
	if total != result.TotalEntries {
		t.Errorf("bucket sum = %d, want %d", total, result.TotalEntries)
	}
	if result.TotalEntries != 4 {
		t.Errorf("TotalEntries = %d, want 4", result.TotalEntries)
	}
	if len(result.Entries) != result.TotalEntries {
		t.Errorf("len(Entries) = %d, want %d", len(result.Entries), result.TotalEntries)
	}

	// 1 matched + 1 audit-only of 4 entries
	if result.CoveragePercent != 50 {
		t.Errorf("CoveragePercent = %d, want 50", result.CoveragePercent)
	}
	if result.EnforcedCoveragePercent != 25 {
		t.Errorf("EnforcedCoveragePercent = %d, want 25", result.EnforcedCoveragePercent)
	}
}

func TestMatch_PercentRounding(t *testing.T) {
	cat := catalog.Catalog{
		Groups: []catalog.Group{
			{Category: "Network", Entries: []string{"a-entry", "b-entry", "c-entry"}},
		},
	}
	records := []assignment.Record{
		{AssignmentName: "a-entry", EnforcementMode: assignment.Enforced},
	}

	result := Match(records, cat)

	// 1/3 rounds to 33, not truncates to 32 or ceils to 34
	if result.CoveragePercent != 33 {
		t.Errorf("CoveragePercent = %d, want 33", result.CoveragePercent)
	}

	records = append(records, assignment.Record{AssignmentName: "b-entry", EnforcementMode: assignment.Enforced})
	result = Match(records, cat)

	// 2/3 rounds up to 67
	if result.CoveragePercent != 67 {
		t.Errorf("CoveragePercent = %d, want 67", result.CoveragePercent)
	}
}

func TestMatch_EmptyCatalog(t *testing.T) {
	records := []assignment.Record{
		{AssignmentName: "Deny-Public-IP", EnforcementMode: assignment.Enforced},
	}

	result := Match(records, catalog.Catalog{})

	if result.TotalEntries != 0 {
		t.Errorf("TotalEntries = %d, want 0", result.TotalEntries)
	}
	if result.CoveragePercent != 0 || result.EnforcedCoveragePercent != 0 {
		t.Errorf("percentages = %d/%d, want 0/0",
			result.CoveragePercent, result.EnforcedCoveragePercent)
	}
	if len(result.Entries) != 0 {
		t.Errorf("len(Entries) = %d, want 0", len(result.Entries))
	}
}

func TestMatch_NoRecords(t *testing.T) {
	result := Match(nil, testCatalog())

	if result.Missing != result.TotalEntries {
		t.Errorf("Missing = %d, want all %d entries", result.Missing, result.TotalEntries)
	}
	for _, e := range result.Entries {
		if e.Status != StatusMissing {
			t.Errorf("entry %s status = %v, want Missing", e.Name, e.Status)
		}
	}
}
