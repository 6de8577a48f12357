package coverage

import (
	"math"
	"strings"

	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
	"github.com/cloudgovern/policyaudit/internal/domain/catalog"
)

// Status classifies one baseline catalog entry against the tenant's actual
// assignments.
type Status string

const (
	StatusMatched   Status = "Matched"
	StatusAuditOnly Status = "AuditOnly"
	StatusMissing   Status = "Missing"
)

// EntryResult is the verdict for one catalog entry.
type EntryResult struct {
	Category    string   `json:"category"`
	Name        string   `json:"name"`
	Status      Status   `json:"status"`
	MatchedWith []string `json:"matched_with,omitempty"`
}

// CategoryResult aggregates counts for one catalog category.
type CategoryResult struct {
	Category  string `json:"category"`
	Matched   int    `json:"matched"`
	AuditOnly int    `json:"audit_only"`
	Missing   int    `json:"missing"`
}

// Result is the full output of a coverage match. Every catalog entry lands in
// exactly one of the three buckets.
type Result struct {
	Entries                 []EntryResult    `json:"entries"`
	Categories              []CategoryResult `json:"categories"`
	TotalEntries            int              `json:"total_entries"`
	Matched                 int              `json:"matched"`
	AuditOnly               int              `json:"audit_only"`
	Missing                 int              `json:"missing"`
	CoveragePercent         int              `json:"coverage_percent"`
	EnforcedCoveragePercent int              `json:"enforced_coverage_percent"`
}

// Match cross-references the record set against a recommended-baseline
// catalog. Matching is case-insensitive substring containment in either
// direction against the assignment name, display name and resolved rule name:
// baseline naming conventions and tenant naming frequently differ by prefix
// or suffix only.
func Match(records []assignment.Record, cat catalog.Catalog) Result {
	result := Result{}

	for _, group := range cat.Groups {
		catResult := CategoryResult{Category: group.Category}
		for _, name := range group.Entries {
			entry := EntryResult{Category: group.Category, Name: name}

			var matched []*assignment.Record
			for i := range records {
				if recordMatches(&records[i], name) {
					matched = append(matched, &records[i])
				}
			}

			switch {
			case len(matched) == 0:
				entry.Status = StatusMissing
				catResult.Missing++
			case allNotEnforced(matched):
				entry.Status = StatusAuditOnly
				catResult.AuditOnly++
			default:
				entry.Status = StatusMatched
				catResult.Matched++
			}
			for _, m := range matched {
				entry.MatchedWith = append(entry.MatchedWith, m.AssignmentName)
			}

			result.Entries = append(result.Entries, entry)
		}
		result.Matched += catResult.Matched
		result.AuditOnly += catResult.AuditOnly
		result.Missing += catResult.Missing
		result.Categories = append(result.Categories, catResult)
	}

	result.TotalEntries = cat.TotalEntries()
	if result.TotalEntries > 0 {
		result.CoveragePercent = roundPercent(result.Matched+result.AuditOnly, result.TotalEntries)
		result.EnforcedCoveragePercent = roundPercent(result.Matched, result.TotalEntries)
	}

	return result
}

func recordMatches(r *assignment.Record, entryName string) bool {
	entry := strings.ToLower(entryName)
	if entry == "" {
		return false
	}
	for _, candidate := range []string{r.AssignmentName, r.DisplayName, r.RuleName} {
		if candidate == "" {
			continue
		}
		c := strings.ToLower(candidate)
		if strings.Contains(c, entry) || strings.Contains(entry, c) {
			return true
		}
	}
	return false
}

func allNotEnforced(records []*assignment.Record) bool {
	for _, r := range records {
		if r.IsEnforced() {
			return false
		}
	}
	return true
}

func roundPercent(part, total int) int {
	return int(math.Round(float64(part) / float64(total) * 100))
}
