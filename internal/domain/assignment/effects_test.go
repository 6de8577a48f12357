package assignment

import (
	"reflect"
	"testing"
)

func TestCompositeEffect(t *testing.T) {
	tests := []struct {
		name   string
		counts map[string]int
		want   string
	}{
		{"empty", nil, ""},
		{"single effect collapses to plain string", map[string]int{"Deny": 4}, "Deny"},
		{
			"descending count order",
			map[string]int{"Audit": 2, "Deny": 5, "Modify": 1},
			"Deny(5), Audit(2), Modify(1)",
		},
		{
			"count tie breaks by effect name",
			map[string]int{"Deny": 2, "Audit": 2, "AuditIfNotExists": 1},
			"Audit(2), Deny(2), AuditIfNotExists(1)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompositeEffect(tt.counts); got != tt.want {
				t.Errorf("CompositeEffect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseComposite(t *testing.T) {
	tests := []struct {
		name   string
		effect string
		want   []MemberEffectCount
	}{
		{"empty", "", nil},
		{"plain effect is a single bucket", "Deny", []MemberEffectCount{{Effect: "Deny", Count: 1}}},
		{
			"composite summary",
			"Deny(5), Audit(2)",
			[]MemberEffectCount{{Effect: "Deny", Count: 5}, {Effect: "Audit", Count: 2}},
		},
		{"opaque count is skipped", "Multiple (3 policies)", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseComposite(tt.effect); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseComposite(%q) = %+v, want %+v", tt.effect, got, tt.want)
			}
		})
	}
}

func TestDominantEffect(t *testing.T) {
	tests := []struct {
		effect string
		want   string
	}{
		{"Deny", "Deny"},
		{"Deny(5), Audit(2)", "Deny"},
		{"Multiple (3 policies)", "Multiple (3 policies)"},
	}
	for _, tt := range tests {
		if got := DominantEffect(tt.effect); got != tt.want {
			t.Errorf("DominantEffect(%q) = %q, want %q", tt.effect, got, tt.want)
		}
	}
}

func TestContainsEffect(t *testing.T) {
	tests := []struct {
		effect string
		target string
		want   bool
	}{
		{"Deny", "deny", true},
		{"Deny(5), Audit(2)", "Audit", true},
		{"Deny(5), Audit(2)", "Modify", false},
		{"Audit", "AuditIfNotExists", false},
	}
	for _, tt := range tests {
		if got := ContainsEffect(tt.effect, tt.target); got != tt.want {
			t.Errorf("ContainsEffect(%q, %q) = %v, want %v", tt.effect, tt.target, got, tt.want)
		}
	}
}

func TestFilterMatches(t *testing.T) {
	rec := &Record{
		AssignmentName: "deny-public-ip",
		Category:       "Network",
		Effect:         "Deny",
		RiskLevel:      LevelHigh,
		ScopePath:      "/subscriptions/sub-1",
	}
	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches everything", Filter{}, true},
		{"scope substring, case-insensitive", Filter{ScopePath: "SUB-1"}, true},
		{"category fold", Filter{Category: "network"}, true},
		{"risk mismatch", Filter{RiskLevel: LevelLow}, false},
		{"effect is exact", Filter{Effect: "Audit"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(rec); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
