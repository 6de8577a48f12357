package assignment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Effect vocabulary. A policy-set assignment whose members resolve to mixed
// effects carries a composite summary string instead, e.g. "Audit(5), Deny(3)".
const (
	EffectDeny              = "Deny"
	EffectAudit             = "Audit"
	EffectAuditIfNotExists  = "AuditIfNotExists"
	EffectDeployIfNotExists = "DeployIfNotExists"
	EffectModify            = "Modify"
	EffectDisabled          = "Disabled"
)

// MemberEffectCount is one effect bucket inside a composite summary.
type MemberEffectCount struct {
	Effect string
	Count  int
}

// CompositeEffect renders a composite summary for mixed member effects,
// ordered by descending member count. Ties break by effect name so the
// summary is stable across runs.
func CompositeEffect(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	buckets := make([]MemberEffectCount, 0, len(counts))
	for effect, n := range counts {
		buckets = append(buckets, MemberEffectCount{Effect: effect, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Effect < buckets[j].Effect
	})
	if len(buckets) == 1 {
		return buckets[0].Effect
	}
	parts := make([]string, len(buckets))
	for i, b := range buckets {
		parts[i] = fmt.Sprintf("%s(%d)", b.Effect, b.Count)
	}
	return strings.Join(parts, ", ")
}

// IsComposite reports whether an effect string is a mixed-member summary.
func IsComposite(effect string) bool {
	return strings.Contains(effect, "(")
}

// ParseComposite splits a composite summary back into its buckets. A plain
// effect string parses as a single bucket with count 1.
func ParseComposite(effect string) []MemberEffectCount {
	if !IsComposite(effect) {
		if effect == "" {
			return nil
		}
		return []MemberEffectCount{{Effect: effect, Count: 1}}
	}
	var buckets []MemberEffectCount
	for _, part := range strings.Split(effect, ",") {
		part = strings.TrimSpace(part)
		open := strings.Index(part, "(")
		close := strings.Index(part, ")")
		if open < 1 || close <= open {
			continue
		}
		n, err := strconv.Atoi(part[open+1 : close])
		if err != nil {
			continue
		}
		buckets = append(buckets, MemberEffectCount{Effect: part[:open], Count: n})
	}
	return buckets
}

// DominantEffect returns the highest-count member effect of a composite
// summary, or the effect itself when it is not composite. Composite summaries
// are rendered in descending count order, so the first bucket is dominant.
func DominantEffect(effect string) string {
	buckets := ParseComposite(effect)
	if len(buckets) == 0 {
		return effect
	}
	return buckets[0].Effect
}

// ContainsEffect reports whether an effect string is, or includes as a
// composite member, the given effect.
func ContainsEffect(effect, target string) bool {
	if equalFold(effect, target) {
		return true
	}
	for _, b := range ParseComposite(effect) {
		if equalFold(b.Effect, target) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool { return strings.EqualFold(a, b) }

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
