package delta

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
	"github.com/cloudgovern/policyaudit/internal/domain/exemption"
	"github.com/cloudgovern/policyaudit/internal/domain/snapshot"
	"github.com/cloudgovern/policyaudit/internal/pkg/errors"
	"github.com/cloudgovern/policyaudit/internal/pkg/metrics"
)

// Engine compares a previous snapshot with the current record set and
// produces a structured change report.
type Engine struct{}

// New creates a delta engine.
func New() *Engine {
	return &Engine{}
}

// Compute diffs the current run against a previous snapshot. When the
// current run was scoped to a sub-hierarchy, scopeFilter restricts the
// previous snapshot to the same sub-hierarchy first, so out-of-scope previous
// assignments are not reported as spuriously removed.
//
// A nil or unloadable previous snapshot is a hard failure: a silently empty
// delta would report everything as new.
func (e *Engine) Compute(previous *snapshot.Snapshot, current []assignment.Record, currentExemptions []exemption.Record, scopeFilter string) (*snapshot.DeltaResult, error) {
	if previous == nil {
		return nil, errors.SnapshotMalformed("previous snapshot is missing", nil)
	}
	if previous.Timestamp.IsZero() {
		return nil, errors.SnapshotMalformed("previous snapshot has no timestamp", nil)
	}

	prevAssignments := filterAssignments(previous.Assignments, scopeFilter)
	prevExemptions := filterExemptions(previous.Exemptions, scopeFilter)

	result := &snapshot.DeltaResult{
		PreviousID:        previous.ID,
		PreviousTimestamp: previous.Timestamp.Format(time.RFC3339),
	}

	e.diffAssignments(result, prevAssignments, current)
	e.diffEffectDistribution(result, prevAssignments, current)
	e.diffExemptions(result, prevExemptions, currentExemptions)

	result.NonCompliantDelta = sumNonCompliant(current) - sumNonCompliant(prevAssignments)
	result.HighRiskDelta = countHighRisk(current) - countHighRisk(prevAssignments)
	result.EnforcedDelta = countEnforced(current) - countEnforced(prevAssignments)
	result.Trend = verdict(result)

	metrics.RecordDeltaComputation(string(result.Trend))
	return result, nil
}

// trackedFields lists the assignment fields compared for change entries, with
// their string projections.
var trackedFields = []struct {
	name string
	get  func(*assignment.Record) string
}{
	{"effect", func(r *assignment.Record) string { return r.Effect }},
	{"enforcement_mode", func(r *assignment.Record) string { return string(r.EnforcementMode) }},
	{"non_compliant_resource_count", func(r *assignment.Record) string { return strconv.Itoa(r.NonCompliantResourceCount) }},
	{"risk_level", func(r *assignment.Record) string { return string(r.RiskLevel) }},
	{"total_resource_count", func(r *assignment.Record) string { return strconv.Itoa(r.TotalResourceCount) }},
}

func (e *Engine) diffAssignments(result *snapshot.DeltaResult, previous, current []assignment.Record) {
	prevByKey := make(map[string]*assignment.Record, len(previous))
	for i := range previous {
		prevByKey[previous[i].Key()] = &previous[i]
	}
	currentKeys := make(map[string]bool, len(current))

	for i := range current {
		cur := &current[i]
		currentKeys[cur.Key()] = true

		prev, ok := prevByKey[cur.Key()]
		if !ok {
			result.NewAssignments = append(result.NewAssignments, *cur)
			continue
		}

		var changes []snapshot.FieldChange
		for _, f := range trackedFields {
			before, after := f.get(prev), f.get(cur)
			if before != after {
				changes = append(changes, snapshot.FieldChange{
					Field:    f.name,
					Previous: before,
					Current:  after,
				})
			}
		}
		if len(changes) > 0 {
			result.ChangedAssignments = append(result.ChangedAssignments, snapshot.AssignmentChange{
				AssignmentName: cur.AssignmentName,
				ScopePath:      cur.ScopePath,
				Changes:        changes,
			})
		}
	}

	for i := range previous {
		if !currentKeys[previous[i].Key()] {
			result.RemovedAssignments = append(result.RemovedAssignments, previous[i])
		}
	}

	sortAssignments(result.NewAssignments)
	sortAssignments(result.RemovedAssignments)
	sort.Slice(result.ChangedAssignments, func(i, j int) bool {
		a, b := result.ChangedAssignments[i], result.ChangedAssignments[j]
		if a.AssignmentName != b.AssignmentName {
			return a.AssignmentName < b.AssignmentName
		}
		return a.ScopePath < b.ScopePath
	})
}

// diffEffectDistribution compares effect label counts between the two runs.
// Composite summary strings are compared as opaque labels, not decomposed.
func (e *Engine) diffEffectDistribution(result *snapshot.DeltaResult, previous, current []assignment.Record) {
	prevCounts := make(map[string]int)
	for i := range previous {
		prevCounts[previous[i].Effect]++
	}
	curCounts := make(map[string]int)
	for i := range current {
		curCounts[current[i].Effect]++
	}

	labels := make(map[string]bool)
	for l := range prevCounts {
		labels[l] = true
	}
	for l := range curCounts {
		labels[l] = true
	}

	for label := range labels {
		before, after := prevCounts[label], curCounts[label]
		if before == after {
			continue
		}
		result.EffectDeltas = append(result.EffectDeltas, snapshot.EffectCountDelta{
			Effect:   label,
			Previous: before,
			Current:  after,
			Delta:    after - before,
		})
	}
	sort.Slice(result.EffectDeltas, func(i, j int) bool {
		return result.EffectDeltas[i].Effect < result.EffectDeltas[j].Effect
	})
}

func (e *Engine) diffExemptions(result *snapshot.DeltaResult, previous, current []exemption.Record) {
	prevKeys := make(map[string]bool, len(previous))
	for i := range previous {
		prevKeys[previous[i].Key()] = true
	}
	curKeys := make(map[string]bool, len(current))
	for i := range current {
		curKeys[current[i].Key()] = true
		if !prevKeys[current[i].Key()] {
			result.NewExemptions = append(result.NewExemptions, current[i])
		}
	}
	for i := range previous {
		if !curKeys[previous[i].Key()] {
			result.RemovedExemptions = append(result.RemovedExemptions, previous[i])
		}
	}
	sortExemptions(result.NewExemptions)
	sortExemptions(result.RemovedExemptions)
}

// verdict evaluates the trend rules in order and stops at the first match.
func verdict(d *snapshot.DeltaResult) snapshot.Trend {
	switch {
	case d.NonCompliantDelta < 0 && d.HighRiskDelta <= 0 && d.EnforcedDelta >= 0:
		return snapshot.TrendImproving
	case d.NonCompliantDelta > 0 || d.HighRiskDelta > 0:
		return snapshot.TrendDegrading
	case d.NonCompliantDelta == 0 && d.HighRiskDelta == 0:
		return snapshot.TrendStable
	default:
		return snapshot.TrendMixed
	}
}

func filterAssignments(records []assignment.Record, scopeFilter string) []assignment.Record {
	if scopeFilter == "" {
		return records
	}
	out := make([]assignment.Record, 0, len(records))
	for i := range records {
		if strings.Contains(records[i].ScopePath, scopeFilter) {
			out = append(out, records[i])
		}
	}
	return out
}

func filterExemptions(records []exemption.Record, scopeFilter string) []exemption.Record {
	if scopeFilter == "" {
		return records
	}
	out := make([]exemption.Record, 0, len(records))
	for i := range records {
		if strings.Contains(records[i].ScopePath, scopeFilter) {
			out = append(out, records[i])
		}
	}
	return out
}

func sumNonCompliant(records []assignment.Record) int {
	n := 0
	for i := range records {
		n += records[i].NonCompliantResourceCount
	}
	return n
}

func countHighRisk(records []assignment.Record) int {
	n := 0
	for i := range records {
		if records[i].RiskLevel == assignment.LevelHigh {
			n++
		}
	}
	return n
}

func countEnforced(records []assignment.Record) int {
	n := 0
	for i := range records {
		if records[i].IsEnforced() {
			n++
		}
	}
	return n
}

func sortAssignments(records []assignment.Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].Key() < records[j].Key() })
}

func sortExemptions(records []exemption.Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].Key() < records[j].Key() })
}
