package services

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloudgovern/policyaudit/internal/classifier"
	"github.com/cloudgovern/policyaudit/internal/coverage"
	"github.com/cloudgovern/policyaudit/internal/delta"
	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
	catalogdomain "github.com/cloudgovern/policyaudit/internal/domain/catalog"
	"github.com/cloudgovern/policyaudit/internal/domain/snapshot"
	"github.com/cloudgovern/policyaudit/internal/normalizer"
	"github.com/cloudgovern/policyaudit/internal/pkg/errors"
	"github.com/cloudgovern/policyaudit/internal/pkg/logger"
	"github.com/cloudgovern/policyaudit/internal/pkg/metrics"
)

// ComplianceFacts carries the per-assignment compliance counters supplied by
// the retrieval layer. Absence of facts is never fatal; counters default to
// zero.
type ComplianceFacts struct {
	NonCompliantResourceCount int
	TotalResourceCount        int
	ActiveExemptionCount      int
}

// AssessmentInput is everything one assessment run consumes.
type AssessmentInput struct {
	TenantID    string
	ScopeFilter string
	VersionTag  string
	Assignments []normalizer.RawAssignment
	Exemptions  []normalizer.RawExemption
	// ComplianceFacts is keyed by assignment ID; may be partial or nil.
	ComplianceFacts map[string]ComplianceFacts
	// Persist stores the resulting snapshot.
	Persist bool
	// CompareLatest diffs the run against the tenant's latest stored
	// snapshot, when one exists.
	CompareLatest bool
}

// AssessmentResult is the output of one run.
type AssessmentResult struct {
	Snapshot *snapshot.Snapshot    `json:"snapshot"`
	Coverage coverage.Result       `json:"coverage"`
	Delta    *snapshot.DeltaResult `json:"delta,omitempty"`
	Dropped  int                   `json:"dropped_records"`
}

// AssessmentService runs the full pipeline: normalize, classify, match
// coverage, snapshot, and optionally persist and diff.
type AssessmentService struct {
	normalizer *normalizer.Normalizer
	classifier *classifier.Classifier
	delta      *delta.Engine
	snapshots  snapshot.Repository
	catalog    catalogdomain.Catalog
	logger     *logger.Logger
	workers    int
}

// NewAssessmentService creates an assessment service. The repository may be
// nil for purely in-memory runs; Persist and CompareLatest are then ignored.
func NewAssessmentService(
	norm *normalizer.Normalizer,
	repo snapshot.Repository,
	cat catalogdomain.Catalog,
	log *logger.Logger,
) *AssessmentService {
	return &AssessmentService{
		normalizer: norm,
		classifier: classifier.New(),
		delta:      delta.New(),
		snapshots:  repo,
		catalog:    cat,
		logger:     log,
		workers:    runtime.NumCPU(),
	}
}

// Run executes one assessment.
func (s *AssessmentService) Run(ctx context.Context, input AssessmentInput) (*AssessmentResult, error) {
	start := time.Now()

	records := s.normalizer.NormalizeAll(input.Assignments)
	dropped := len(input.Assignments) - len(records)
	applyFacts(records, input.ComplianceFacts)
	s.classifyAll(records)
	exemptions := s.normalizer.NormalizeExemptions(input.Exemptions)

	now := time.Now().UTC()
	snap := &snapshot.Snapshot{
		ID:          uuid.New().String(),
		Timestamp:   now,
		VersionTag:  input.VersionTag,
		TenantID:    input.TenantID,
		ScopeFilter: input.ScopeFilter,
		Summary:     snapshot.Summarize(records, exemptions, now),
		Assignments: records,
		Exemptions:  exemptions,
	}

	result := &AssessmentResult{
		Snapshot: snap,
		Coverage: coverage.Match(records, s.catalog),
		Dropped:  dropped,
	}

	if s.snapshots != nil && input.CompareLatest {
		previous, err := s.snapshots.Latest(ctx, input.TenantID)
		if err != nil {
			metrics.RecordAssessmentRun(input.TenantID, "error", time.Since(start))
			return nil, errors.SnapshotMalformed("cannot load previous snapshot for comparison", err)
		}
		if previous != nil {
			d, err := s.delta.Compute(previous, records, exemptions, input.ScopeFilter)
			if err != nil {
				metrics.RecordAssessmentRun(input.TenantID, "error", time.Since(start))
				return nil, err
			}
			result.Delta = d
		}
	}

	if s.snapshots != nil && input.Persist {
		if err := s.snapshots.Save(ctx, snap); err != nil {
			metrics.RecordAssessmentRun(input.TenantID, "error", time.Since(start))
			return nil, err
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"tenant":      input.TenantID,
		"assignments": len(records),
		"dropped":     dropped,
		"exemptions":  len(exemptions),
		"high_risk":   snap.Summary.HighRiskCount,
		"coverage":    result.Coverage.CoveragePercent,
	}).Info("assessment run completed")
	metrics.RecordAssessmentRun(input.TenantID, "ok", time.Since(start))

	return result, nil
}

// DeltaBetween diffs two stored snapshots. The "to" snapshot's scope filter
// restricts the "from" side, mirroring what a live run would do.
func (s *AssessmentService) DeltaBetween(ctx context.Context, fromID, toID string) (*snapshot.DeltaResult, error) {
	if s.snapshots == nil {
		return nil, errors.Internal("no snapshot store configured", nil)
	}
	from, err := s.snapshots.GetByID(ctx, fromID)
	if err != nil {
		return nil, errors.SnapshotMalformed("cannot load previous snapshot", err)
	}
	to, err := s.snapshots.GetByID(ctx, toID)
	if err != nil {
		return nil, errors.SnapshotMalformed("cannot load current snapshot", err)
	}
	return s.delta.Compute(from, to.Assignments, to.Exemptions, to.ScopeFilter)
}

// ApplyComplianceFacts attaches late-arriving compliance counters to records
// and re-triggers classification for each affected record, keeping the
// derived fields a pure function of the inputs.
func (s *AssessmentService) ApplyComplianceFacts(records []assignment.Record, facts map[string]ComplianceFacts) {
	for i := range records {
		f, ok := facts[records[i].AssignmentID]
		if !ok {
			continue
		}
		records[i].NonCompliantResourceCount = f.NonCompliantResourceCount
		records[i].TotalResourceCount = f.TotalResourceCount
		records[i].ActiveExemptionCount = f.ActiveExemptionCount
		s.classifier.Classify(&records[i])
	}
}

// Coverage matches a record set against the configured catalog.
func (s *AssessmentService) Coverage(records []assignment.Record) coverage.Result {
	return coverage.Match(records, s.catalog)
}

// Snapshots exposes the store for read-side callers.
func (s *AssessmentService) Snapshots() snapshot.Repository {
	return s.snapshots
}

// classifyAll fans classification out over a worker pool. Each record is
// independent, so no synchronization is needed beyond the final join; the
// result is re-sorted by non-compliant count for stable display ordering.
func (s *AssessmentService) classifyAll(records []assignment.Record) {
	workers := s.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(records) {
		workers = len(records)
	}
	if workers > 1 {
		indexes := make(chan int)
		var wg sync.WaitGroup
		wg.Add(workers)
		for w := 0; w < workers; w++ {
			go func() {
				defer wg.Done()
				for i := range indexes {
					s.classifier.Classify(&records[i])
				}
			}()
		}
		for i := range records {
			indexes <- i
		}
		close(indexes)
		wg.Wait()
	} else {
		for i := range records {
			s.classifier.Classify(&records[i])
		}
	}

	for i := range records {
		metrics.RecordClassification(string(records[i].RiskLevel))
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].NonCompliantResourceCount != records[j].NonCompliantResourceCount {
			return records[i].NonCompliantResourceCount > records[j].NonCompliantResourceCount
		}
		return records[i].Key() < records[j].Key()
	})
}

func applyFacts(records []assignment.Record, facts map[string]ComplianceFacts) {
	if len(facts) == 0 {
		return
	}
	for i := range records {
		if f, ok := facts[records[i].AssignmentID]; ok {
			records[i].NonCompliantResourceCount = f.NonCompliantResourceCount
			records[i].TotalResourceCount = f.TotalResourceCount
			records[i].ActiveExemptionCount = f.ActiveExemptionCount
		}
	}
}
