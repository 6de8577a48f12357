package services

import (
	"context"
	"testing"

	"github.com/cloudgovern/policyaudit/internal/domain/catalog"
	"github.com/cloudgovern/policyaudit/internal/normalizer"
	"github.com/cloudgovern/policyaudit/internal/pkg/logger"
	"github.com/cloudgovern/policyaudit/internal/testutil"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func testResolver() *normalizer.StaticResolver {
	return normalizer.NewStaticResolver([]normalizer.Definition{
		{
			ID:          "def-deny-ip",
			DisplayName: "Deny public IP addresses",
			Category:    "Network",
			Effect:      "Deny",
		},
		{
			ID:          "def-audit-storage",
			DisplayName: "Audit storage encryption",
			Category:    "Storage",
			Effect:      "Audit",
		},
	})
}

func testCatalog() catalog.Catalog {
	return catalog.Catalog{
		Groups: []catalog.Group{
			{Category: "Network", Entries: []string{"Deny-Public-IP"}},
			{Category: "Storage", Entries: []string{"storage encryption"}},
		},
	}
}

func testInput() AssessmentInput {
	return AssessmentInput{
		TenantID:   "tenant-1",
		VersionTag: "v1",
		Assignments: []normalizer.RawAssignment{
			{
				ID:                 "a-1",
				Name:               "deny-public-ip",
				DisplayName:        "Deny Public IPs",
				PolicyDefinitionID: "def-deny-ip",
				ScopePath:          "/subscriptions/sub-1",
			},
			{
				ID:                 "a-2",
				Name:               "audit-storage",
				DisplayName:        "Audit storage encryption",
				PolicyDefinitionID: "def-audit-storage",
				ScopePath:          "/subscriptions/sub-1",
			},
			{
				// dropped: no definition reference
				ID:        "a-3",
				Name:      "broken",
				ScopePath: "/subscriptions/sub-1",
			},
		},
		Exemptions: []normalizer.RawExemption{
			{
				ID:                 "ex-1",
				Name:               "migration-waiver",
				PolicyAssignmentID: "a-1",
				Category:           "Waiver",
				ScopePath:          "/subscriptions/sub-1",
			},
		},
	}
}

func TestAssessmentService_Run(t *testing.T) {
	repo := testutil.NewMockSnapshotRepository()
	norm := normalizer.New(testResolver(), testLogger())
	service := NewAssessmentService(norm, repo, testCatalog(), testLogger())

	input := testInput()
	input.ComplianceFacts = map[string]ComplianceFacts{
		"a-1": {NonCompliantResourceCount: 7, TotalResourceCount: 20},
	}
	input.Persist = true

	result, err := service.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", result.Dropped)
	}
	if len(result.Snapshot.Assignments) != 2 {
		t.Fatalf("kept %d assignments, want 2", len(result.Snapshot.Assignments))
	}

	// sorted by non-compliant count descending
	first := result.Snapshot.Assignments[0]
	if first.AssignmentID != "a-1" || first.NonCompliantResourceCount != 7 {
		t.Errorf("first record = %s with %d non-compliant, want a-1 with 7",
			first.AssignmentID, first.NonCompliantResourceCount)
	}

	// every record classified
	for _, r := range result.Snapshot.Assignments {
		if r.RiskLevel == "" || r.SecurityImpact == "" || r.Recommendation == "" {
			t.Errorf("record %s not fully classified: %+v", r.AssignmentID, r)
		}
	}

	if result.Snapshot.Summary.TotalAssignments != 2 {
		t.Errorf("Summary.TotalAssignments = %d, want 2", result.Snapshot.Summary.TotalAssignments)
	}
	if result.Snapshot.Summary.ExemptionCount != 1 {
		t.Errorf("Summary.ExemptionCount = %d, want 1", result.Snapshot.Summary.ExemptionCount)
	}

	// both catalog entries covered by name tolerance
	if result.Coverage.Matched != 2 {
		t.Errorf("Coverage.Matched = %d, want 2", result.Coverage.Matched)
	}

	// persisted
	if len(repo.Snapshots) != 1 {
		t.Errorf("stored %d snapshots, want 1", len(repo.Snapshots))
	}

	// first run has nothing to compare against
	if result.Delta != nil {
		t.Errorf("Delta = %+v on first run, want nil", result.Delta)
	}
}

func TestAssessmentService_Run_CompareLatest(t *testing.T) {
	repo := testutil.NewMockSnapshotRepository()
	norm := normalizer.New(testResolver(), testLogger())
	service := NewAssessmentService(norm, repo, testCatalog(), testLogger())
	ctx := context.Background()

	input := testInput()
	input.Persist = true
	input.ComplianceFacts = map[string]ComplianceFacts{
		"a-1": {NonCompliantResourceCount: 9, TotalResourceCount: 20},
	}
	if _, err := service.Run(ctx, input); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	second := testInput()
	second.Persist = true
	second.CompareLatest = true
	second.ComplianceFacts = map[string]ComplianceFacts{
		"a-1": {NonCompliantResourceCount: 3, TotalResourceCount: 20},
	}

	result, err := service.Run(ctx, second)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if result.Delta == nil {
		t.Fatal("Delta = nil on second run with CompareLatest")
	}
	if result.Delta.NonCompliantDelta != -6 {
		t.Errorf("NonCompliantDelta = %d, want -6", result.Delta.NonCompliantDelta)
	}
	if len(repo.Snapshots) != 2 {
		t.Errorf("stored %d snapshots, want 2", len(repo.Snapshots))
	}
}

func TestAssessmentService_Run_InMemory(t *testing.T) {
	norm := normalizer.New(testResolver(), testLogger())
	service := NewAssessmentService(norm, nil, testCatalog(), testLogger())

	input := testInput()
	input.Persist = true
	input.CompareLatest = true

	// no repository: Persist and CompareLatest are ignored, not fatal
	result, err := service.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Delta != nil {
		t.Errorf("Delta = %+v without a store, want nil", result.Delta)
	}
}

func TestAssessmentService_DeltaBetween(t *testing.T) {
	repo := testutil.NewMockSnapshotRepository()
	norm := normalizer.New(testResolver(), testLogger())
	service := NewAssessmentService(norm, repo, testCatalog(), testLogger())
	ctx := context.Background()

	input := testInput()
	input.Persist = true
	first, err := service.Run(ctx, input)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	second := testInput()
	second.Persist = true
	second.ComplianceFacts = map[string]ComplianceFacts{
		"a-2": {NonCompliantResourceCount: 4, TotalResourceCount: 10},
	}
	secondResult, err := service.Run(ctx, second)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	d, err := service.DeltaBetween(ctx, first.Snapshot.ID, secondResult.Snapshot.ID)
	if err != nil {
		t.Fatalf("DeltaBetween() error = %v", err)
	}
	if d.NonCompliantDelta != 4 {
		t.Errorf("NonCompliantDelta = %d, want 4", d.NonCompliantDelta)
	}
	if d.Trend != "Degrading" {
		t.Errorf("Trend = %v, want Degrading", d.Trend)
	}

	if _, err := service.DeltaBetween(ctx, "missing", secondResult.Snapshot.ID); err == nil {
		t.Error("DeltaBetween(missing) error = nil, want error")
	}
}

func TestAssessmentService_ApplyComplianceFacts(t *testing.T) {
	norm := normalizer.New(testResolver(), testLogger())
	service := NewAssessmentService(norm, nil, testCatalog(), testLogger())

	result, err := service.Run(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	records := result.Snapshot.Assignments

	var before string
	for _, r := range records {
		if r.AssignmentID == "a-2" {
			before = r.Recommendation
		}
	}

	service.ApplyComplianceFacts(records, map[string]ComplianceFacts{
		"a-2": {NonCompliantResourceCount: 12, TotalResourceCount: 40},
	})

	for _, r := range records {
		if r.AssignmentID != "a-2" {
			continue
		}
		if r.NonCompliantResourceCount != 12 {
			t.Errorf("NonCompliantResourceCount = %d, want 12", r.NonCompliantResourceCount)
		}
		if r.Recommendation == before {
			t.Error("Recommendation not recomputed after facts changed")
		}
	}
}
