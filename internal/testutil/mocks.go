package testutil

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cloudgovern/policyaudit/internal/domain/snapshot"
	"github.com/cloudgovern/policyaudit/internal/normalizer"
)

// MockSnapshotRepository is an in-memory implementation of snapshot.Repository
type MockSnapshotRepository struct {
	Snapshots  map[string]*snapshot.Snapshot
	SaveError  error
	GetError   error
	PruneError error
}

func NewMockSnapshotRepository() *MockSnapshotRepository {
	return &MockSnapshotRepository{
		Snapshots: make(map[string]*snapshot.Snapshot),
	}
}

func (m *MockSnapshotRepository) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Snapshots[snap.ID] = snap
	return nil
}

func (m *MockSnapshotRepository) GetByID(ctx context.Context, id string) (*snapshot.Snapshot, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	snap, ok := m.Snapshots[id]
	if !ok {
		return nil, fmt.Errorf("snapshot %q not found", id)
	}
	return snap, nil
}

func (m *MockSnapshotRepository) Latest(ctx context.Context, tenantID string) (*snapshot.Snapshot, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	var latest *snapshot.Snapshot
	for _, snap := range m.Snapshots {
		if snap.TenantID != tenantID {
			continue
		}
		if latest == nil || snap.Timestamp.After(latest.Timestamp) {
			latest = snap
		}
	}
	return latest, nil
}

func (m *MockSnapshotRepository) List(ctx context.Context, tenantID string, limit int) ([]*snapshot.Snapshot, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	var snaps []*snapshot.Snapshot
	for _, snap := range m.Snapshots {
		if snap.TenantID == tenantID {
			snaps = append(snaps, snap)
		}
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].Timestamp.After(snaps[j].Timestamp)
	})
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps, nil
}

func (m *MockSnapshotRepository) Prune(ctx context.Context, tenantID string, olderThan time.Time) (int64, error) {
	if m.PruneError != nil {
		return 0, m.PruneError
	}
	var removed int64
	for id, snap := range m.Snapshots {
		if snap.TenantID == tenantID && snap.Timestamp.Before(olderThan) {
			delete(m.Snapshots, id)
			removed++
		}
	}
	return removed, nil
}

// FailingResolver is a DefinitionResolver that always fails
type FailingResolver struct {
	Err error
}

func (r *FailingResolver) Resolve(definitionID string) (*normalizer.Definition, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return nil, fmt.Errorf("definition %q not found", definitionID)
}
