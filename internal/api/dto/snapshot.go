package dto

import (
	"time"

	"github.com/cloudgovern/policyaudit/internal/domain/snapshot"
)

// SnapshotMetaDTO is the list view of a stored snapshot, without the record
// payloads.
type SnapshotMetaDTO struct {
	ID          string           `json:"id"`
	Timestamp   string           `json:"timestamp"`
	VersionTag  string           `json:"version_tag"`
	TenantID    string           `json:"tenant_id"`
	ScopeFilter string           `json:"scope_filter,omitempty"`
	Summary     snapshot.Summary `json:"summary"`
}

// ToSnapshotMetaDTO converts a snapshot to its metadata view.
func ToSnapshotMetaDTO(s *snapshot.Snapshot) SnapshotMetaDTO {
	return SnapshotMetaDTO{
		ID:          s.ID,
		Timestamp:   s.Timestamp.UTC().Format(time.RFC3339),
		VersionTag:  s.VersionTag,
		TenantID:    s.TenantID,
		ScopeFilter: s.ScopeFilter,
		Summary:     s.Summary,
	}
}

// ToSnapshotMetaDTOs converts a slice of snapshots to metadata views.
func ToSnapshotMetaDTOs(snaps []*snapshot.Snapshot) []SnapshotMetaDTO {
	out := make([]SnapshotMetaDTO, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, ToSnapshotMetaDTO(s))
	}
	return out
}
