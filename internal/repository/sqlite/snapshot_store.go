package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cloudgovern/policyaudit/internal/domain/assignment"
	"github.com/cloudgovern/policyaudit/internal/domain/exemption"
	"github.com/cloudgovern/policyaudit/internal/domain/snapshot"
	"github.com/cloudgovern/policyaudit/internal/pkg/errors"
)

// SnapshotRepository persists snapshots with the record payloads serialized
// as JSON columns. Every field must survive a save/load cycle unchanged; the
// delta engine consumes loaded snapshots on later runs.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a snapshot repository.
func NewSnapshotRepository(db *sql.DB) snapshot.Repository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	summary, err := json.Marshal(snap.Summary)
	if err != nil {
		return errors.DatabaseError("Failed to encode snapshot summary", err)
	}
	assignments, err := json.Marshal(snap.Assignments)
	if err != nil {
		return errors.DatabaseError("Failed to encode snapshot assignments", err)
	}
	exemptions, err := json.Marshal(snap.Exemptions)
	if err != nil {
		return errors.DatabaseError("Failed to encode snapshot exemptions", err)
	}

	query := `INSERT INTO snapshots (id, tenant_id, created_at, version_tag, scope_filter, summary, assignments, exemptions)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		snap.ID, snap.TenantID, snap.Timestamp.Format(time.RFC3339Nano),
		snap.VersionTag, snap.ScopeFilter,
		string(summary), string(assignments), string(exemptions))
	if err != nil {
		return errors.DatabaseError("Failed to save snapshot", err)
	}

	return nil
}

func (r *SnapshotRepository) GetByID(ctx context.Context, id string) (*snapshot.Snapshot, error) {
	query := `SELECT id, tenant_id, created_at, version_tag, scope_filter, summary, assignments, exemptions
	          FROM snapshots WHERE id = ?`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SnapshotRepository) Latest(ctx context.Context, tenantID string) (*snapshot.Snapshot, error) {
	query := `SELECT id, tenant_id, created_at, version_tag, scope_filter, summary, assignments, exemptions
	          FROM snapshots WHERE tenant_id = ?
	          ORDER BY created_at DESC LIMIT 1`

	snap, err := r.scanOne(r.db.QueryRowContext(ctx, query, tenantID))
	if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.ErrCodeNotFound {
		// No snapshot yet is not an error for Latest.
		return nil, nil
	}
	return snap, err
}

func (r *SnapshotRepository) List(ctx context.Context, tenantID string, limit int) ([]*snapshot.Snapshot, error) {
	if limit < 1 {
		limit = 50
	}
	query := `SELECT id, tenant_id, created_at, version_tag, scope_filter, summary
	          FROM snapshots WHERE tenant_id = ?
	          ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list snapshots", err)
	}
	defer rows.Close()

	var out []*snapshot.Snapshot
	for rows.Next() {
		var snap snapshot.Snapshot
		var createdAt, summary string
		if err := rows.Scan(&snap.ID, &snap.TenantID, &createdAt, &snap.VersionTag, &snap.ScopeFilter, &summary); err != nil {
			return nil, errors.DatabaseError("Failed to scan snapshot row", err)
		}
		snap.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, errors.SnapshotMalformed("snapshot has unparseable timestamp", err)
		}
		if err := json.Unmarshal([]byte(summary), &snap.Summary); err != nil {
			return nil, errors.SnapshotMalformed("snapshot summary cannot be decoded", err)
		}
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("Failed to iterate snapshots", err)
	}
	return out, nil
}

func (r *SnapshotRepository) Prune(ctx context.Context, tenantID string, olderThan time.Time) (int64, error) {
	query := `DELETE FROM snapshots WHERE tenant_id = ? AND created_at < ?`

	result, err := r.db.ExecContext(ctx, query, tenantID, olderThan.Format(time.RFC3339Nano))
	if err != nil {
		return 0, errors.DatabaseError("Failed to prune snapshots", err)
	}
	return result.RowsAffected()
}

// scanOne decodes a full snapshot row. A row that cannot be decoded surfaces
// as a hard SnapshotMalformed error rather than an empty snapshot, which a
// delta computation would misread as everything being new.
func (r *SnapshotRepository) scanOne(row *sql.Row) (*snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	var createdAt, summary, assignments, exemptions string

	err := row.Scan(&snap.ID, &snap.TenantID, &createdAt, &snap.VersionTag, &snap.ScopeFilter,
		&summary, &assignments, &exemptions)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Snapshot")
	}
	if err != nil {
		return nil, errors.DatabaseError("Failed to load snapshot", err)
	}

	snap.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, errors.SnapshotMalformed("snapshot has unparseable timestamp", err)
	}
	if err := json.Unmarshal([]byte(summary), &snap.Summary); err != nil {
		return nil, errors.SnapshotMalformed("snapshot summary cannot be decoded", err)
	}
	snap.Assignments = []assignment.Record{}
	if err := json.Unmarshal([]byte(assignments), &snap.Assignments); err != nil {
		return nil, errors.SnapshotMalformed("snapshot assignments cannot be decoded", err)
	}
	snap.Exemptions = []exemption.Record{}
	if err := json.Unmarshal([]byte(exemptions), &snap.Exemptions); err != nil {
		return nil, errors.SnapshotMalformed("snapshot exemptions cannot be decoded", err)
	}

	return &snap, nil
}
