package snapshot

import (
	"context"
	"time"
)

// Repository defines the interface for snapshot persistence. Implementations
// must round-trip every field of the snapshot unchanged; the delta engine
// consumes loaded snapshots on later runs.
type Repository interface {
	// Save persists a snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// GetByID retrieves a snapshot by its ID.
	GetByID(ctx context.Context, id string) (*Snapshot, error)

	// Latest retrieves the most recent snapshot for a tenant, or nil when
	// no snapshot exists yet.
	Latest(ctx context.Context, tenantID string) (*Snapshot, error)

	// List retrieves snapshot metadata (without record payloads) for a
	// tenant, newest first.
	List(ctx context.Context, tenantID string, limit int) ([]*Snapshot, error)

	// Prune deletes snapshots older than the cutoff and returns the number
	// removed.
	Prune(ctx context.Context, tenantID string, olderThan time.Time) (int64, error)
}
