package repository

import (
	"context"

	"inventorium/internal/inventory"
)

// Repository persists inventory snapshots.
type Repository interface {
	// LoadSnapshot returns the stored snapshot, or nil when nothing has
	// been saved yet.
	LoadSnapshot(ctx context.Context) (*inventory.Snapshot, error)

	// SaveSnapshot replaces the stored snapshot.
	SaveSnapshot(ctx context.Context, snap *inventory.Snapshot) error

	// Close releases resources
	Close() error
}
