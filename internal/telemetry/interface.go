package telemetry

import "context"

// Store is the append-only log of readings.
type Store interface {
	// Insert persists r and writes the assigned id back into it.
	Insert(ctx context.Context, r *Reading) (int64, error)
	// RecentBatch returns up to n readings, newest first.
	RecentBatch(ctx context.Context, n int) ([]Reading, error)
	// LatestPerDevice returns the newest reading of every device, ordered
	// by device id.
	LatestPerDevice(ctx context.Context) ([]Reading, error)
	// Prune deletes every reading outside the keep newest and returns the
	// number of rows removed.
	Prune(ctx context.Context, keep int) (int64, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
