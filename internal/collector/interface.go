package collector

import (
	"context"

	"codeberg.org/mutker/wattlog/internal/sensor"
	"codeberg.org/mutker/wattlog/internal/telemetry"
)

type Sampler interface {
	Sample(deviceID int) sensor.Sample
}

// Store is the part of telemetry.Store the loop writes through.
type Store interface {
	Insert(ctx context.Context, r *telemetry.Reading) (int64, error)
	RecentBatch(ctx context.Context, n int) ([]telemetry.Reading, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, batch []telemetry.Reading) (int, error)
}
