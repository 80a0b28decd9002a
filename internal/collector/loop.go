// Package collector drives the sample, store, upload and prune cycle.
package collector

import (
	"context"
	"time"

	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/logger"
	"codeberg.org/mutker/wattlog/internal/telemetry"
)

// CycleReport summarises one cycle. Step errors are recorded, never
// returned.
type CycleReport struct {
	Cycle          int
	Inserted       int
	InsertFailures int
	Faults         int
	BatchSize      int
	Attempts       int
	Pruned         int64

	ReadErr     error
	DeliveryErr error
	PruneErr    error
}

// OK reports whether every step of the cycle succeeded.
func (r CycleReport) OK() bool {
	return r.InsertFailures == 0 && r.ReadErr == nil && r.DeliveryErr == nil && r.PruneErr == nil
}

type Loop struct {
	cfg     Config
	sampler Sampler
	store   Store
	uplink  Deliverer
	logger  logger.Logger
	cycle   int
}

func New(cfg Config, s Sampler, st Store, d Deliverer, log logger.Logger) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s == nil || st == nil || d == nil {
		return nil, errors.New().WithData(errors.ErrInvalidArgument, "sampler, store and uplink are required")
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Loop{cfg: cfg, sampler: s, store: st, uplink: d, logger: log}, nil
}

// Tick runs exactly one cycle.
func (l *Loop) Tick(ctx context.Context) CycleReport {
	l.cycle++
	report := CycleReport{Cycle: l.cycle}

	for device := 0; device < l.cfg.Devices; device++ {
		reading := telemetry.NewReading(l.sampler.Sample(device))
		if reading.Status.Faulted() {
			report.Faults++
		}

		if _, err := l.store.Insert(ctx, reading); err != nil {
			report.InsertFailures++
			l.logError(err).Int("device", device).Msg("Failed to store reading")
			continue
		}
		report.Inserted++

		l.logger.Info().
			Int64("id", reading.ID).
			Str("timestamp", reading.Timestamp).
			Int("device", device).
			Float64("power", reading.Power).
			Float64("energy", reading.Energy).
			Str("status", reading.Status.String()).
			Msg("Reading stored")
	}

	batch, err := l.store.RecentBatch(ctx, l.cfg.BatchSize)
	if err != nil {
		report.ReadErr = err
		l.logError(err).Msg("Failed to load upload batch")
	} else {
		report.BatchSize = len(batch)
		// Delivery failures are logged by the uplink client.
		report.Attempts, report.DeliveryErr = l.uplink.Deliver(ctx, batch)
	}

	report.Pruned, report.PruneErr = l.store.Prune(ctx, l.cfg.MaxEntries)
	if report.PruneErr != nil {
		l.logError(report.PruneErr).Int("keep", l.cfg.MaxEntries).Msg("Failed to clean up old data")
	}

	l.logger.Info().
		Int("cycle", report.Cycle).
		Int("inserted", report.Inserted).
		Int("faults", report.Faults).
		Int("uploaded", uploaded(report)).
		Int64("pruned", report.Pruned).
		Bool("ok", report.OK()).
		Msg("Cycle complete")

	return report
}

// Run ticks once immediately and then every Interval until ctx is done. A
// cycle that is running when ctx is cancelled finishes first.
func (l *Loop) Run(ctx context.Context) error {
	work := context.WithoutCancel(ctx)

	l.logger.Info().
		Int("devices", l.cfg.Devices).
		Dur("interval", l.cfg.Interval).
		Msg("Collection started")

	l.Tick(work)

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Int("cycles", l.cycle).Msg("Collection stopped")
			return nil
		case <-ticker.C:
			// A tick racing with cancellation must not start a new cycle.
			if ctx.Err() != nil {
				continue
			}
			l.Tick(work)
		}
	}
}

// Cycles returns the number of cycles run so far.
func (l *Loop) Cycles() int {
	return l.cycle
}

func (l *Loop) logError(err error) *logger.LogEvent {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		return l.logger.ErrorWithCode(appErr)
	}
	return &logger.LogEvent{Event: l.logger.Error().Err(err)}
}

func uploaded(r CycleReport) int {
	if r.ReadErr != nil || r.DeliveryErr != nil {
		return 0
	}
	return r.BatchSize
}
