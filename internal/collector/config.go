package collector

import (
	"time"

	"codeberg.org/mutker/wattlog/internal/errors"
)

const (
	DefaultDevices    = 3
	DefaultInterval   = 5 * time.Second
	DefaultBatchSize  = 5
	DefaultMaxEntries = 15
)

type Config struct {
	Devices    int
	Interval   time.Duration
	BatchSize  int
	MaxEntries int
}

func DefaultConfig() Config {
	return Config{
		Devices:    DefaultDevices,
		Interval:   DefaultInterval,
		BatchSize:  DefaultBatchSize,
		MaxEntries: DefaultMaxEntries,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Devices < 1 {
		return errFactory.WithData(ErrInvalidConfig, "at least one device is required")
	}
	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval.String())
	}
	if c.BatchSize < 1 {
		return errFactory.WithData(ErrInvalidConfig, "batch size must be positive")
	}
	if c.MaxEntries < c.BatchSize {
		return errFactory.WithData(ErrInvalidConfig, "retention window smaller than batch size")
	}

	return nil
}
