package telemetry

import (
	"time"

	"codeberg.org/mutker/wattlog/internal/errors"
)

const (
	defaultDirPerm     = 0o755
	defaultDBPath      = "/var/lib/wattlog/energy.db"
	defaultBusyTimeout = 5 * time.Second
)

type Config struct {
	DBPath      string
	BusyTimeout time.Duration
	// ReadOnly opens an existing store without creating or upgrading it.
	ReadOnly bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:      defaultDBPath,
		BusyTimeout: defaultBusyTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BusyTimeout < 0 {
		return errFactory.WithData(ErrInvalidConfig, "busy timeout must not be negative")
	}
	return nil
}
