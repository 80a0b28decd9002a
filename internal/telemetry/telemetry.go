package telemetry

import (
	"fmt"

	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/sensor"
)

// Reading is one persisted row of energy_data.
type Reading struct {
	ID        int64         `db:"id"`
	Timestamp string        `db:"timestamp"`
	DeviceID  int           `db:"appliance_id"`
	Power     float64       `db:"power_consumption"`
	Energy    float64       `db:"cumulative_energy"`
	Status    sensor.Status `db:"status"`
}

// NewReading converts a classified sample into a row awaiting insert.
func NewReading(s sensor.Sample) *Reading {
	return &Reading{
		Timestamp: s.Timestamp,
		DeviceID:  s.DeviceID,
		Power:     s.Watts,
		Energy:    s.EnergyKWh,
		Status:    s.Status,
	}
}

// Measured reports whether power and energy hold real values.
func (r Reading) Measured() bool {
	return r.Power != sensor.Sentinel
}

// Validate checks that the row can be stored: the status is known, the
// timestamp is set, and power and energy are either both sentinel or both
// measured, with faulted statuses always sentinel.
func (r Reading) Validate() error {
	errFactory := errors.New()

	if r.Timestamp == "" {
		return errFactory.WithData(ErrInvalidReading, "missing timestamp")
	}
	if !r.Status.Valid() {
		return errFactory.WithData(ErrInvalidReading, fmt.Sprintf("status %d", int(r.Status)))
	}
	if (r.Power == sensor.Sentinel) != (r.Energy == sensor.Sentinel) {
		return errFactory.WithData(ErrInvalidReading, "power and energy sentinel mismatch")
	}
	if r.Status.Faulted() && r.Measured() {
		return errFactory.WithData(ErrInvalidReading, "faulted reading carries measured power")
	}

	return nil
}

func (r Reading) String() string {
	return fmt.Sprintf("#%d %s device=%d power=%.2fW energy=%.3fkWh status=%s",
		r.ID, r.Timestamp, r.DeviceID, r.Power, r.Energy, r.Status)
}
