package sensor

import (
	"codeberg.org/mutker/wattlog/internal/clock"
	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/logger"
)

const (
	// Sentinel marks power and energy as not measured.
	Sentinel = -1.0

	// EnergyFactor converts an instantaneous power sample into the
	// simulated cumulative energy figure.
	EnergyFactor = 0.001

	DefaultMin     = 10
	DefaultMax     = 400
	DefaultCeiling = 450
)

// RandomSource yields integers in [0, n). *math/rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// Thresholds bound the valid power range. Power at or below Min reads as a
// disconnected device, power above Max as over consumption.
type Thresholds struct {
	Min float64
	Max float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Min: DefaultMin, Max: DefaultMax}
}

func (t Thresholds) Validate() error {
	if t.Min >= t.Max {
		return errors.New().WithData(ErrInvalidThresholds, struct {
			Min float64
			Max float64
		}{t.Min, t.Max})
	}

	return nil
}

// Classify applies the thresholds to a power value.
func (t Thresholds) Classify(power float64) Status {
	switch {
	case power > t.Max:
		return StatusOverConsumption
	case power <= t.Min:
		return StatusDisconnected
	default:
		return StatusOK
	}
}

// Sample is a classified reading that has not been persisted yet.
type Sample struct {
	DeviceID  int
	Timestamp string
	// Raw is the simulated value before classification.
	Raw       float64
	Watts     float64
	EnergyKWh float64
	Status    Status
}

type Sampler struct {
	thresholds Thresholds
	ceiling    int
	rand       RandomSource
	clock      clock.Clock
	logger     logger.Logger
}

// NewSampler builds a sampler drawing integer power values in [0, ceiling).
func NewSampler(t Thresholds, ceiling int, rand RandomSource, c clock.Clock, log logger.Logger) (*Sampler, error) {
	errFactory := errors.New()

	if err := t.Validate(); err != nil {
		return nil, err
	}
	if ceiling <= 0 {
		return nil, errFactory.WithData(errors.ErrInvalidArgument, "power ceiling must be positive")
	}
	if rand == nil || c == nil {
		return nil, errFactory.WithData(errors.ErrInvalidArgument, "random source and clock are required")
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Sampler{
		thresholds: t,
		ceiling:    ceiling,
		rand:       rand,
		clock:      c,
		logger:     log,
	}, nil
}

// Sample draws one simulated power value for the device and classifies it.
func (s *Sampler) Sample(deviceID int) Sample {
	return s.Classify(deviceID, float64(s.rand.Intn(s.ceiling)))
}

// Classify builds the sample for a known power value. Faulted readings keep
// their place in the series with sentinel power and energy.
func (s *Sampler) Classify(deviceID int, power float64) Sample {
	sample := Sample{
		DeviceID:  deviceID,
		Timestamp: clock.Timestamp(s.clock),
		Raw:       power,
		Status:    s.thresholds.Classify(power),
	}

	if sample.Status.Faulted() {
		sample.Watts = Sentinel
		sample.EnergyKWh = Sentinel

		msg := "Power above sensor maximum"
		if sample.Status == StatusDisconnected {
			msg = "Sensor disconnected"
		}
		s.logger.Warn().
			Int("device", deviceID).
			Float64("power", power).
			Str("status", sample.Status.String()).
			Msg(msg)

		return sample
	}

	sample.Watts = power
	sample.EnergyKWh = power * EnergyFactor

	return sample
}
