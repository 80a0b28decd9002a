package sensor

import "codeberg.org/mutker/wattlog/internal/errors"

const (
	ErrUnknownStatus     = errors.ErrorCode("sensor_unknown_status")
	ErrInvalidThresholds = errors.ErrorCode("sensor_invalid_thresholds")
)

func init() {
	errors.RegisterMessages(map[errors.ErrorCode]string{
		ErrUnknownStatus:     "Unknown sensor status",
		ErrInvalidThresholds: "Invalid sensor thresholds",
	})
}
