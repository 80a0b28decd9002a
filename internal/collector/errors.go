package collector

import "codeberg.org/mutker/wattlog/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("collector_invalid_config")
)

func init() {
	errors.RegisterMessages(map[errors.ErrorCode]string{
		ErrInvalidConfig: "Invalid collection loop configuration",
	})
}
