package retry

import "codeberg.org/mutker/wattlog/internal/errors"

const (
	ErrExhausted     = errors.ErrorCode("retry_exhausted")
	ErrInvalidPolicy = errors.ErrorCode("retry_invalid_policy")
)

func init() {
	errors.RegisterMessages(map[errors.ErrorCode]string{
		ErrExhausted:     "All attempts failed",
		ErrInvalidPolicy: "Invalid retry policy",
	})
}
