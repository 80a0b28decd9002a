package config

import "codeberg.org/mutker/wattlog/internal/errors"

const (
	ErrParseFlags   = errors.ErrorCode("config_parse_flags_failed")
	ErrInvalidValue = errors.ErrorCode("config_invalid_value")
)

func init() {
	errors.RegisterMessages(map[errors.ErrorCode]string{
		ErrParseFlags:   "Failed to parse command line",
		ErrInvalidValue: "Invalid configuration value",
	})
}

// fieldError is the data attached to ErrInvalidValue.
type fieldError struct {
	Field  string
	Reason string
}

func (f fieldError) String() string {
	return f.Field + ": " + f.Reason
}

func invalid(field, reason string) error {
	return errors.New().WithData(ErrInvalidValue, fieldError{Field: field, Reason: reason})
}
