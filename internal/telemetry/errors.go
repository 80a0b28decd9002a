package telemetry

import "codeberg.org/mutker/wattlog/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("telemetry_invalid_config")
	ErrInvalidDBPath = errors.ErrorCode("telemetry_invalid_db_path")

	// Storage Errors
	ErrStorageInit      = errors.ErrorCode("telemetry_storage_init_failed")
	ErrStorageClose     = errors.ErrorCode("telemetry_storage_close_failed")
	ErrSchemaInitFailed = errors.ErrorCode("telemetry_schema_init_failed")
	ErrSchemaMissing    = errors.ErrorCode("telemetry_schema_missing")

	// Operation Errors
	ErrWriteFailed    = errors.ErrorCode("telemetry_write_failed")
	ErrReadFailed     = errors.ErrorCode("telemetry_read_failed")
	ErrPruneFailed    = errors.ErrorCode("telemetry_prune_failed")
	ErrInvalidReading = errors.ErrorCode("telemetry_invalid_reading")
)

func init() {
	errors.RegisterMessages(map[errors.ErrorCode]string{
		ErrInvalidConfig:    "Invalid telemetry configuration",
		ErrInvalidDBPath:    "Telemetry database path is empty",
		ErrStorageInit:      "Failed to open telemetry store",
		ErrStorageClose:     "Failed to close telemetry store",
		ErrSchemaInitFailed: "Failed to initialize telemetry schema",
		ErrSchemaMissing:    "Telemetry table does not exist",
		ErrWriteFailed:      "Failed to write reading",
		ErrReadFailed:       "Failed to read readings",
		ErrPruneFailed:      "Failed to prune readings",
		ErrInvalidReading:   "Invalid reading",
	})
}
