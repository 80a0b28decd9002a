package uplink

import "codeberg.org/mutker/wattlog/internal/errors"

const (
	ErrInvalidConfig    = errors.ErrorCode("uplink_invalid_config")
	ErrUnknownTransport = errors.ErrorCode("uplink_unknown_transport")
	ErrEncodeFailed     = errors.ErrorCode("uplink_encode_failed")
	ErrDecodeFailed     = errors.ErrorCode("uplink_decode_failed")
	ErrSendFailed       = errors.ErrorCode("uplink_send_failed")
	ErrUnexpectedStatus = errors.ErrorCode("uplink_unexpected_status")
	ErrConnectFailed    = errors.ErrorCode("uplink_connect_failed")
	ErrDeliveryFailed   = errors.ErrorCode("uplink_delivery_failed")
)

func init() {
	errors.RegisterMessages(map[errors.ErrorCode]string{
		ErrInvalidConfig:    "Invalid uplink configuration",
		ErrUnknownTransport: "Unknown uplink transport",
		ErrEncodeFailed:     "Failed to encode batch",
		ErrDecodeFailed:     "Failed to decode batch",
		ErrSendFailed:       "Failed to send batch",
		ErrUnexpectedStatus: "Collector rejected batch",
		ErrConnectFailed:    "Failed to connect to broker",
		ErrDeliveryFailed:   "Batch delivery failed",
	})
}
