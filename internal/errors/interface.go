package errors

// ErrorCode identifies a class of failure. Codes are stable strings so they
// can be matched in logs.
type ErrorCode string

// Error is a domain error carrying a code, an optional message override,
// optional structured data and an optional cause.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory creates domain errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
