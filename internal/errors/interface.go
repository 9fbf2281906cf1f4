package errors

// ErrorCode represents a unique identifier for each error type
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Message is the human readable text for the code.
func (c ErrorCode) Message() string {
	return GetErrorMessage(c)
}

// Error represents a domain-specific error with context
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	// Reason is the message without the wrapped cause or data.
	Reason() string
	Unwrap() error
}

// Factory defines methods for creating domain errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	// Reasonf is WithMessage with a formatted message.
	Reasonf(code ErrorCode, format string, args ...any) Error
	WithData(code ErrorCode, data any) Error
}
