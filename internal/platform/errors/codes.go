// Package errors provides structured error handling with i18n support.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Profile errors
	CodeNoActiveProfile    Code = "NO_ACTIVE_PROFILE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeCapacityExceeded   Code = "CAPACITY_EXCEEDED"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"

	// Save document errors
	CodeUnknownFormat    Code = "UNKNOWN_FORMAT"
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeMalformedInput   Code = "MALFORMED_INPUT"

	// Storage errors
	CodeStorageFailure Code = "STORAGE_FAILURE"
)

// Severity classifies how a code should be presented to the user.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Severity maps codes to presentation severity.
func (c Code) Severity() Severity {
	switch c {
	// Recoverable by the user without losing data.
	case CodeCapacityExceeded,
		CodeUnknownFormat,
		CodeValidationFailed,
		CodeMalformedInput,
		CodeInvalidArgument:
		return SeverityWarning

	default:
		return SeverityError
	}
}

// Retryable reports whether repeating the same call may succeed without the
// user changing anything.
func (c Code) Retryable() bool {
	return c == CodeStorageFailure
}
