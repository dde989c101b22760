package shared

import "errors"

// Error codes shared by the store, the gateway and the provider
const (
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidSection  = "INVALID_SECTION"
	CodeConfiguration   = "CONFIGURATION_ERROR"
	CodeNetwork         = "NETWORK_ERROR"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeStorageQuota    = "STORAGE_QUOTA_EXCEEDED"
	CodeStorageFailure  = "STORAGE_FAILURE"
	CodeInternal        = "INTERNAL_ERROR"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Cause is the underlying error, if any. It is not serialized.
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
// This lets callers match errors.Is(err, shared.ErrNotFound) against a
// copy produced by WithMessage or WithCause.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of the error with a new message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message, Cause: e.Cause}
}

// WithCause returns a copy of the error wrapping cause
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Cause: cause}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound        = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput    = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrValidation      = NewDomainError(CodeValidation, "Document failed validation")
	ErrInvalidSection  = NewDomainError(CodeInvalidSection, "Unknown site data section")
	ErrConfiguration   = NewDomainError(CodeConfiguration, "Remote endpoint is not configured")
	ErrNetwork         = NewDomainError(CodeNetwork, "Remote endpoint is unreachable")
	ErrPayloadTooLarge = NewDomainError(CodePayloadTooLarge, "Payload too large")
	ErrStorageQuota    = NewDomainError(CodeStorageQuota, "Local storage quota exceeded")
	ErrStorageFailure  = NewDomainError(CodeStorageFailure, "Shard storage failure")
)

// CodeOf returns the DomainError code carried by err, or CodeInternal
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
