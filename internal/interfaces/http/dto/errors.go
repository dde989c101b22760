package dto

import (
	"net/http"

	"github.com/catalogsite/backend/internal/domain/shared"
)

// Error code constants
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeValidation is used when a document, product or inquiry fails its schema
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeInvalidSection is used when a section name is not in the allow-list
	ErrCodeInvalidSection = "ERR_INVALID_SECTION"
	// ErrCodePayloadTooLarge is used when the request body exceeds the route limit
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a product or inquiry is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
)

// Storage and upstream error codes
const (
	// ErrCodeStorageFailure is used when the shard backend fails
	ErrCodeStorageFailure = "ERR_STORAGE_FAILURE"
	// ErrCodeStorageQuota is used when a storage quota is exhausted
	ErrCodeStorageQuota = "ERR_STORAGE_QUOTA"
	// ErrCodeConfiguration is used when a required endpoint is not configured
	ErrCodeConfiguration = "ERR_CONFIGURATION"
	// ErrCodeNetwork is used when an upstream endpoint cannot be reached
	ErrCodeNetwork = "ERR_NETWORK"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:     http.StatusBadRequest,
	ErrCodeBadRequest:     http.StatusBadRequest,
	ErrCodeInvalidInput:   http.StatusBadRequest,
	ErrCodeInvalidJSON:    http.StatusBadRequest,
	ErrCodeInvalidSection: http.StatusBadRequest,

	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeNotFound:        http.StatusNotFound,

	ErrCodeStorageFailure: http.StatusInternalServerError,
	ErrCodeStorageQuota:   http.StatusInsufficientStorage,
	ErrCodeConfiguration:  http.StatusServiceUnavailable,
	ErrCodeNetwork:        http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps shared.DomainError codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:        ErrCodeNotFound,
	shared.CodeInvalidInput:    ErrCodeInvalidInput,
	shared.CodeValidation:      ErrCodeValidation,
	shared.CodeInvalidSection:  ErrCodeInvalidSection,
	shared.CodeConfiguration:   ErrCodeConfiguration,
	shared.CodeNetwork:         ErrCodeNetwork,
	shared.CodePayloadTooLarge: ErrCodePayloadTooLarge,
	shared.CodeStorageQuota:    ErrCodeStorageQuota,
	shared.CodeStorageFailure:  ErrCodeStorageFailure,
	shared.CodeInternal:        ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
