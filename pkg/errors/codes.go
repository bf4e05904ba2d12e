package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Knowledge-graph Module Error Codes
const (
	ErrCodeMalformedInput   ErrorCode = "KG_001"
	ErrCodeAmbiguousAlias   ErrorCode = "KG_002"
	ErrCodeStoreUnavailable ErrorCode = "KG_003"
	ErrCodeLoadFailed       ErrorCode = "KG_004"
	ErrCodeSnapshotInvalid  ErrorCode = "KG_005"
	ErrCodeEntityNotFound   ErrorCode = "KG_006"
	ErrCodeIndexBuildFailed ErrorCode = "KG_007"
	ErrCodeReloadInProgress ErrorCode = "KG_008"
)

// Infrastructure Error Codes
const (
	ErrCodeMessageQueue ErrorCode = "INFRA_001"
	ErrCodeObjectStore  ErrorCode = "INFRA_002"
	ErrCodeGraphStore   ErrorCode = "INFRA_003"
	ErrCodeMigration    ErrorCode = "INFRA_004"
)

// Short aliases.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeNotImplemented = ErrCodeNotImplemented
	CodeDatabaseError  = ErrCodeDatabaseError
	CodeCacheError     = ErrCodeCacheError
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusBadRequest,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusNotImplemented,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeMalformedInput:   http.StatusBadRequest,
	ErrCodeAmbiguousAlias:   http.StatusConflict,
	ErrCodeStoreUnavailable: http.StatusServiceUnavailable,
	ErrCodeLoadFailed:       http.StatusInternalServerError,
	ErrCodeSnapshotInvalid:  http.StatusUnprocessableEntity,
	ErrCodeEntityNotFound:   http.StatusNotFound,
	ErrCodeIndexBuildFailed: http.StatusInternalServerError,
	ErrCodeReloadInProgress: http.StatusConflict,

	ErrCodeMessageQueue: http.StatusBadGateway,
	ErrCodeObjectStore:  http.StatusBadGateway,
	ErrCodeGraphStore:   http.StatusBadGateway,
	ErrCodeMigration:    http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeValidation:         "validation failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeMalformedInput:   "malformed input",
	ErrCodeAmbiguousAlias:   "alias registered by more than one entity",
	ErrCodeStoreUnavailable: "knowledge store unavailable",
	ErrCodeLoadFailed:       "bulk load failed",
	ErrCodeSnapshotInvalid:  "staged snapshot is invalid",
	ErrCodeEntityNotFound:   "entity not found",
	ErrCodeIndexBuildFailed: "index build failed",
	ErrCodeReloadInProgress: "reload already in progress",

	ErrCodeMessageQueue: "message queue error",
	ErrCodeObjectStore:  "object storage error",
	ErrCodeGraphStore:   "graph store error",
	ErrCodeMigration:    "schema migration failed",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
