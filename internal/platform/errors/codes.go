// Package errors provides structured, coded errors shared by every layer of
// the companion service. Codes are machine-readable and stable; transports map
// them to their own status vocabulary.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Identity errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeUserNotFound    Code = "USER_NOT_FOUND"

	// Companion errors
	CodeCompanionNotFound          Code = "COMPANION_NOT_FOUND"
	CodeCompanionNameEmpty         Code = "COMPANION_NAME_EMPTY"
	CodeCompanionArchetypeRequired Code = "COMPANION_ARCHETYPE_REQUIRED"

	// Economy errors
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeDailyLimitReached Code = "DAILY_LIMIT_REACHED"

	// Input errors
	CodeValidation Code = "VALIDATION"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes for the JSON transport.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeUserNotFound, CodeCompanionNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeInsufficientFunds,
		CodeCompanionNameEmpty,
		CodeCompanionArchetypeRequired,
		CodeValidation:
		return http.StatusBadRequest
	case CodeDailyLimitReached:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
