package dto

import (
	"net/http"

	"github.com/cnec/backend/internal/domain/shared"
)

// Codes produced by the HTTP layer itself. Domain codes come from the
// shared package.
const (
	// ErrCodeInternal is used for errors that carry no domain code
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used when the body cannot be decoded
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeRequired is used when a required field is missing
	ErrCodeRequired = "REQUIRED"
	// ErrCodeMethodNotAllowed is used when a route exists for another method
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	// ErrCodeRouteNotFound is used when no route matches
	ErrCodeRouteNotFound = "ROUTE_NOT_FOUND"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	// ErrCodeRateLimited is used when the client exceeded its request rate
	ErrCodeRateLimited = "RATE_LIMITED"
	// ErrCodeServiceUnavailable is used when a dependency is down
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	// ErrCodeAlreadyInState is the code of a transition that targets the
	// current status. Handlers normally answer it as an unchanged success.
	ErrCodeAlreadyInState = "ALREADY_IN_STATE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Input errors -> 400
	shared.CodeValidation:   http.StatusBadRequest,
	shared.CodeInvalidInput: http.StatusBadRequest,
	ErrCodeRequired:         http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,

	// A balance that cannot cover a deduction is a client error, not a conflict
	shared.CodeInsufficientBalance: http.StatusBadRequest,

	// Auth errors
	shared.CodeUnauthorized: http.StatusUnauthorized,
	shared.CodeForbidden:    http.StatusForbidden,

	// Resource errors
	shared.CodeNotFound:            http.StatusNotFound,
	ErrCodeRouteNotFound:           http.StatusNotFound,
	shared.CodeAlreadyExists:       http.StatusConflict,
	shared.CodeConflict:            http.StatusConflict,
	shared.CodeInvalidState:        http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	ErrCodeAlreadyInState:          http.StatusConflict,

	// Transport errors
	ErrCodeMethodNotAllowed: http.StatusMethodNotAllowed,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:      http.StatusTooManyRequests,

	// Server side
	shared.CodeConfiguration:   http.StatusInternalServerError,
	ErrCodeInternal:            http.StatusInternalServerError,
	shared.CodeExternalService: http.StatusBadGateway,
	ErrCodeServiceUnavailable:  http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
