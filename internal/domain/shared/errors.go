package shared

import "errors"

// Error codes shared by every bounded context. The HTTP layer maps these to
// status codes, so new codes must also be added to dto.GetHTTPStatus.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeValidation          = "VALIDATION_ERROR"
	CodeConflict            = "CONFLICT"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeInvalidState        = "INVALID_STATE"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeConfiguration       = "CONFIGURATION_ERROR"
	CodeExternalService     = "EXTERNAL_SERVICE_ERROR"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so callers can write
// errors.Is(err, shared.ErrNotFound) against errors built with NewNotFoundError.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps the underlying cause
func WrapDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

func NewNotFoundError(message string) *DomainError {
	return NewDomainError(CodeNotFound, message)
}

func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

func NewConfigurationError(message string) *DomainError {
	return NewDomainError(CodeConfiguration, message)
}

func NewInsufficientBalanceError(message string) *DomainError {
	return NewDomainError(CodeInsufficientBalance, message)
}

// NewExternalServiceError wraps a failure of a third-party channel such as
// the IM, SMS, email or tax invoice providers.
func NewExternalServiceError(service string, err error) *DomainError {
	return WrapDomainError(CodeExternalService, service+" request failed", err)
}

// CodeOf returns the domain code of err, or an empty string for
// non-domain errors.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrValidation          = NewDomainError(CodeValidation, "Validation failed")
	ErrConflict            = NewDomainError(CodeConflict, "Operation conflicts with current state")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInsufficientBalance = NewDomainError(CodeInsufficientBalance, "Insufficient balance available")
	ErrConfiguration       = NewDomainError(CodeConfiguration, "Required configuration is missing")
	ErrExternalService     = NewDomainError(CodeExternalService, "External service request failed")
)
