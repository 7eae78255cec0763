package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeUnavailable   = "UNAVAILABLE"
)

// Validation errors
var (
	ErrInvalidMessageRole = NewDomainError(ErrCodeValidation, "invalid message role")
	ErrInvalidLanguage    = NewDomainError(ErrCodeValidation, "invalid language code")
	ErrInvalidRating      = NewDomainError(ErrCodeValidation, "satisfaction rating must be between 1 and 5")
)

// Not found errors
var (
	ErrDepartmentNotFound   = NewDomainError(ErrCodeNotFound, "department not found")
	ErrConversationNotFound = NewDomainError(ErrCodeNotFound, "conversation not found")
)

// Authorization errors
var (
	ErrInvalidAdminPassword = NewDomainError(ErrCodeUnauthorized, "invalid admin password")
)

// Availability errors
var (
	ErrEmbeddingsUnavailable = NewDomainError(ErrCodeUnavailable, "embedding provider not configured")
	ErrGenerationUnavailable = NewDomainError(ErrCodeUnavailable, "generation provider not configured")
)
