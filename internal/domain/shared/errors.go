package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, ErrOverAllocation) matches errors built with a custom message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes. Each kind maps to exactly one API code and HTTP status.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeNegativeAmount      = "NEGATIVE_AMOUNT"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeDuplicateLine       = "DUPLICATE_LINE"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeOverAllocation      = "OVER_ALLOCATION"
	CodeOverReceipt         = "OVER_RECEIPT"
	CodeOverpayment         = "OVERPAYMENT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrNegativeAmount      = NewDomainError(CodeNegativeAmount, "Amount must be greater than zero")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrDuplicateLine       = NewDomainError(CodeDuplicateLine, "Line already exists")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Status transition not allowed")
	ErrOverAllocation      = NewDomainError(CodeOverAllocation, "Cumulative quantity exceeds budgeted quantity")
	ErrOverReceipt         = NewDomainError(CodeOverReceipt, "Received quantity exceeds ordered quantity")
	ErrOverpayment         = NewDomainError(CodeOverpayment, "Payment exceeds outstanding balance")
)

// NewValidationError returns a ValidationError with a formatted message
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewInvalidTransitionError describes an illegal status change
func NewInvalidTransitionError(entity, from, to string) *DomainError {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("cannot transition %s from %s to %s", entity, from, to))
}

// NewNotFoundError names the missing resource
func NewNotFoundError(resource string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource))
}
