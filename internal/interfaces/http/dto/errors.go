package dto

import "net/http"

// API error codes returned in the error envelope. Format: ERR_<DESCRIPTION>.
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	ErrCodeValidation = "ERR_VALIDATION"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeForbidden    = "ERR_FORBIDDEN"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeDuplicateLine       = "ERR_DUPLICATE_LINE"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidTransition   = "ERR_INVALID_TRANSITION"

	ErrCodeNegativeAmount = "ERR_NEGATIVE_AMOUNT"
	ErrCodeOverAllocation = "ERR_OVER_ALLOCATION"
	ErrCodeOverReceipt    = "ERR_OVER_RECEIPT"
	ErrCodeOverpayment    = "ERR_OVERPAYMENT"

	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeTimeout         = "ERR_TIMEOUT"
)

// ErrorCodeHTTPStatus maps API error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeDuplicateLine:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidTransition:   http.StatusConflict,

	ErrCodeNegativeAmount: http.StatusBadRequest,
	ErrCodeOverAllocation: http.StatusUnprocessableEntity,
	ErrCodeOverReceipt:    http.StatusUnprocessableEntity,
	ErrCodeOverpayment:    http.StatusUnprocessableEntity,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTimeout:         http.StatusGatewayTimeout,
}

// GetHTTPStatus returns the status for an API code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodes maps shared.DomainError codes to API codes
var domainErrorCodes = map[string]string{
	"VALIDATION_ERROR":     ErrCodeValidation,
	"NEGATIVE_AMOUNT":      ErrCodeNegativeAmount,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"NOT_FOUND":            ErrCodeNotFound,
	"DUPLICATE_LINE":       ErrCodeDuplicateLine,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"INVALID_TRANSITION":   ErrCodeInvalidTransition,
	"OVER_ALLOCATION":      ErrCodeOverAllocation,
	"OVER_RECEIPT":         ErrCodeOverReceipt,
	"OVERPAYMENT":          ErrCodeOverpayment,
}

// NormalizeErrorCode converts a domain error code to its API code. Unknown
// codes map to ERR_INTERNAL so internal names never leak.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainErrorCodes[code]; ok {
		return apiCode
	}
	if _, ok := ErrorCodeHTTPStatus[code]; ok {
		return code
	}
	return ErrCodeInternal
}
