package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeErrorCode_DomainCodes(t *testing.T) {
	tests := []struct {
		domain string
		api    string
		status int
	}{
		{"VALIDATION_ERROR", ErrCodeValidation, http.StatusBadRequest},
		{"NEGATIVE_AMOUNT", ErrCodeNegativeAmount, http.StatusBadRequest},
		{"FORBIDDEN", ErrCodeForbidden, http.StatusForbidden},
		{"NOT_FOUND", ErrCodeNotFound, http.StatusNotFound},
		{"DUPLICATE_LINE", ErrCodeDuplicateLine, http.StatusConflict},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict, http.StatusConflict},
		{"INVALID_TRANSITION", ErrCodeInvalidTransition, http.StatusConflict},
		{"OVER_ALLOCATION", ErrCodeOverAllocation, http.StatusUnprocessableEntity},
		{"OVER_RECEIPT", ErrCodeOverReceipt, http.StatusUnprocessableEntity},
		{"OVERPAYMENT", ErrCodeOverpayment, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			code := NormalizeErrorCode(tt.domain)
			assert.Equal(t, tt.api, code)
			assert.Equal(t, tt.status, GetHTTPStatus(code))
		})
	}
}

func TestNormalizeErrorCode_Unknown(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, NormalizeErrorCode("SOMETHING_ELSE"))
	assert.Equal(t, ErrCodeRateLimited, NormalizeErrorCode(ErrCodeRateLimited))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("ERR_NOPE"))
}

func TestErrorEnvelope(t *testing.T) {
	body, err := json.Marshal(NewErrorResponse(ErrCodeOverpayment, "amount exceeds outstanding balance", "req-1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_OVERPAYMENT","message":"amount exceeds outstanding balance","request_id":"req-1"}}`, string(body))
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1}, 41, 1, 20)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	resp = NewSuccessResponseWithMeta(nil, 0, 1, 0)
	assert.Zero(t, resp.Meta.TotalPages)
}

func TestListRequest_Normalize(t *testing.T) {
	r := ListRequest{}
	r.Normalize()
	assert.Equal(t, 1, r.Page)
	assert.Equal(t, 20, r.PageSize)
}
