package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeInvalidStateName, http.StatusBadRequest},
		{ErrCodeInvalidGSTIN, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{"INVALID_STATE_NAME", ErrCodeInvalidStateName},
		{"INVALID_GSTIN", ErrCodeInvalidGSTIN},
		{"NOT_FOUND", ErrCodeNotFound},
		{"CONFLICT", ErrCodeConflict},
		{"SERVICE_UNAVAILABLE", ErrCodeUnavailable},
		// API codes pass through unchanged
		{ErrCodeValidation, ErrCodeValidation},
		// Unknown codes pass through unchanged
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestDomainErrorCodesHaveStatus(t *testing.T) {
	for domainCode, apiCode := range DomainErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[apiCode]
		assert.True(t, ok, "%s maps to %s which has no HTTP status", domainCode, apiCode)
	}
}

func TestResponseJSON(t *testing.T) {
	t.Run("success omits error", func(t *testing.T) {
		body, err := json.Marshal(NewSuccessResponse(map[string]string{"invoice_number": "INV-20260101-1234"}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true,"data":{"invoice_number":"INV-20260101-1234"}}`, string(body))
	})

	t.Run("error carries request id", func(t *testing.T) {
		body, err := json.Marshal(NewErrorResponseWithRequestID(ErrCodeInvalidStateName, "Invalid state: Atlantis", "req-1"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_INVALID_STATE_NAME","message":"Invalid state: Atlantis","request_id":"req-1"}}`, string(body))
	})

	t.Run("error without request id", func(t *testing.T) {
		body, err := json.Marshal(NewErrorResponse(ErrCodeInternal, "boom"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":false,"error":{"code":"ERR_INTERNAL","message":"boom"}}`, string(body))
	})

	t.Run("validation error lists fields", func(t *testing.T) {
		resp := NewValidationErrorResponse("Request validation failed", "req-2", []ValidationDetail{
			{Field: "tax_rate", Message: "Must be less than or equal to 50"},
		})
		assert.False(t, resp.Success)
		assert.Equal(t, ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "tax_rate", resp.Error.Details[0].Field)
	})
}
