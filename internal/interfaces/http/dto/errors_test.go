package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogsite/backend/internal/domain/shared"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidSection, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeStorageFailure, http.StatusInternalServerError},
		{ErrCodeStorageQuota, http.StatusInsufficientStorage},
		{ErrCodeNetwork, http.StatusBadGateway},
		{"ERR_SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	for code, apiCode := range DomainErrorCodeMapping {
		assert.Equal(t, apiCode, NormalizeErrorCode(code))
		assert.Contains(t, ErrorCodeHTTPStatus, apiCode, "every mapped code has a status")
	}
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(shared.CodeNotFound))
	assert.Equal(t, ErrCodeBadRequest, NormalizeErrorCode(ErrCodeBadRequest))
	assert.Equal(t, "CUSTOM", NormalizeErrorCode("CUSTOM"))
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(shared.CodeNotFound, "product not found")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "product not found", resp.Error.Message)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "email", Message: "Invalid email format"},
		{Field: "name", Message: "This field is required"},
	}
	resp := NewValidationErrorResponse("invalid inquiry", "req-789", details)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.False(t, decoded.Success)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, ErrCodeValidation, decoded.Error.Code)
	assert.Equal(t, "req-789", decoded.Error.RequestID)
	assert.Equal(t, details, decoded.Error.Details)
}

func TestNewSuccessResponse(t *testing.T) {
	data, err := json.Marshal(NewSuccessResponse(map[string]int{"upserted": 2}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"upserted":2}}`, string(data))
}
