package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_UnwrapAndCode(t *testing.T) {
	cause := stderrors.New("connection reset by peer")
	err := fmt.Errorf("insert application: %w", NewDBOperationError("insert", cause))

	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, ErrCodeDBOperationError, CodeOf(err))
	assert.Equal(t, ErrCodeSystemError, CodeOf(stderrors.New("plain")))

	stdErr, ok := AsStandardError(err)
	require.True(t, ok)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, "StandardError[DB_OPERATION_ERROR]: Database operation 'insert' failed", stdErr.Error())
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{"db error retried", NewDBOperationError("insert", stderrors.New("x")), "DB_OPERATION_ERROR", 3},
		{"validation not retried", NewValidationFailedError("FirstName"), "VALIDATION_FAILED", 0},
		{"upload retried", NewFileUploadError("DocumentFile", stderrors.New("disk")), "FILE_UPLOAD_ERROR", 3},
		{"not found not retried", NewApplicationNotFoundError("RPF00001"), "APPLICATION_NOT_FOUND", 0},
		{"unknown code passes through", NewBusinessRuleError("m", "d"), "BUSINESS_RULE_VIOLATION", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, tt.wantCode, vars["errorCode"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "FILE", GetErrorCategory(ErrCodeFileValidationFailed))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDBOperationError))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeSearchQueryFailed))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeNotificationSendFailed))
	assert.Equal(t, "LOOKUP", GetErrorCategory(ErrCodeApplicationNotFound))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidTrackingCode))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeSystemError))
}

func TestNormalize(t *testing.T) {
	orig := NewInvalidFormTypeError("Parking")
	assert.Same(t, orig, Normalize(fmt.Errorf("wrapped: %w", orig)))

	n := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeSystemError, n.Code)
	assert.Equal(t, "boom", n.Details)
	assert.False(t, IsRetryableErrorCode(n.Code))
}
