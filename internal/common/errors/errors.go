// Package errors provides standardized error codes for the portal and their
// conversion to BPMN errors for Zeebe jobs.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidData          ErrorCode = "INVALID_DATA"
	ErrCodeInvalidFormType      ErrorCode = "INVALID_FORM_TYPE"
	ErrCodeInvalidTrackingCode  ErrorCode = "INVALID_TRACKING_CODE"
	ErrCodeFileValidationFailed ErrorCode = "FILE_VALIDATION_FAILED"

	ErrCodeFileUploadError ErrorCode = "FILE_UPLOAD_ERROR"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDBOperationError         ErrorCode = "DB_OPERATION_ERROR"
	ErrCodeApplicationNotFound      ErrorCode = "APPLICATION_NOT_FOUND"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchIndexFailed ErrorCode = "SEARCH_INDEX_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	ErrCodeSystemError ErrorCode = "SYSTEM_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError finds a StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first StandardError in err's chain, or SYSTEM_ERROR.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Code
	}
	return ErrCodeSystemError
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewValidationFailedError reports rejected form input; details lists the failing fields.
func NewValidationFailedError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Form validation failed", details, false, nil)
}

func NewInvalidDataError() *StandardError {
	return newError(ErrCodeInvalidData, "No form data received", "", false, nil)
}

func NewInvalidFormTypeError(formType string) *StandardError {
	return newError(ErrCodeInvalidFormType, "Unknown form type", formType, false, nil)
}

func NewInvalidTrackingCodeError(code string) *StandardError {
	return newError(ErrCodeInvalidTrackingCode, "Tracking code is not in the expected format", code, false, nil)
}

func NewFileValidationFailedError(field string, err error) *StandardError {
	return newError(ErrCodeFileValidationFailed, fmt.Sprintf("File '%s' rejected", field), err.Error(), false, err)
}

// NewFileUploadError is retryable: the bytes were valid but could not be written.
func NewFileUploadError(field string, err error) *StandardError {
	return newError(ErrCodeFileUploadError, fmt.Sprintf("File '%s' could not be saved", field), err.Error(), true, err)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection failed", err.Error(), true, err)
}

func NewDBOperationError(operation string, err error) *StandardError {
	return newError(ErrCodeDBOperationError, fmt.Sprintf("Database operation '%s' failed", operation), err.Error(), true, err)
}

func NewApplicationNotFoundError(trackingCode string) *StandardError {
	return newError(ErrCodeApplicationNotFound, "Application not found", trackingCode, false, nil)
}

func NewSearchQueryFailedError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed", err.Error(), true, err)
}

func NewSearchIndexFailedError(err error) *StandardError {
	return newError(ErrCodeSearchIndexFailed, "Search indexing failed", err.Error(), true, err)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, fmt.Sprintf("Failed to send %s notification", channel), err.Error(), true, err)
}

func NewSystemError(err error) *StandardError {
	return newError(ErrCodeSystemError, "Unexpected error", err.Error(), false, err)
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError("BUSINESS_RULE_VIOLATION", message, details, false, nil)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true, err)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError("RESOURCE_NOT_FOUND", fmt.Sprintf("Resource not found in %s", service), details, false, nil)
}

func NewAuthenticationError(details string) *StandardError {
	return newError("AUTHENTICATION_ERROR", "Authentication failed", details, false, nil)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:         "VALIDATION_FAILED",
	ErrCodeInvalidData:              "INVALID_DATA",
	ErrCodeInvalidFormType:          "INVALID_FORM_TYPE",
	ErrCodeInvalidTrackingCode:      "INVALID_TRACKING_CODE",
	ErrCodeFileValidationFailed:     "FILE_VALIDATION_FAILED",
	ErrCodeFileUploadError:          "FILE_UPLOAD_ERROR",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeDBOperationError:         "DB_OPERATION_ERROR",
	ErrCodeApplicationNotFound:      "APPLICATION_NOT_FOUND",
	ErrCodeSearchQueryFailed:        "SEARCH_QUERY_FAILED",
	ErrCodeSearchIndexFailed:        "SEARCH_INDEX_FAILED",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
	ErrCodeSystemError:              "SYSTEM_ERROR",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDBOperationError,
		ErrCodeFileUploadError,
		ErrCodeSearchIndexFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeSearchQueryFailed, "TIMEOUT_ERROR", "EXTERNAL_SERVICE_ERROR":
		return 2

	default:
		return 0 // business errors
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "FILE"):
		return "FILE"
	case strings.Contains(codeStr, "DATABASE") || strings.HasPrefix(codeStr, "DB_"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "NOT_FOUND"):
		return "LOOKUP"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
