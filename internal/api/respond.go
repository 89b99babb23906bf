// internal/api/respond.go
package api

import (
	"encoding/json"
	"net/http"

	"rts-portal/internal/common/errors"
	"rts-portal/internal/models"
)

const (
	msgUnexpected   = "अनपेक्षित त्रुटी आली. कृपया पुन्हा प्रयत्न करा."
	msgNotFound     = "अर्ज आढळला नाही / Application not found"
	msgIDRequired   = "Application ID is required"
	msgRouteMissing = "Resource not found"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, models.Response{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message, code string, fieldErrs []models.FieldError) {
	writeJSON(w, status, models.Response{
		Success:   false,
		Message:   message,
		ErrorCode: code,
		Errors:    fieldErrs,
	})
}

// statusFor maps an error code to its HTTP status.
func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeValidationFailed,
		errors.ErrCodeFileValidationFailed,
		errors.ErrCodeInvalidData,
		errors.ErrCodeInvalidFormType,
		errors.ErrCodeInvalidTrackingCode:
		return http.StatusBadRequest
	case errors.ErrCodeApplicationNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
