package models

// Response is the JSON envelope every portal endpoint returns.
type Response struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Data      interface{}  `json:"data,omitempty"`
	ErrorCode string       `json:"errorCode,omitempty"`
	Errors    []FieldError `json:"errors,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SubmissionResult is the data block of a successful submit.
type SubmissionResult struct {
	ApplicationID string                 `json:"applicationId"`
	Status        string                 `json:"status"`
	Message       string                 `json:"message"`
	Extra         map[string]interface{} `json:"extra,omitempty"`
}

const ResultStatusSuccess = "SUCCESS"
