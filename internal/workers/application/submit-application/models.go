// internal/workers/application/submit-application/models.go
package submitapplication

import (
	"rts-portal/internal/common/storage"
	"rts-portal/internal/models"
)

// Input is one form submission. Files are keyed by document slot and never
// travel through job variables.
type Input struct {
	ApplicationType models.ApplicationType     `json:"applicationType"`
	Fields          map[string]interface{}     `json:"fields"`
	Files           map[string][]*storage.File `json:"-"`
}

type UpdateInput struct {
	ApplicationType models.ApplicationType     `json:"applicationType"`
	TrackingCode    string                     `json:"applicationId"`
	UpdatedBy       string                     `json:"updatedBy,omitempty"`
	Fields          map[string]interface{}     `json:"fields"`
	Files           map[string][]*storage.File `json:"-"`
}

type DeleteInput struct {
	ApplicationType models.ApplicationType `json:"applicationType"`
	TrackingCode    string                 `json:"applicationId"`
	DeletedBy       string                 `json:"deletedBy,omitempty"`
}

type Output struct {
	Success       bool                   `json:"success"`
	Message       string                 `json:"message"`
	ApplicationID string                 `json:"applicationId,omitempty"`
	Status        string                 `json:"status,omitempty"`
	Extra         map[string]interface{} `json:"extra,omitempty"`
	ErrorCode     string                 `json:"errorCode,omitempty"`
	Errors        []models.FieldError    `json:"errors,omitempty"`
}

// Response renders the output as the portal JSON envelope.
func (o *Output) Response() models.Response {
	if !o.Success {
		return models.Response{
			Success:   false,
			Message:   o.Message,
			ErrorCode: o.ErrorCode,
			Errors:    o.Errors,
		}
	}
	return models.Response{
		Success: true,
		Message: o.Message,
		Data: models.SubmissionResult{
			ApplicationID: o.ApplicationID,
			Status:        o.Status,
			Message:       o.Message,
			Extra:         o.Extra,
		},
	}
}
