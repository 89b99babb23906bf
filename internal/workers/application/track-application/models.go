// internal/workers/application/track-application/models.go
package trackapplication

import (
	"time"

	"rts-portal/internal/models"
)

type Input struct {
	ComplaintNumber string `json:"ComplaintNumber"`
	MobileNumber    string `json:"MobileNumber,omitempty"`
}

// Output is the tracking view. Only IsFound and Message are set when the
// lookup finds nothing.
type Output struct {
	IsFound         bool                   `json:"IsFound"`
	Message         string                 `json:"Message,omitempty"`
	ComplaintNumber string                 `json:"ComplaintNumber"`
	ApplicationType models.ApplicationType `json:"ApplicationType,omitempty"`
	FormName        string                 `json:"FormName,omitempty"`
	Status          string                 `json:"Status,omitempty"`
	StatusDisplay   string                 `json:"StatusDisplay,omitempty"`
	Priority        string                 `json:"Priority,omitempty"`
	PriorityDisplay string                 `json:"PriorityDisplay,omitempty"`
	CreatedDate     *time.Time             `json:"CreatedDate,omitempty"`
	UpdatedDate     *time.Time             `json:"UpdatedDate,omitempty"`
	ResolvedDate    *time.Time             `json:"ResolvedDate,omitempty"`
	ApplicantName   string                 `json:"ApplicantName,omitempty"`
	Mobile          string                 `json:"Mobile,omitempty"`
	Email           string                 `json:"Email,omitempty"`
	Area            string                 `json:"Area,omitempty"`
	Remarks         string                 `json:"Remarks,omitempty"`
	AssignedTo      string                 `json:"AssignedTo,omitempty"`
	Errors          []models.FieldError    `json:"Errors,omitempty"`
}
