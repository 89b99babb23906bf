// internal/models/notification.go
package models

// SubmissionEvent is published after an application is committed. It is the
// variable set of the application-submitted process and the input of the
// acknowledgement notification.
type SubmissionEvent struct {
	TrackingCode    string          `json:"trackingCode"`
	ApplicationType ApplicationType `json:"applicationType"`
	FormName        string          `json:"formName"`
	ApplicantName   string          `json:"applicantName"`
	Email           string          `json:"email,omitempty"`
	Mobile          string          `json:"mobile,omitempty"`
	Priority        string          `json:"priority"`
	Status          string          `json:"status"`
	SubmittedAt     string          `json:"submittedAt"` // RFC 3339
}

// NewSubmissionEvent builds the event for a committed application.
func NewSubmissionEvent(app *Application) SubmissionEvent {
	return SubmissionEvent{
		TrackingCode:    app.TrackingCode,
		ApplicationType: app.Type,
		FormName:        app.FormName,
		ApplicantName:   app.FullName(),
		Email:           app.Applicant.Email,
		Mobile:          app.Applicant.Mobile,
		Priority:        app.Priority,
		Status:          app.Status,
		SubmittedAt:     app.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
