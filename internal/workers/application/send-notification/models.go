// internal/workers/application/send-notification/models.go
package sendnotification

import "rts-portal/internal/models"

type Input struct {
	models.SubmissionEvent
	NotificationType string `json:"notificationType,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"` // "sent", "failed", "disabled"
	Channels       []string `json:"channels,omitempty"`
	SentAt         string   `json:"sentAt"` // ISO 8601
}

// Notification types
const (
	TypeApplicationSubmitted = "application_submitted"
	TypeApplicationUpdated   = "application_updated"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
