// internal/workers/application/send-notification/config.go
package sendnotification

import (
	"time"

	"rts-portal/internal/common/config"
)

type Config struct {
	EmailEnabled      bool
	SMSEnabled        bool
	FromEmail         string
	SMSSenderID       string
	CountryCode       string
	PriorityThreshold string
	Timeout           time.Duration
}

// LoadConfig reads the notification switches and the AWS sender settings.
// A channel is enabled only when both its notification flag and its AWS service are on.
func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		EmailEnabled:      cfg.Notifications.Email.Enabled && cfg.Integrations.AWS.SES.Enabled,
		SMSEnabled:        cfg.Notifications.SMS.Enabled && cfg.Integrations.AWS.SNS.Enabled,
		FromEmail:         cfg.Integrations.AWS.SES.FromEmail,
		SMSSenderID:       cfg.Integrations.AWS.SNS.DefaultSMSSenderID,
		CountryCode:       cfg.Notifications.SMS.CountryCode,
		PriorityThreshold: cfg.Notifications.SMS.PriorityThreshold,
		Timeout:           config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
	}
	if c.PriorityThreshold == "" {
		c.PriorityThreshold = "High"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}
