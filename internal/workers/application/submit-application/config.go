// internal/workers/application/submit-application/config.go
package submitapplication

import (
	"time"

	"rts-portal/internal/common/config"
)

const DefaultProcessID = "application-submitted"

type Config struct {
	// Timeout bounds one job when the pipeline runs as a Zeebe worker.
	Timeout   time.Duration
	ProcessID string
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Timeout:   config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		ProcessID: cfg.Camunda.SubmittedProcessID,
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Minute
	}
	if c.ProcessID == "" {
		c.ProcessID = DefaultProcessID
	}
	return c
}
