// internal/workers/application/submit-application/dispatch.go
package submitapplication

import (
	"context"
	"fmt"
	"strings"

	"rts-portal/internal/common/errors"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/models"
	sendnotification "rts-portal/internal/workers/application/send-notification"
)

// Dispatcher hands a committed submission to the acknowledgement flow.
type Dispatcher interface {
	Dispatch(ctx context.Context, event models.SubmissionEvent) error
}

type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

// ProcessDispatcher starts a BPMN process per submission. The process runs the
// send-notification job.
type ProcessDispatcher struct {
	starter   ProcessStarter
	processID string
	logger    logger.Logger
}

func NewProcessDispatcher(starter ProcessStarter, processID string, log logger.Logger) *ProcessDispatcher {
	return &ProcessDispatcher{
		starter:   starter,
		processID: processID,
		logger:    log.WithFields(map[string]interface{}{"component": "process-dispatcher"}),
	}
}

func (d *ProcessDispatcher) Dispatch(ctx context.Context, event models.SubmissionEvent) error {
	key, err := d.starter.StartProcess(ctx, d.processID, event)
	if err != nil {
		return fmt.Errorf("start process %s for %s: %w", d.processID, event.TrackingCode, err)
	}
	d.logger.Info("process started", map[string]interface{}{
		"processId":          d.processID,
		"processInstanceKey": key,
		"trackingCode":       event.TrackingCode,
	})
	return nil
}

type Notifier interface {
	Notify(ctx context.Context, event models.SubmissionEvent) (*sendnotification.Output, error)
}

// DirectDispatcher calls the notifier in-process when no broker is configured.
type DirectDispatcher struct {
	notifier Notifier
}

func NewDirectDispatcher(notifier Notifier) *DirectDispatcher {
	return &DirectDispatcher{notifier: notifier}
}

func (d *DirectDispatcher) Dispatch(ctx context.Context, event models.SubmissionEvent) error {
	out, err := d.notifier.Notify(ctx, event)
	if err != nil {
		return err
	}
	if out != nil && out.Status == sendnotification.StatusFailed {
		channel := strings.Join(out.Channels, ",")
		if channel == "" {
			channel = "email"
		}
		return errors.NewNotificationSendFailedError(channel,
			fmt.Errorf("notification %s for %s failed", out.NotificationID, event.TrackingCode))
	}
	return nil
}
