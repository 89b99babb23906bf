// internal/workers/application/send-notification/handler.go
package sendnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	awsx "rts-portal/internal/common/aws"
	"rts-portal/internal/common/errors"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-notification"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config       *Config
	logger       logger.Logger
	sesClient    SESService
	snsClient    SNSService
	templates    map[string]Template
	errorHandler *errors.ErrorHandler
}

// NewHandler builds the acknowledgement sender. Either client may be nil when
// its channel is disabled.
func NewHandler(config *Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		logger:       log,
		sesClient:    sesClient,
		snsClient:    snsClient,
		templates:    defaultTemplates,
		errorHandler: errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(context.Background(), client, job,
			errors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	notificationType := input.NotificationType
	if notificationType == "" {
		notificationType = TypeApplicationSubmitted
	}
	template, exists := h.templates[notificationType]
	if !exists {
		return nil, errors.NewBusinessRuleError("unknown notification type",
			fmt.Sprintf("template not found for type: %s", notificationType))
	}

	data := map[string]interface{}{
		"trackingCode":    input.TrackingCode,
		"applicationType": string(input.ApplicationType),
		"formName":        input.FormName,
		"applicantName":   input.ApplicantName,
		"priority":        input.Priority,
		"status":          input.Status,
		"submittedAt":     input.SubmittedAt,
	}

	subject := renderTemplate(template.Subject, data)
	body := renderTemplate(template.Body, data)
	sms := renderTemplate(template.SMS, data)

	output := &Output{
		NotificationID: uuid.New().String(),
		Status:         StatusDisabled,
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}

	failed := false
	if h.config.EmailEnabled && h.sesClient != nil && input.Email != "" {
		if err := h.sendEmail(ctx, input.Email, subject, body); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"error":        err.Error(),
				"trackingCode": input.TrackingCode,
			})
			failed = true
		} else {
			output.Channels = append(output.Channels, ChannelEmail)
		}
	}

	if h.config.SMSEnabled && h.snsClient != nil && input.Mobile != "" && h.meetsThreshold(input.Priority) {
		if err := h.sendSMS(ctx, input.Mobile, sms); err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{
				"error":        err.Error(),
				"trackingCode": input.TrackingCode,
			})
			failed = true
		} else {
			output.Channels = append(output.Channels, ChannelSMS)
		}
	}

	// Channels lists what was delivered; any failed channel marks the whole
	// notification failed.
	switch {
	case failed:
		output.Status = StatusFailed
	case len(output.Channels) > 0:
		output.Status = StatusSent
	}

	h.logger.Info("notification processed", map[string]interface{}{
		"trackingCode": input.TrackingCode,
		"status":       output.Status,
		"channels":     output.Channels,
	})
	return output, nil
}

var priorityRank = map[string]int{
	strings.ToLower(models.PriorityLow):    1,
	strings.ToLower(models.PriorityMedium): 2,
	strings.ToLower(models.PriorityHigh):   3,
}

func (h *Handler) meetsThreshold(priority string) bool {
	rank := priorityRank[strings.ToLower(priority)]
	threshold, ok := priorityRank[strings.ToLower(h.config.PriorityThreshold)]
	if !ok {
		threshold = priorityRank["high"]
	}
	return rank >= threshold
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, awsx.EmailInput(h.config.FromEmail, to, subject, body, textToHTML(body)))
	return err
}

func (h *Handler) sendSMS(ctx context.Context, mobile, message string) error {
	_, err := h.snsClient.Publish(ctx, awsx.SMSInput(awsx.E164(mobile, h.config.CountryCode), message, h.config.SMSSenderID))
	return err
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// Notify sends the submission acknowledgement for event. Delivery failures are
// reported in the output and never returned as errors.
func (h *Handler) Notify(ctx context.Context, event models.SubmissionEvent) (*Output, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()
	return h.execute(ctx, &Input{SubmissionEvent: event, NotificationType: TypeApplicationSubmitted})
}
