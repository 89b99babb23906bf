// internal/workers/application/track-application/handler.go
package trackapplication

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"rts-portal/internal/common/errors"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/common/metrics"
	"rts-portal/internal/common/observability"
	"rts-portal/internal/forms"
	"rts-portal/internal/models"
	"rts-portal/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "track-application"
)

const (
	MsgNotFound   = "तक्रार क्रमांक आढळला नाही. कृपया योग्य तक्रार क्रमांक प्रविष्ट करा / Application not found. Please enter correct complaint number."
	MsgError      = "तक्रारीची माहिती मिळवताना त्रुटी झाली. कृपया पुन्हा प्रयत्न करा / Error occurred while tracking application. Please try again."
	MsgValidation = "कृपया खालील त्रुटी दुरुस्त करा:"
)

const (
	resultFound    = "found"
	resultNotFound = "not_found"
	resultInvalid  = "invalid"
	resultError    = "error"
)

var mobilePattern = regexp.MustCompile(`^\d{10}$`)

type Handler struct {
	config       *Config
	store        store.Store
	forms        *forms.Registry
	obs          *observability.Observability
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, st store.Store, registry *forms.Registry, obs *observability.Observability, log logger.Logger) *Handler {
	if registry == nil {
		registry = forms.Default()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		store:        st,
		forms:        registry,
		obs:          obs,
		logger:       log,
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

	output, err := h.Execute(ctx, &input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
		h.obs.RecordJobProcessed(ctx, TaskType, "failed")
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.completeJob(client, job, output)
}

// Execute looks up an application by complaint number, and by mobile number
// when one is given. A missing application is a normal result with
// IsFound=false, not an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		input = &Input{}
	}
	code := forms.NormalizeTrackingCode(input.ComplaintNumber)
	mobile := strings.TrimSpace(input.MobileNumber)

	if fieldErrs := h.validate(code, mobile); len(fieldErrs) > 0 {
		h.record(ctx, resultInvalid)
		fields := make([]string, 0, len(fieldErrs))
		for _, e := range fieldErrs {
			fields = append(fields, e.Field)
		}
		return &Output{
			ComplaintNumber: code,
			Message:         MsgValidation,
			Errors:          fieldErrs,
		}, errors.NewValidationFailedError(strings.Join(fields, ", "))
	}

	// A code no registered form could have issued cannot match a row.
	if !h.forms.ValidTrackingCode(code) {
		h.record(ctx, resultNotFound)
		return &Output{ComplaintNumber: code, Message: MsgNotFound}, nil
	}

	app, err := h.store.FindForTracking(ctx, code, mobile)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			h.record(ctx, resultNotFound)
			h.logger.Info("application not found", map[string]interface{}{
				"complaintNumber": code,
				"withMobile":      mobile != "",
			})
			return &Output{ComplaintNumber: code, Message: MsgNotFound}, nil
		}

		h.record(ctx, resultError)
		h.logger.Error("tracking lookup failed", map[string]interface{}{
			"complaintNumber": code,
			"error":           err.Error(),
		})
		return &Output{ComplaintNumber: code, Message: MsgError}, errors.NewDBOperationError("track", err)
	}

	h.record(ctx, resultFound)
	created := app.CreatedAt
	return &Output{
		IsFound:         true,
		ComplaintNumber: app.TrackingCode,
		ApplicationType: app.Type,
		FormName:        app.FormName,
		Status:          app.Status,
		StatusDisplay:   StatusDisplay(app.Status),
		Priority:        app.Priority,
		PriorityDisplay: PriorityDisplay(app.Priority),
		CreatedDate:     &created,
		UpdatedDate:     app.UpdatedAt,
		ResolvedDate:    app.ResolvedAt,
		ApplicantName:   app.FullName(),
		Mobile:          app.Applicant.Mobile,
		Email:           app.Applicant.Email,
		Area:            app.Address.Area,
		Remarks:         app.Remarks,
		AssignedTo:      app.AssignedTo,
	}, nil
}

func (h *Handler) validate(code, mobile string) []models.FieldError {
	var errs []models.FieldError
	switch {
	case code == "":
		errs = append(errs, models.FieldError{Field: "ComplaintNumber", Message: "तक्रार क्रमांक आवश्यक आहे / Complaint number is required"})
	case len(code) > forms.MaxTrackingCodeLength:
		errs = append(errs, models.FieldError{Field: "ComplaintNumber", Message: fmt.Sprintf("Complaint number must not exceed %d characters", forms.MaxTrackingCodeLength)})
	}
	if mobile != "" && !mobilePattern.MatchString(mobile) {
		errs = append(errs, models.FieldError{Field: "MobileNumber", Message: "वैध 10 अंकी मोबाईल क्रमांक टाका / Mobile number must be 10 digits"})
	}
	return errs
}

func (h *Handler) record(ctx context.Context, result string) {
	metrics.TrackingLookups.WithLabelValues(result).Inc()
	h.obs.RecordLookup(ctx, result)
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
	sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := cmd.Send(sendCtx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
