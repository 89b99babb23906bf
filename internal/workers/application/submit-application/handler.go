// internal/workers/application/submit-application/handler.go
package submitapplication

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"rts-portal/internal/common/errors"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/common/metrics"
	"rts-portal/internal/common/observability"
	"rts-portal/internal/common/storage"
	"rts-portal/internal/forms"
	"rts-portal/internal/models"
	"rts-portal/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "submit-application"

	defaultActor = "System"
)

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// Messages used before a form definition is known.
var fallbackMessages = forms.Messages{
	InvalidData: "अवैध डेटा प्राप्त झाला.",
	Unexpected:  "अनपेक्षित त्रुटी आली. कृपया पुन्हा प्रयत्न करा.",
	Validation:  "कृपया खालील त्रुटी दुरुस्त करा:",
	Failure:     "अर्ज सबमिट करण्यात अपयश. कृपया पुन्हा प्रयत्न करा.",
}

const (
	msgInvalidFormType = "अवैध अर्ज प्रकार / Invalid application type"
	msgNotFound        = "अर्ज आढळला नाही / Application not found"
	msgIDRequired      = "Application ID is required"
)

// FileStager is the part of the file intake the pipeline drives.
type FileStager interface {
	Stage(ctx context.Context, f *storage.File, subfolder string, policy storage.Policy) (*storage.StagedFile, error)
	PromoteAll(staged []*storage.StagedFile) error
	Discard(staged ...*storage.StagedFile)
}

type Dependencies struct {
	Forms         *forms.Registry
	Store         store.Store
	Files         FileStager
	Dispatcher    Dispatcher
	Observability *observability.Observability
}

type Handler struct {
	config       *Config
	forms        *forms.Registry
	store        store.Store
	files        FileStager
	dispatcher   Dispatcher
	obs          *observability.Observability
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) *Handler {
	registry := deps.Forms
	if registry == nil {
		registry = forms.Default()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		forms:        registry,
		store:        deps.Store,
		files:        deps.Files,
		dispatcher:   deps.Dispatcher,
		obs:          deps.Observability,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}
}

// Handle runs field-only submissions arriving as Zeebe jobs.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	start := time.Now()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.jobFailed(context.Background(), client, job, start,
			errors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}
	input.Files = nil

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.jobFailed(ctx, client, job, start, err)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
	h.completeJob(client, job, output)
}

func (h *Handler) jobFailed(ctx context.Context, client worker.JobClient, job entities.Job, start time.Time, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

// Execute runs the submission pipeline: validate, stage files, insert, then
// promote and dispatch. The output is never nil; err is set whenever the
// output reports a failure.
func (h *Handler) Execute(ctx context.Context, input *Input) (out *Output, err error) {
	start := time.Now()
	label := "unknown"
	msgs := fallbackMessages

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("submission panicked", map[string]interface{}{
				"applicationType": label,
				"panic":           fmt.Sprint(r),
			})
			out, err = failure(msgs.Unexpected, errors.NewSystemError(fmt.Errorf("panic: %v", r)))
		}
		h.record(ctx, label, err, time.Since(start))
	}()

	if input == nil {
		return failure(msgs.InvalidData, errors.NewInvalidDataError())
	}

	def, ok := h.forms.ByType(input.ApplicationType)
	if !ok {
		return failure(msgInvalidFormType, errors.NewInvalidFormTypeError(string(input.ApplicationType)))
	}
	label = string(def.Type)
	msgs = def.Messages

	if input.Fields == nil {
		return failure(msgs.InvalidData, errors.NewInvalidDataError())
	}

	values, fieldErrs := def.Check(input.Fields)
	fileErrs := checkFiles(def, input.Files)
	if len(fieldErrs)+len(fileErrs) > 0 {
		return h.rejected(def, fieldErrs, fileErrs)
	}

	app := def.Build(values)

	staged, docs, err := h.stage(ctx, def, input.Files)
	if err != nil {
		return failure(msgs.Failure, errors.Normalize(err))
	}
	app.Documents = docs

	saved, err := h.store.Insert(ctx, app)
	if err != nil {
		h.files.Discard(staged...)
		h.logger.Error("application insert failed", map[string]interface{}{
			"applicationType": label,
			"error":           err.Error(),
		})
		return failure(msgs.Failure, errors.NewDBOperationError("insert", err))
	}

	h.promote(saved.TrackingCode, staged)
	h.dispatch(ctx, saved)

	h.logger.Info("application submitted", map[string]interface{}{
		"applicationType": label,
		"trackingCode":    saved.TrackingCode,
		"documents":       len(saved.Documents),
	})

	out = &Output{
		Success:       true,
		Message:       msgs.Success,
		ApplicationID: saved.TrackingCode,
		Status:        models.ResultStatusSuccess,
	}
	if def.Extra != nil {
		out.Extra = def.Extra(values)
	}
	return out, nil
}

// Update re-validates an updatable form, attaches any new documents and flags
// the stored application as updated.
func (h *Handler) Update(ctx context.Context, input *UpdateInput) (*Output, error) {
	if input == nil {
		return failure(fallbackMessages.InvalidData, errors.NewInvalidDataError())
	}
	def, code, out, err := h.resolveExisting(input.ApplicationType, input.TrackingCode)
	if err != nil {
		return out, err
	}
	if input.Fields == nil {
		return failure(def.Messages.InvalidData, errors.NewInvalidDataError())
	}

	_, fieldErrs := def.Check(input.Fields)
	fileErrs := checkFiles(def, input.Files)
	if len(fieldErrs)+len(fileErrs) > 0 {
		return h.rejected(def, fieldErrs, fileErrs)
	}

	staged, docs, err := h.stage(ctx, def, input.Files)
	if err != nil {
		return failure(def.Messages.Failure, errors.Normalize(err))
	}

	updatedBy := strings.TrimSpace(input.UpdatedBy)
	if updatedBy == "" {
		updatedBy = defaultActor
	}

	if err := h.store.UpdateFlagWithDocuments(ctx, code, updatedBy, docs); err != nil {
		h.files.Discard(staged...)
		if stderrors.Is(err, store.ErrNotFound) {
			return failure(msgNotFound, errors.NewApplicationNotFoundError(code))
		}
		h.logger.Error("application update failed", map[string]interface{}{
			"trackingCode": code,
			"error":        err.Error(),
		})
		return failure(def.Messages.Failure, errors.NewDBOperationError("update", err))
	}
	h.promote(code, staged)

	h.logger.Info("application updated", map[string]interface{}{
		"trackingCode": code,
		"updatedBy":    updatedBy,
		"documents":    len(docs),
	})
	return &Output{
		Success:       true,
		Message:       def.Messages.Updated,
		ApplicationID: code,
		Status:        models.ResultStatusSuccess,
	}, nil
}

// Delete soft-deletes an updatable application.
func (h *Handler) Delete(ctx context.Context, input *DeleteInput) (*Output, error) {
	if input == nil {
		return failure(fallbackMessages.InvalidData, errors.NewInvalidDataError())
	}
	def, code, out, err := h.resolveExisting(input.ApplicationType, input.TrackingCode)
	if err != nil {
		return out, err
	}

	deletedBy := strings.TrimSpace(input.DeletedBy)
	if deletedBy == "" {
		deletedBy = defaultActor
	}

	if err := h.store.SoftDelete(ctx, code, deletedBy); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return failure(msgNotFound, errors.NewApplicationNotFoundError(code))
		}
		h.logger.Error("application delete failed", map[string]interface{}{
			"trackingCode": code,
			"error":        err.Error(),
		})
		return failure(def.Messages.Failure, errors.NewDBOperationError("delete", err))
	}

	h.logger.Info("application deleted", map[string]interface{}{
		"trackingCode": code,
		"deletedBy":    deletedBy,
	})
	return &Output{
		Success:       true,
		Message:       def.Messages.Deleted,
		ApplicationID: code,
		Status:        models.ResultStatusSuccess,
	}, nil
}

func (h *Handler) resolveExisting(t models.ApplicationType, rawCode string) (*forms.Definition, string, *Output, error) {
	def, ok := h.forms.ByType(t)
	if !ok || !def.Updatable {
		out, err := failure(msgInvalidFormType, errors.NewInvalidFormTypeError(string(t)))
		return nil, "", out, err
	}

	code := forms.NormalizeTrackingCode(rawCode)
	if code == "" {
		out, err := h.rejected(def, []models.FieldError{{Field: "ApplicationId", Message: msgIDRequired}}, nil)
		return nil, "", out, err
	}
	if owner, ok := h.forms.ForTrackingCode(code); !ok || owner.Type != def.Type || len(code) > forms.MaxTrackingCodeLength {
		out, err := failure(msgNotFound, errors.NewInvalidTrackingCodeError(code))
		return nil, "", out, err
	}
	return def, code, nil, nil
}

func (h *Handler) rejected(def *forms.Definition, fieldErrs, fileErrs []models.FieldError) (*Output, error) {
	all := append(append([]models.FieldError{}, fieldErrs...), fileErrs...)
	fields := make([]string, 0, len(all))
	for _, e := range all {
		fields = append(fields, e.Field)
	}

	var err *errors.StandardError
	if len(fieldErrs) == 0 {
		err = errors.NewFileValidationFailedError(fileErrs[0].Field, stderrors.New(fileErrs[0].Message))
	} else {
		err = errors.NewValidationFailedError(strings.Join(fields, ", "))
	}

	h.logger.Warn("submission rejected", map[string]interface{}{
		"applicationType": string(def.Type),
		"fields":          fields,
	})
	return &Output{
		Success:   false,
		Message:   def.Messages.Validation,
		ErrorCode: string(err.Code),
		Errors:    all,
	}, err
}

// checkFiles validates every upload against the form policy before anything
// is written.
func checkFiles(def *forms.Definition, files map[string][]*storage.File) []models.FieldError {
	var errs []models.FieldError
	for _, field := range sortedKeys(files) {
		if _, ok := def.Slot(field); !ok {
			if len(files[field]) > 0 {
				errs = append(errs, models.FieldError{Field: field, Message: "Unexpected file upload"})
			}
			continue
		}
		for _, f := range files[field] {
			if err := storage.Validate(f, def.Policy); err != nil {
				errs = append(errs, models.FieldError{Field: field, Message: fileErrorMessage(err, def.Policy)})
				break
			}
		}
	}
	return errs
}

func fileErrorMessage(err error, policy storage.Policy) string {
	switch {
	case stderrors.Is(err, storage.ErrFileEmpty):
		return "Uploaded file is empty"
	case stderrors.Is(err, storage.ErrFileTooLarge):
		return fmt.Sprintf("File size must not exceed %d MB", policy.MaxBytes>>20)
	case stderrors.Is(err, storage.ErrExtensionNotAllowed):
		return fmt.Sprintf("Only %s files are allowed", strings.Join(policy.Extensions, ", "))
	default:
		return "Invalid file"
	}
}

// stage writes every upload to the staging area. On failure the files staged
// so far are discarded.
func (h *Handler) stage(ctx context.Context, def *forms.Definition, files map[string][]*storage.File) ([]*storage.StagedFile, []models.Document, error) {
	var staged []*storage.StagedFile
	var docs []models.Document

	for _, field := range sortedKeys(files) {
		slot, _ := def.Slot(field)
		for _, f := range files[field] {
			sf, err := h.files.Stage(ctx, f, slot.Subfolder, def.Policy)
			if err != nil {
				h.files.Discard(staged...)
				h.logger.Error("file staging failed", map[string]interface{}{
					"applicationType": string(def.Type),
					"field":           field,
					"error":           err.Error(),
				})
				return nil, nil, errors.NewFileUploadError(field, err)
			}
			staged = append(staged, sf)
			docs = append(docs, models.Document{
				Field:        field,
				Path:         sf.PublicPath,
				OriginalName: sf.OriginalName,
				ContentType:  sf.ContentType,
				Size:         sf.Size,
				Checksum:     sf.Checksum,
			})
		}
	}
	return staged, docs, nil
}

// promote publishes staged files after commit. Files that fail stay staged
// for the sweeper.
func (h *Handler) promote(code string, staged []*storage.StagedFile) {
	if len(staged) == 0 {
		return
	}
	if err := h.files.PromoteAll(staged); err != nil {
		h.logger.Error("file promotion failed", map[string]interface{}{
			"trackingCode": code,
			"error":        err.Error(),
		})
	}
}

func (h *Handler) dispatch(ctx context.Context, app *models.Application) {
	if h.dispatcher == nil {
		return
	}
	if err := h.dispatcher.Dispatch(ctx, models.NewSubmissionEvent(app)); err != nil {
		h.logger.Warn("acknowledgement dispatch failed", map[string]interface{}{
			"trackingCode": app.TrackingCode,
			"error":        err.Error(),
		})
	}
}

func (h *Handler) record(ctx context.Context, applicationType string, err error, elapsed time.Duration) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeFailed
		switch errors.CodeOf(err) {
		case errors.ErrCodeValidationFailed, errors.ErrCodeFileValidationFailed, errors.ErrCodeInvalidData, errors.ErrCodeInvalidFormType:
			outcome = outcomeRejected
		}
	}
	metrics.SubmissionsTotal.WithLabelValues(applicationType, outcome).Inc()
	metrics.SubmissionDuration.WithLabelValues(applicationType).Observe(elapsed.Seconds())
	h.obs.RecordSubmission(ctx, applicationType, outcome, elapsed)
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
	} else {
		h.logger.Info("job completed successfully", map[string]interface{}{
			"jobKey":        job.Key,
			"applicationId": output.ApplicationID,
		})
	}
}

func failure(message string, err *errors.StandardError) (*Output, error) {
	return &Output{
		Success:   false,
		Message:   message,
		ErrorCode: string(err.Code),
	}, err
}

func sortedKeys(files map[string][]*storage.File) []string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
