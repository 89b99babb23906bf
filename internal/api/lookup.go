// internal/api/lookup.go
package api

import (
	"net/http"
	"strconv"

	"rts-portal/internal/common/errors"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/models"
	"rts-portal/internal/store"
	trackapplication "rts-portal/internal/workers/application/track-application"
)

const (
	msgSearchDisabled   = "Search is not available"
	msgUnreadableCode   = "अवैध तक्रार क्रमांक / Complaint number must be text"
	msgUnreadableMobile = "वैध 10 अंकी मोबाईल क्रमांक टाका / Mobile number must be 10 digits"
)

type trackForm struct {
	Title  string            `json:"title"`
	Fields []trackFormField  `json:"fields"`
	Labels map[string]string `json:"labels"`
}

type trackFormField struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Required  bool   `json:"required"`
	MaxLength int    `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

func (s *Server) trackDescriptor(w http.ResponseWriter, r *http.Request) {
	writeData(w, trackForm{
		Title: "अर्जाची स्थिती तपासा / Track Application",
		Fields: []trackFormField{
			{Name: "ComplaintNumber", Label: "तक्रार क्रमांक / Complaint Number", Required: true, MaxLength: 20},
			{Name: "MobileNumber", Label: "मोबाईल क्रमांक / Mobile Number", Pattern: `^\d{10}$`},
		},
		Labels: trackapplication.StatusLabels(),
	})
}

func (s *Server) trackLookup(w http.ResponseWriter, r *http.Request) {
	sub, err := parseSubmission(r)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, trackapplication.MsgValidation, string(errors.ErrCodeInvalidData), nil)
		return
	}
	defer sub.Close()

	code, codeErr := sub.value("ComplaintNumber", "complaintNumber")
	mobile, mobileErr := sub.value("MobileNumber", "mobileNumber")
	if codeErr != nil || mobileErr != nil {
		var fieldErrs []models.FieldError
		if codeErr != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "ComplaintNumber", Message: msgUnreadableCode})
		}
		if mobileErr != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "MobileNumber", Message: msgUnreadableMobile})
		}
		writeJSON(w, http.StatusBadRequest, &trackapplication.Output{
			Message: trackapplication.MsgValidation,
			Errors:  fieldErrs,
		})
		return
	}

	out, err := s.track.Execute(r.Context(), &trackapplication.Input{
		ComplaintNumber: code,
		MobileNumber:    mobile,
	})

	status := http.StatusOK
	if err != nil {
		status = statusFor(errors.CodeOf(err))
	}
	writeJSON(w, status, out)
}

func (s *Server) searchApplications(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeFailure(w, http.StatusServiceUnavailable, msgSearchDisabled, string(errors.ErrCodeSearchQueryFailed), nil)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))

	result, err := s.search.Search(r.Context(), store.SearchQuery{
		Q:      q.Get("q"),
		Type:   q.Get("type"),
		Status: q.Get("status"),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		stdErr := errors.NewSearchQueryFailedError(err)
		logger.FromContext(r.Context(), s.logger).Error("search failed", map[string]interface{}{
			"errorCode": stdErr.Code,
			"retryable": stdErr.Retryable,
			"error":     err.Error(),
		})
		writeFailure(w, statusFor(stdErr.Code), msgUnexpected, string(stdErr.Code), nil)
		return
	}
	writeData(w, result)
}
