// internal/api/applications.go
package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rts-portal/internal/common/errors"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/common/storage"
	"rts-portal/internal/forms"
	"rts-portal/internal/models"
	"rts-portal/internal/store"
	submitapplication "rts-portal/internal/workers/application/submit-application"
)

const (
	multipartMemory = 32 << 20

	nocTemplateFile     = "NOC-Letter-Tree-Garden-Dept.pdf"
	nocDownloadFileName = "NOC-Letter-Template.pdf"
)

// submission is a parsed form post. Close releases the opened uploads.
type submission struct {
	fields  map[string]interface{}
	files   map[string][]*storage.File
	closers []io.Closer
}

func (s *submission) Close() {
	for _, c := range s.closers {
		c.Close()
	}
}

// errUnreadableValue marks a supplied field that is not a plain scalar.
var errUnreadableValue = stderrors.New("field value is not a scalar")

// value returns the first non-blank value of a plain field. A key holding an
// object or array is an error, never treated as absent.
func (s *submission) value(keys ...string) (string, error) {
	for _, k := range keys {
		raw, ok := s.fields[k]
		if !ok {
			continue
		}
		text, err := scalarText(raw)
		if err != nil {
			return "", fmt.Errorf("%s: %w", k, err)
		}
		if text != "" {
			return text, nil
		}
	}
	return "", nil
}

func scalarText(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case []string:
		for _, item := range v {
			if item = strings.TrimSpace(item); item != "" {
				return item, nil
			}
		}
		return "", nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", errUnreadableValue
	}
}

// parseSubmission reads multipart, urlencoded or JSON bodies. An empty body
// yields nil fields.
func parseSubmission(r *http.Request) (*submission, error) {
	sub := &submission{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, err
		}
		sub.fields = make(map[string]interface{}, len(r.MultipartForm.Value))
		for k, v := range r.MultipartForm.Value {
			sub.fields[k] = v
		}
		for field, headers := range r.MultipartForm.File {
			for _, fh := range headers {
				f, err := fh.Open()
				if err != nil {
					sub.Close()
					return nil, err
				}
				sub.closers = append(sub.closers, f)
				if sub.files == nil {
					sub.files = make(map[string][]*storage.File)
				}
				sub.files[field] = append(sub.files[field], &storage.File{
					Name:        fh.Filename,
					ContentType: fh.Header.Get("Content-Type"),
					Size:        fh.Size,
					Content:     f,
				})
			}
		}

	case "application/json":
		var fields map[string]interface{}
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil && err != io.EOF {
			return nil, err
		}
		sub.fields = fields

	default:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		if len(r.PostForm) > 0 {
			sub.fields = make(map[string]interface{}, len(r.PostForm))
			for k, v := range r.PostForm {
				sub.fields[k] = v
			}
		}
	}
	return sub, nil
}

// parseFailure answers a body that could not be read.
func (s *Server) parseFailure(w http.ResponseWriter, r *http.Request, def *forms.Definition, err error) {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		writeFailure(w, http.StatusRequestEntityTooLarge, def.Messages.InvalidData, string(errors.ErrCodeFileValidationFailed), nil)
		return
	}
	logger.FromContext(r.Context(), s.logger).Warn("request body rejected", map[string]interface{}{
		"route": def.Route,
		"error": err.Error(),
	})
	writeFailure(w, http.StatusBadRequest, def.Messages.InvalidData, string(errors.ErrCodeInvalidData), nil)
}

func writeOutput(w http.ResponseWriter, out *submitapplication.Output, err error) {
	status := http.StatusOK
	if err != nil || !out.Success {
		status = statusFor(errors.CodeOf(err))
	}
	writeJSON(w, status, out.Response())
}

func (s *Server) formDescriptor(def *forms.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, def.Descriptor())
	}
}

func (s *Server) createApplication(def *forms.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := parseSubmission(r)
		if err != nil {
			s.parseFailure(w, r, def, err)
			return
		}
		defer sub.Close()

		out, err := s.submit.Execute(r.Context(), &submitapplication.Input{
			ApplicationType: def.Type,
			Fields:          sub.fields,
			Files:           sub.files,
		})
		writeOutput(w, out, err)
	}
}

func (s *Server) updateApplication(def *forms.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := parseSubmission(r)
		if err != nil {
			s.parseFailure(w, r, def, err)
			return
		}
		defer sub.Close()

		code, err := sub.value("ApplicationId", "applicationId", "id")
		if err != nil {
			s.parseFailure(w, r, def, err)
			return
		}
		if code == "" {
			code = r.URL.Query().Get("id")
		}
		updatedBy, err := sub.value("UpdatedBy", "updatedBy")
		if err != nil {
			s.parseFailure(w, r, def, err)
			return
		}

		out, err := s.submit.Update(r.Context(), &submitapplication.UpdateInput{
			ApplicationType: def.Type,
			TrackingCode:    code,
			UpdatedBy:       updatedBy,
			Fields:          sub.fields,
			Files:           sub.files,
		})
		writeOutput(w, out, err)
	}
}

func (s *Server) deleteApplication(def *forms.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := parseSubmission(r)
		if err != nil {
			s.parseFailure(w, r, def, err)
			return
		}
		defer sub.Close()

		code, err := sub.value("ApplicationId", "applicationId", "id")
		if err != nil {
			s.parseFailure(w, r, def, err)
			return
		}
		if code == "" {
			code = r.URL.Query().Get("id")
		}
		deletedBy, err := sub.value("DeletedBy", "deletedBy")
		if err != nil {
			s.parseFailure(w, r, def, err)
			return
		}
		if deletedBy == "" {
			deletedBy = r.URL.Query().Get("deletedBy")
		}

		out, err := s.submit.Delete(r.Context(), &submitapplication.DeleteInput{
			ApplicationType: def.Type,
			TrackingCode:    code,
			DeletedBy:       deletedBy,
		})
		writeOutput(w, out, err)
	}
}

func (s *Server) getApplication(def *forms.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := forms.NormalizeTrackingCode(r.URL.Query().Get("id"))
		if code == "" {
			writeFailure(w, http.StatusBadRequest, msgIDRequired, string(errors.ErrCodeValidationFailed), nil)
			return
		}

		app, err := s.store.GetByTrackingCode(r.Context(), code)
		switch {
		case stderrors.Is(err, store.ErrNotFound):
			writeFailure(w, http.StatusNotFound, msgNotFound, string(errors.ErrCodeApplicationNotFound), nil)
			return
		case err != nil:
			s.storeFailure(w, r, def, "get", err)
			return
		case app.Type != def.Type:
			writeFailure(w, http.StatusNotFound, msgNotFound, string(errors.ErrCodeApplicationNotFound), nil)
			return
		}
		writeData(w, app)
	}
}

func (s *Server) listApplications(def *forms.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, err := s.store.List(r.Context(), def.Type, models.ListQuery{
			PageNumber: atoi(q.Get("pageNumber")),
			PageSize:   atoi(q.Get("pageSize")),
			Status:     q.Get("status"),
			Priority:   q.Get("priority"),
			SearchText: q.Get("searchText"),
		})
		if err != nil {
			s.storeFailure(w, r, def, "list", err)
			return
		}
		writeData(w, page)
	}
}

func (s *Server) dashboard(def *forms.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := s.store.List(r.Context(), def.Type, models.ListQuery{
			PageNumber: 1,
			PageSize:   models.DefaultPageSize,
		})
		if err != nil {
			s.storeFailure(w, r, def, "dashboard", err)
			return
		}
		writeData(w, page)
	}
}

func (s *Server) countApplications(def *forms.Definition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.store.Count(r.Context(), def.Type)
		if err != nil {
			s.storeFailure(w, r, def, "count", err)
			return
		}
		writeData(w, map[string]int64{"count": n})
	}
}

func (s *Server) downloadNOCTemplate(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(filepath.Join(s.storage.TemplatesDir, nocTemplateFile))
	if err != nil {
		writeFailure(w, http.StatusNotFound, "NOC template not found", "NOT_FOUND", nil)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeFailure(w, http.StatusNotFound, "NOC template not found", "NOT_FOUND", nil)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+nocDownloadFileName+`"`)
	http.ServeContent(w, r, nocDownloadFileName, info.ModTime(), f)
}

func (s *Server) storeFailure(w http.ResponseWriter, r *http.Request, def *forms.Definition, op string, err error) {
	logger.FromContext(r.Context(), s.logger).Error("store operation failed", map[string]interface{}{
		"route":     def.Route,
		"operation": op,
		"error":     err.Error(),
	})
	writeFailure(w, http.StatusInternalServerError, def.Messages.Unexpected, string(errors.ErrCodeDBOperationError), nil)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
