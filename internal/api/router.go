// internal/api/router.go
package api

import (
	"context"
	"net/http"
	"os"
	"strings"

	"rts-portal/internal/common/config"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/forms"
	"rts-portal/internal/models"
	"rts-portal/internal/store"
	submitapplication "rts-portal/internal/workers/application/submit-application"
	trackapplication "rts-portal/internal/workers/application/track-application"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Submitter interface {
	Execute(ctx context.Context, input *submitapplication.Input) (*submitapplication.Output, error)
	Update(ctx context.Context, input *submitapplication.UpdateInput) (*submitapplication.Output, error)
	Delete(ctx context.Context, input *submitapplication.DeleteInput) (*submitapplication.Output, error)
}

type Tracker interface {
	Execute(ctx context.Context, input *trackapplication.Input) (*trackapplication.Output, error)
}

type Searcher interface {
	Search(ctx context.Context, q store.SearchQuery) (*store.SearchResult, error)
}

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

type Dependencies struct {
	Forms   *forms.Registry
	Store   store.Store
	Submit  Submitter
	Track   Tracker
	Search  Searcher // nil when search is disabled
	Storage config.StorageConfig
	Checks  map[string]ReadinessCheck
}

type Server struct {
	forms   *forms.Registry
	store   store.Store
	submit  Submitter
	track   Tracker
	search  Searcher
	storage config.StorageConfig
	checks  map[string]ReadinessCheck
	logger  logger.Logger
}

// NewRouter builds the portal HTTP handler.
func NewRouter(cfg config.HTTPConfig, deps Dependencies, log logger.Logger) http.Handler {
	registry := deps.Forms
	if registry == nil {
		registry = forms.Default()
	}
	s := &Server{
		forms:   registry,
		store:   deps.Store,
		submit:  deps.Submit,
		track:   deps.Track,
		search:  deps.Search,
		storage: deps.Storage,
		checks:  deps.Checks,
		logger:  log.WithFields(map[string]interface{}{"component": "http"}),
	}

	r := chi.NewRouter()
	r.Use(RequestID(s.logger))
	r.Use(Recover(s.logger))
	r.Use(Metrics)
	r.Use(CORS(cfg.AllowedOrigins))
	if cfg.MaxBodyBytes > 0 {
		r.Use(middleware.RequestSize(cfg.MaxBodyBytes))
	}

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	for _, def := range s.forms.All() {
		s.mountForm(r, def)
	}

	r.Get("/Track", s.trackDescriptor)
	r.Post("/Track", s.trackLookup)
	r.Get("/Search", s.searchApplications)

	prefix := "/" + strings.Trim(s.storage.PublicPrefix, "/")
	if prefix == "/" {
		prefix = "/uploads"
	}
	r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(uploadFS{http.Dir(s.storage.UploadRoot)})))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, msgRouteMissing, "NOT_FOUND", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed", "METHOD_NOT_ALLOWED", nil)
	})
	return r
}

func (s *Server) mountForm(r chi.Router, def *forms.Definition) {
	r.Route("/"+def.Route, func(r chi.Router) {
		r.Get("/Create", s.formDescriptor(def))
		r.Post("/Create", s.createApplication(def))
		r.Get("/GetById", s.getApplication(def))
		r.Get("/List", s.listApplications(def))
		r.Get("/Count", s.countApplications(def))

		if def.Updatable {
			r.Post("/Update", s.updateApplication(def))
			r.Post("/Delete", s.deleteApplication(def))
			r.Get("/Dashboard", s.dashboard(def))
		}
		if def.Type == models.TypeTreeTrimming {
			r.Get("/DownloadNOCTemplate", s.downloadNOCTemplate)
		}
	})
}

// uploadFS serves promoted files only; directories are never listed.
type uploadFS struct {
	fs http.FileSystem
}

func (u uploadFS) Open(name string) (http.File, error) {
	f, err := u.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
