// internal/api/health.go
package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"rts-portal/internal/common/errors"
)

const readyTimeout = 3 * time.Second

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}

// ready runs every registered check and fails when any of them does.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			fields := map[string]interface{}{
				"check":     name,
				"errorCode": errors.CodeOf(err),
				"error":     err.Error(),
			}
			if stdErr, ok := errors.AsStandardError(err); ok {
				fields["details"] = stdErr.Details
			}
			s.logger.Warn("readiness check failed", fields)
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": state,
		"checks": results,
	})
}
