package rest

import (
	"context"
	"net/http"
	"time"
)

const healthTimeout = 3 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	body := map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}

	version, err := s.db.ServerVersion(ctx)
	if err != nil {
		s.logger.Warn("database health check failed", map[string]interface{}{"error": err})
		body["status"] = "unhealthy"
		body["database"] = map[string]interface{}{"connected": false}
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}

	body["database"] = map[string]interface{}{"connected": true, "version": version}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks := map[string]string{}
	status, code := "ready", http.StatusOK

	if err := s.db.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		status, code = "unavailable", http.StatusServiceUnavailable
	} else {
		checks["postgres"] = "ok"
	}

	for _, dep := range s.deps {
		if err := dep.Ping(ctx); err != nil {
			checks[dep.Name] = err.Error()
			if code == http.StatusOK {
				status = "degraded"
			}
			continue
		}
		checks[dep.Name] = "ok"
	}

	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
