package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const requestIDHeader = "X-Request-ID"

// echoRequestID returns the id assigned by middleware.RequestID to the caller.
func echoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(requestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

// RequestIDFrom returns the request id set by the middleware, if any.
func RequestIDFrom(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// accessLog emits one line per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http_request", map[string]interface{}{
			"request_id":     RequestIDFrom(r.Context()),
			"method":         r.Method,
			"path":           r.URL.Path,
			"status":         ww.Status(),
			"latency_ms":     time.Since(start).Milliseconds(),
			"response_bytes": ww.BytesWritten(),
		})
	})
}

// recoverer turns panics into a JSON 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				s.logger.Error("panic recovered", map[string]interface{}{
					"panic": rvr,
					"path":  r.URL.Path,
				})
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"code":    "INTERNAL_ERROR",
					"message": "internal error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
