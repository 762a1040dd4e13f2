package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/omnistor/omnistor/pkg/provider"
)

// requestLogger logs one structured line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeFailure writes a failure envelope with an explicit HTTP status.
func writeFailure(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, provider.Fail[struct{}](err))
}

// respondError maps a provider error onto an HTTP status and writes the
// failure envelope.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch provider.StatusOf(err) {
	case provider.StatusNotFound:
		status = http.StatusNotFound
	case provider.StatusPermissionDenied:
		status = http.StatusForbidden
	case provider.StatusUnimplemented:
		status = http.StatusNotImplemented
	case provider.StatusConnectionFailed:
		status = http.StatusBadGateway
	case provider.StatusCancelled:
		status = http.StatusServiceUnavailable
	}

	s.logger.Warn("request failed", zap.Error(err))
	writeFailure(w, status, err)
}

// errBadRequest builds a plain validation error.
func errBadRequest(msg string) error {
	return errors.New(msg)
}
