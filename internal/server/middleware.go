package server

import (
	"context"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HeaderTraceID carries the correlation id of a request and its response.
const HeaderTraceID = "X-Trace-Id"

const correlationIDField = "correlation-id"

type loggerKey struct{}

// Logger returns the request scoped logger stored in ctx, or a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// correlate tags the request with the caller's trace id, or a new one, and
// logs the outcome.
func (s *Server) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderTraceID)
		if id == "" {
			id = uuid.NewString()
		}
		logger := s.logger.With(zap.String(correlationIDField, id))
		w.Header().Set(HeaderTraceID, id)

		r = r.WithContext(context.WithValue(r.Context(), loggerKey{}, logger))
		m := httpsnoop.CaptureMetrics(next, w, r)
		logger.Info("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", m.Code),
			zap.Duration("duration", m.Duration),
		)
	})
}
