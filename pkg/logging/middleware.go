package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"gitlab.com/heartbeat-intel/edge-router/internal/logz"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-Id"

func NewMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			// The inbound id is reused so edge and origin logs correlate; the
			// request itself is never modified.
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			recorder := newResponseRecorder(w)
			next.ServeHTTP(recorder, r)

			logger.Info("processed HTTP request",
				logz.RequestID(requestID),
				logz.HTTPPath(r.URL.Path),
				logz.HTTPIp(r.RemoteAddr),
				logz.HTTPStatus(recorder.status),
				logz.HTTPHost(r.Host),
				logz.HTTPMethod(r.Method),
				logz.HTTPScheme(scheme(r)),
				logz.HTTPBytesWritten(recorder.written),
				logz.Duration(time.Since(start)),
			)
		})
	}
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
