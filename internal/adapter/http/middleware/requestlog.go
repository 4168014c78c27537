package middleware

import (
	"net/http"
	"time"

	"github.com/bnema/docstruct/internal/infrastructure/logger"
	"github.com/bnema/docstruct/internal/port"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent events working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RequestLog logs one line per request once it completes.
func RequestLog(log port.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		line := "%s %s %d %s"
		args := []any{r.Method, logger.SanitizeForLog(r.URL.Path), rec.status, time.Since(start).Round(time.Millisecond)}
		if rec.status >= http.StatusInternalServerError {
			log.Warnf(line, args...)
			return
		}
		log.Debugf(line, args...)
	})
}
