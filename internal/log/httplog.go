package log

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// statusRecorder captures the status code and body size written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// RequestObserver is called once per completed request
type RequestObserver func(req *http.Request, status int, duration time.Duration)

// HTTPLogger returns middleware that writes one access log line per request
// to logger. Each observer is called after the line is written.
func HTTPLogger(logger *zap.SugaredLogger, observers ...RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, req)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			duration := time.Since(start)

			logger.Infow("http request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", rec.status,
				"duration_ms", duration.Milliseconds(),
				"size", rec.size,
				"remote_addr", req.RemoteAddr,
				"user_agent", req.UserAgent(),
			)

			for _, observe := range observers {
				observe(req, rec.status, duration)
			}
		})
	}
}
