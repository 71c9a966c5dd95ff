package server

import (
	"log/slog"
	"net/http"
	"time"
)

// slowRequestThreshold promotes completed requests to warn.
const slowRequestThreshold = 5 * time.Second

// statusRecorder captures the status and size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *statusRecorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// withRequestLogging logs one line per request. The route is resolved from
// mux up front because inner middleware replaces the request.
func (s *Server) withRequestLogging(mux *http.ServeMux, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.code(),
			"bytes", rec.bytes,
			"duration_ms", elapsed.Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		if _, route := mux.Handler(r); route != "" {
			fields = append(fields, "route", route)
		}

		level := slog.LevelDebug
		switch {
		case rec.code() >= 500:
			level = slog.LevelError
		case elapsed >= slowRequestThreshold:
			level = slog.LevelWarn
		}
		s.log().Log(r.Context(), level, "request complete", fields...)
	})
}
