package server

import (
	"net/http"
	"time"

	"github.com/fmtcheck/fmtcheck/internal/logger"
)

// recovery turns a handler panic into a 500.
func recovery(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorf("panic in HTTP handler: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// logging logs every request once it completes.
func logging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		log.With("method", r.Method).
			With("path", r.URL.Path).
			With("status", rw.statusCode).
			With("duration", time.Since(start).String()).
			With("event", r.Header.Get("X-GitHub-Event")).
			With("delivery", r.Header.Get("X-GitHub-Delivery")).
			Debugf("HTTP request completed")
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}
