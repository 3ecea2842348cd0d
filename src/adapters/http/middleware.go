package http

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/rs/cors"
)

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *loggingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func (w *loggingResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		s.metrics.ObserveRequest(r.Pattern, r.Method, rw.Status(), elapsed)

		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			return
		}

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"route", r.Pattern,
			"status", rw.Status(),
			"duration_ms", elapsed.Milliseconds(),
		}

		if rw.Status() >= http.StatusInternalServerError {
			s.logger.Error("request complete", fields...)
			return
		}
		s.logger.Info("request complete", fields...)
	})
}

// withCORS libera o front-end configurado, com credenciais. Com "*" a origem é ecoada
// (AllowOriginFunc), porque o navegador recusa "*" junto com credenciais.
func (s *Server) withCORS(next http.Handler) http.Handler {
	options := cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           3600,
		Logger:           slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
	}
	if slices.Contains(s.allowedOrigins, "*") {
		options.AllowOriginFunc = func(string) bool { return true }
	}

	return cors.New(options).Handler(next)
}
