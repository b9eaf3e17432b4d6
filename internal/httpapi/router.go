// Package httpapi exposes the transcription request surface over local HTTP
// for browser-based frontends and scripting.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"video-transcriber/internal/domain"
	"video-transcriber/internal/jobs"
	"video-transcriber/internal/transcribe"
)

// Service is the UI-facing request surface. *bootstrap.App implements it.
type Service interface {
	TranscribeVideoContext(ctx context.Context, url string) transcribe.Result
	CancelTranscription(requestID string) error
	ActiveRequests() []domain.Request
	EventsForRequest(requestID string) []jobs.Event
	GetHistory() []domain.HistoryEntry
	SaveHistory(entry domain.HistoryEntry) ([]domain.HistoryEntry, error)
	GetDiagnostics() domain.DiagnosticReport
}

// NewRouter builds the HTTP routes. allowedOrigins defaults to any origin.
func NewRouter(svc Service, log logrus.FieldLogger, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(corsOptions(allowedOrigins)))

	h := &handler{svc: svc, log: log}

	r.Get("/healthz", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/transcribe", h.transcribe)
		r.Get("/requests", h.listRequests)
		r.Delete("/requests/{id}", h.cancelRequest)
		r.Get("/requests/{id}/events", h.requestEvents)
		r.Get("/history", h.getHistory)
		r.Post("/history", h.saveHistory)
		r.Get("/diagnostics", h.diagnostics)
	})

	return r
}

func corsOptions(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			if r.URL.Path == "/healthz" && wrapped.status < 400 {
				return
			}
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   wrapped.status,
				"duration": time.Since(start).Round(time.Millisecond).String(),
			}).Info("http request")
		})
	}
}
