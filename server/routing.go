package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/teranos/redpen/logger"
)

// routes registers all HTTP handlers
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Annotation API
	mux.HandleFunc("GET /pages/{pageId}", s.HandleGetPage)
	mux.HandleFunc("POST /pages/{pageId}/annotations", s.HandleCreateAnnotation)
	mux.HandleFunc("PUT /pages/{pageId}/annotations/{id}", s.HandleUpdateAnnotation)

	// Publish trigger
	mux.HandleFunc("POST /.hooks/{repoName}", s.HandleWebhook)
	mux.HandleFunc("POST /webhook", s.HandleWebhook)

	// Operations
	mux.HandleFunc("GET /api/sync/status", s.HandleSyncStatus)
	mux.HandleFunc("POST /api/store", s.HandleStore)
	mux.HandleFunc("GET /api/health", s.HandleHealth)
	mux.HandleFunc("GET /health", s.HandleHealth)

	return s.requestLogging(s.corsMiddleware(mux))
}

// corsMiddleware adds CORS headers for the configured origins and answers
// preflight requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if s.cfg.Server.AllowsAnyOrigin() {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if s.checkOrigin(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Hub-Signature-256, X-GitHub-Event")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogging tags each request with an id and logs its outcome.
func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()[:8]
		r = r.WithContext(logger.WithRequestID(r.Context(), requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log := s.logger.Debugw
		if rec.status >= http.StatusInternalServerError {
			log = s.logger.Warnw
		}
		log("HTTP request",
			logger.FieldRequestID, requestID,
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, rec.status,
			logger.FieldDurationMS, time.Since(start).Milliseconds(),
		)
	})
}
