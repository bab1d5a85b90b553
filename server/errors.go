package server

import (
	"net/http"

	"github.com/teranos/redpen/errors"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, errors.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with its mapped status. Client errors carry
// the message and any hint; server errors carry a generic message so
// storage paths do not leak.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Errorw("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, "internal error")
		return
	}

	body := map[string]string{"error": err.Error()}
	if hint := errors.FlattenHints(err); hint != "" {
		body["hint"] = hint
	}
	writeJSON(w, status, body)
}
