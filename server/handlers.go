package server

// Operational handlers:
// - Health checks (HandleHealth)
// - Sync state (HandleSyncStatus)
// - Raw payload inbox (HandleStore)

import (
	"net/http"

	"github.com/teranos/redpen/logger"
	"github.com/teranos/redpen/version"
)

// HandleHealth serves health check endpoint with version info
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.Get()
	health := map[string]interface{}{
		"status":     "ok",
		"version":    versionInfo.Version,
		"commit":     versionInfo.CommitHash,
		"build_time": versionInfo.BuildTime,
		"sync":       s.deps.Sync != nil,
	}
	writeJSON(w, http.StatusOK, health)
}

// HandleSyncStatus returns the orchestrator snapshot
func (s *Server) HandleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sync == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Sync.Status())
}

// HandleStore saves an arbitrary JSON object to the inbox.
func (s *Server) HandleStore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)

	var payload interface{}
	if !readJSON(w, r, &payload) {
		return
	}
	body, ok := payload.(map[string]interface{})
	if !ok {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}

	path, err := s.deps.Inbox.Save(body, r.RemoteAddr)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.With(logger.FieldsFromContext(r.Context())...).Debugw("Payload stored", logger.FieldPath, path)
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored", "path": path})
}
