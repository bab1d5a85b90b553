package server

import (
	"net/http"

	"github.com/teranos/redpen/logger"
	"github.com/teranos/redpen/sitesync"
	"github.com/teranos/redpen/webhook"
)

// HandleWebhook authenticates a push notification and runs a sync+publish
// cycle, or queues one if a cycle is already running.
//
// Nothing touches the repository or the file system before the signature
// has been verified.
func (s *Server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	repoName := r.PathValue("repoName")

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	log := s.logger.With(logger.FieldsFromContext(r.Context())...)
	if !webhook.Verify(body, r.Header.Get(webhook.SignatureHeader), s.cfg.Sync.WebhookSecret) {
		// Only failed verifications spend the limiter budget, so forged
		// traffic can never delay a signed push.
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "too many webhook requests")
			return
		}
		log.Warnw("Webhook rejected: signature verification failed",
			logger.FieldRemoteAddr, r.RemoteAddr,
			"hook", repoName,
		)
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if hook := s.cfg.Sync.HookName; hook != "" && repoName != "" && repoName != hook {
		writeError(w, http.StatusNotFound, "unknown hook")
		return
	}

	event := r.Header.Get(webhook.EventHeader)
	if !webhook.IsPushEvent(event) {
		log.Infow("Webhook ignored", logger.FieldEvent, event)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "ignored"})
		return
	}

	if s.deps.Sync == nil {
		writeError(w, http.StatusServiceUnavailable, "content sync is not configured")
		return
	}

	res, err := s.deps.Sync.Trigger(r.Context(), "webhook")
	switch res.Outcome {
	case sitesync.OutcomeQueued:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	case sitesync.OutcomePublished:
		writeJSON(w, http.StatusOK, map[string]string{"status": "published", "commit": res.Commit})
	default:
		msg := "cycle failed"
		if err != nil {
			msg = err.Error()
		}
		log.Errorw("Webhook cycle failed", logger.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg, "state": "failed"})
	}
}
