// Package server exposes the annotation API, the publish webhook, the sync
// status and the payload inbox over HTTP.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/teranos/redpen/am"
	"github.com/teranos/redpen/annotation"
	"github.com/teranos/redpen/errors"
	"github.com/teranos/redpen/inbox"
	"github.com/teranos/redpen/logger"
	"github.com/teranos/redpen/sitesync"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server timeouts
const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// SyncTrigger is the orchestrator surface the webhook and status handlers use.
type SyncTrigger interface {
	Trigger(ctx context.Context, reason string) (sitesync.Result, error)
	Status() sitesync.Status
}

// Deps are the components behind the HTTP surface. Sync may be nil when no
// content repository is configured; the webhook then answers 503.
type Deps struct {
	Annotations *annotation.Store
	Sync        SyncTrigger
	Inbox       *inbox.Inbox
}

// Server is the redpen HTTP server.
type Server struct {
	cfg     am.Config
	deps    Deps
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
	handler http.Handler

	mu         sync.Mutex
	httpServer *http.Server
}

// New builds a server and its routes. It does not start listening.
func New(cfg am.Config, deps Deps, log *zap.SugaredLogger) (*Server, error) {
	if deps.Annotations == nil {
		return nil, errors.New("annotation store is required")
	}
	if deps.Inbox == nil {
		return nil, errors.New("inbox is required")
	}
	if log == nil {
		log = logger.ComponentLogger("server")
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: log,
	}
	// Budget for unauthenticated webhook attempts; signed pushes bypass it
	if perMin := cfg.Sync.WebhookRatePerMinute; perMin > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(float64(perMin)/60.0), 1)
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}
