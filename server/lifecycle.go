package server

import (
	"context"
	"net/http"

	"github.com/teranos/redpen/errors"
	"github.com/teranos/redpen/logger"
)

// ListenAndServe serves on cfg.Server.Addr until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("HTTP server listening", logger.FieldAddress, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrapf(err, "failed to listen on %s", srv.Addr)
		}
		return nil
	case <-ctx.Done():
	}
	return s.Shutdown()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Infow("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown failed")
	}
	return nil
}
