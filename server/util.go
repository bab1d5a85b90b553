package server

import "strings"

// checkOrigin reports whether origin is in the allow list
func (s *Server) checkOrigin(origin string) bool {
	origin = strings.TrimSuffix(origin, "/")
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if origin == strings.TrimSuffix(allowed, "/") {
			return true
		}
	}
	return false
}
