package api

import "github.com/questline/scoreboard/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets a logger for request diagnostics.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithMaxLimit caps the leaderboard page size a client may request.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}
