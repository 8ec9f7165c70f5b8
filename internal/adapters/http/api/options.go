package api

import "golang.org/x/time/rate"

// Option configures a Server.
type Option func(*Server)

// WithRateLimit throttles judging submissions per client address to rps
// requests per second with the given burst. A non-positive rps disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = NewIPRateLimiter(rate.Limit(rps), burst)
	}
}
