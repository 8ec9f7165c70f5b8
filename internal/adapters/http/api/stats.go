package api

import (
	"maps"
	"net/http"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
	limiter       *IPRateLimiter
}

// NewStatsHandler creates a stats handler. limiter may be nil.
func NewStatsHandler(statsProvider StatsProvider, limiter *IPRateLimiter) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, limiter: limiter}
}

// HandleStats handles GET /stats: the service stats plus the number of
// clients the rate limiter is tracking.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	stats := maps.Clone(h.statsProvider.GetStats())
	if stats == nil {
		stats = map[string]interface{}{}
	}
	if h.limiter != nil {
		stats["rateLimitedClients"] = h.limiter.Len()
	}
	writeJSON(w, http.StatusOK, stats)
}
