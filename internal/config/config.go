// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env on top.
// - External errors must be wrapped with this package's sentinel errors.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// EventQueueSize bounds the in-memory judging queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of judging workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the number of remembered submission ids.
	DedupeSize int `koanf:"dedupe_size"`

	// PointsTable lists the points awarded to ranks 1, 2, ... in order.
	PointsTable []int `koanf:"points_table"`

	// TeamSize is how many of a team's best point scores are summed.
	TeamSize int `koanf:"team_size"`

	// UnknownLabel replaces an empty gender or weight class when grouping.
	UnknownLabel string `koanf:"unknown_label"`

	// CacheSize bounds the memoized standings kept per tournament.
	CacheSize int `koanf:"cache_size"`

	// RateLimitRPS and RateLimitBurst throttle judging submissions.
	// A non-positive RPS disables the limiter.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// Export markers for attempt cells.
	SuccessMark string `koanf:"success_mark"`
	FailMark    string `koanf:"fail_mark"`
	PassMark    string `koanf:"pass_mark"`

	// GenderLabels renders stored genders in exports, e.g. male: "Men".
	GenderLabels map[string]string `koanf:"gender_labels"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		ShutdownTimeout: 10 * time.Second,
		EventQueueSize:  10_000,
		WorkerCount:     runtime.NumCPU(),
		DedupeSize:      50_000,
		PointsTable:     []int{8, 7, 6, 5, 4, 3, 2, 1},
		TeamSize:        5,
		UnknownLabel:    "unknown",
		CacheSize:       4,
		RateLimitRPS:    50,
		RateLimitBurst:  100,
		SuccessMark:     "○",
		FailMark:        "×",
		PassMark:        "PASS",
		GenderLabels: map[string]string{
			"male":   "Men",
			"female": "Women",
		},
	}
}
