package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/okian/barbell/internal/domain/model"
	"github.com/okian/barbell/internal/domain/scoring"
	"github.com/okian/barbell/internal/domain/types"
	"github.com/okian/barbell/pkg/logger"
)

// Sentinel kinds for replay failures.
var (
	ErrUnhealthy = errors.New("service unhealthy")
	ErrMismatch  = errors.New("server standings differ from local computation")
)

const (
	maxSubmitRetries = 5
	retryBackoff     = 50 * time.Millisecond
	pollInterval     = 200 * time.Millisecond
)

// ReplayConfig configures a replay against a running service.
type ReplayConfig struct {
	BaseURL      string        // e.g. http://localhost:9080
	TournamentID string        // tournament to (re)create
	Workers      int           // concurrent submitters; <1 uses NumCPU
	Timeout      time.Duration // per-request timeout
	Settle       time.Duration // how long to wait for the server to converge
	// Engine configures the local computation the server is checked against.
	// It must match the server's points table and team size.
	Engine []scoring.Option
}

// Stats summarises a replay.
type Stats struct {
	Athletes  int
	Submitted int64
	Accepted  int64
	Duplicate int64
	Throttled int64 // 429 responses that were retried
	Failed    int64
	Duration  time.Duration
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type attemptRequest struct {
	SubmissionID   string `json:"submission_id"`
	AthleteID      string `json:"athlete_id"`
	Type           string `json:"type"`
	AttemptNum     int    `json:"attempt_num"`
	DeclaredWeight *int   `json:"declared_weight"`
	Status         string `json:"status"`
	UpdatedAt      string `json:"updated_at"`
}

type client struct {
	http *http.Client
	base string
}

func (c *client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, err
}

// Replay loads snap's athletes into the service, submits every attempt
// concurrently as a judgement, then waits until the server's standings
// match a local computation of snap.
func Replay(ctx context.Context, cfg ReplayConfig, snap model.Snapshot) (Stats, error) {
	log := logger.Get().Named("replay")
	start := time.Now()
	stats := Stats{Athletes: len(snap.Athletes)}
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 30 * time.Second
	}
	c := &client{http: &http.Client{Timeout: cfg.Timeout}, base: cfg.BaseURL}
	tournament := "/tournaments/" + url.PathEscape(cfg.TournamentID)

	// Step 1: check service health
	status, _, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return stats, fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}

	// Step 2: reset the tournament to the athletes only
	roster := model.Snapshot{Athletes: snap.Athletes, Attempts: []model.Attempt{}}
	status, body, err := c.do(ctx, http.MethodPost, tournament+"/snapshot", roster)
	if err != nil {
		return stats, fmt.Errorf("import roster: %w", err)
	}
	if status != http.StatusOK {
		return stats, fmt.Errorf("import roster: status %d: %s", status, body)
	}
	log.Info(ctx, "roster imported", logger.String("tournament", cfg.TournamentID), logger.Int("athletes", len(snap.Athletes)))

	// Step 3: submit judgements concurrently
	submit(ctx, c, tournament+"/attempts", cfg.Workers, snap.Attempts, &stats)
	log.Info(ctx, "judgements submitted",
		logger.Any("submitted", stats.Submitted),
		logger.Any("accepted", stats.Accepted),
		logger.Any("duplicate", stats.Duplicate),
		logger.Any("throttled", stats.Throttled),
		logger.Any("failed", stats.Failed),
	)

	// Step 4: wait for the server to converge on the local result
	want := summarize(types.FromStandings(scoring.New(cfg.Engine...).Compute(snap)))
	diff, err := converge(ctx, c, tournament+"/results", want, cfg.Settle)
	stats.Duration = time.Since(start)
	if err != nil {
		return stats, err
	}
	if diff != "" {
		return stats, fmt.Errorf("%w (-local +server):\n%s", ErrMismatch, diff)
	}
	log.Info(ctx, "server standings verified", logger.Duration("duration", stats.Duration))
	return stats, nil
}

func submit(ctx context.Context, c *client, path string, workers int, attempts []model.Attempt, stats *Stats) {
	jobs := make(chan model.Attempt, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range jobs {
				atomic.AddInt64(&stats.Submitted, 1)
				submitOne(ctx, c, path, a, stats)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, a := range attempts {
			select {
			case <-ctx.Done():
				return
			case jobs <- a:
			}
		}
	}()
	wg.Wait()
}

func submitOne(ctx context.Context, c *client, path string, a model.Attempt, stats *Stats) { //nolint:gocritic // hugeParam: attempts travel by value
	req := attemptRequest{
		SubmissionID:   a.ID,
		AthleteID:      a.AthleteID,
		Type:           string(a.Discipline),
		AttemptNum:     a.AttemptNum,
		DeclaredWeight: a.DeclaredWeight,
		Status:         string(a.Status),
	}
	if req.SubmissionID == "" {
		req.SubmissionID = a.Key().String() + "@" + a.UpdatedAt.Format(time.RFC3339Nano)
	}
	if !a.UpdatedAt.IsZero() {
		req.UpdatedAt = a.UpdatedAt.UTC().Format(time.RFC3339)
	}

	for try := 0; try <= maxSubmitRetries; try++ {
		status, body, err := c.do(ctx, http.MethodPost, path, req)
		if err != nil {
			atomic.AddInt64(&stats.Failed, 1)
			return
		}
		switch status {
		case http.StatusAccepted:
			atomic.AddInt64(&stats.Accepted, 1)
			return
		case http.StatusOK:
			var ack ackResponse
			if json.Unmarshal(body, &ack) == nil && ack.Duplicate {
				atomic.AddInt64(&stats.Duplicate, 1)
				return
			}
			atomic.AddInt64(&stats.Failed, 1)
			return
		case http.StatusTooManyRequests:
			atomic.AddInt64(&stats.Throttled, 1)
			select {
			case <-ctx.Done():
				atomic.AddInt64(&stats.Failed, 1)
				return
			case <-time.After(retryBackoff << try):
			}
		default:
			atomic.AddInt64(&stats.Failed, 1)
			return
		}
	}
	atomic.AddInt64(&stats.Failed, 1)
}

// placing is the part of a result line that must agree between the local
// computation and the server.
type placing struct {
	Total     *int
	TotalRank *int
	Points    int
}

type summary struct {
	Athletes map[string]placing
	Teams    map[string]int
}

func summarize(s types.Standings) summary {
	out := summary{Athletes: map[string]placing{}, Teams: map[string]int{}}
	for _, wc := range s.WeightClasses {
		for _, e := range wc.Athletes {
			out.Athletes[e.AthleteID] = placing{Total: e.Total, TotalRank: e.TotalRank, Points: e.Points}
		}
	}
	for _, t := range s.Teams {
		out.Teams[t.Team] = t.TotalPoints
	}
	return out
}

func converge(ctx context.Context, c *client, path string, want summary, settle time.Duration) (string, error) {
	deadline := time.Now().Add(settle)
	var diff string
	for {
		status, body, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return "", fmt.Errorf("get results: %w", err)
		}
		if status != http.StatusOK {
			return "", fmt.Errorf("get results: status %d: %s", status, body)
		}
		var got types.Standings
		if err := json.Unmarshal(body, &got); err != nil {
			return "", fmt.Errorf("decode results: %w", err)
		}
		diff = cmp.Diff(want, summarize(got))
		if diff == "" || time.Now().After(deadline) {
			return diff, nil
		}
		select {
		case <-ctx.Done():
			return diff, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
