// Package service wires the store, judging pipeline and results engine into
// the operations the HTTP API and CLI depend on.
package service

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	eventqueue "github.com/okian/barbell/internal/adapters/mq/queue"
	workerpool "github.com/okian/barbell/internal/adapters/mq/worker"
	repository "github.com/okian/barbell/internal/adapters/repository"
	"github.com/okian/barbell/internal/domain/dedupe"
	"github.com/okian/barbell/internal/domain/model"
	"github.com/okian/barbell/internal/domain/scoring"
	"github.com/okian/barbell/internal/export"
	"github.com/okian/barbell/pkg/logger"
	"github.com/okian/barbell/pkg/metrics"
)

// Export formats accepted by Service.Export.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Service implements the API dependencies for the results system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    *repository.MemoryStore
	deduper  dedupe.Deduper
	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool
	engine   *scoring.Engine
	exporter *export.Exporter
	cache    *standingsCache

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int
	cacheSize   int
	engineOpts  []scoring.Option
	exportOpts  []export.Option
	storeOpts   []repository.Option

	// State
	started bool
	cancel  context.CancelFunc

	// now stamps judgements received without updated_at; lastStamp keeps
	// the stamps strictly increasing in arrival order.
	now       func() time.Time
	stampMu   sync.Mutex
	lastStamp time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of judging workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the judging queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithCacheSize sets how many computed standings are kept per tournament.
// Zero disables memoization.
func WithCacheSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.cacheSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used to stamp judgements that arrive
// without updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEngineOptions configures the results engine (points table, team size,
// unknown label).
func WithEngineOptions(opts ...scoring.Option) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithExportOptions configures spreadsheet rendering.
func WithExportOptions(opts ...export.Option) Option {
	return func(s *Service) {
		s.exportOpts = append(s.exportOpts, opts...)
	}
}

// WithStoreOptions configures the tournament store.
func WithStoreOptions(opts ...repository.Option) Option {
	return func(s *Service) {
		s.storeOpts = append(s.storeOpts, opts...)
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  50_000,
		cacheSize:   4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = scoring.New(s.engineOpts...)
	s.exporter = export.New(s.exportOpts...)
	return s
}

// Start initializes and starts the service components. The workers outlive
// ctx; only Stop ends them, after the queue has drained.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting results service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.store = repository.NewMemoryStore(runCtx, s.storeOpts...)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.cache = newStandingsCache(s.cacheSize)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store, workerpool.WithFailureHandler(s.rejected(s.deduper)))
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "results service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("cacheSize", s.cacheSize),
		logger.Int("teamSize", s.engine.TeamSize()),
	)
	return nil
}

// rejected forgets the submission id of a judgement the workers could not
// apply, so the client can resubmit it once the cause (usually an
// unregistered athlete) is fixed.
func (s *Service) rejected(d dedupe.Deduper) workerpool.FailureHandler {
	return func(ctx context.Context, e model.JudgingEvent, err error) { //nolint:gocritic // hugeParam: events travel by value
		d.Unrecord(ctx, e.DedupeKey())
		s.logger.Warn(ctx, "judgement rejected",
			logger.String("tournament", e.TournamentID),
			logger.String("submission", e.SubmissionID),
			logger.String("attempt", e.Attempt.Key().String()),
			logger.Error(err),
		)
	}
}

// Stop drains queued judgements, then closes the store. Judgements still
// queued when ctx expires are lost.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping results service...")

	var drainErr error
	if s.pool != nil {
		drainErr = s.pool.Shutdown(ctx)
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.started = false
	if drainErr != nil {
		s.logger.Warn(ctx, "results service stopped before the queue drained", logger.Error(drainErr))
		return fmt.Errorf("stop service: %w", drainErr)
	}
	s.logger.Info(ctx, "results service stopped")
	return nil
}

// components are the parts Start replaces; callers take them together
// under the lock so a concurrent restart cannot mix generations.
type components struct {
	store   *repository.MemoryStore
	deduper dedupe.Deduper
	queue   *eventqueue.InMemoryQueue
	cache   *standingsCache
}

// running returns the live components when the service is started.
func (s *Service) running() (components, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return components{}, ErrNotStarted
	}
	return components{store: s.store, deduper: s.deduper, queue: s.queue, cache: s.cache}, nil
}

// RegisterAthlete adds an athlete to its tournament.
func (s *Service) RegisterAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error) {
	c, err := s.running()
	if err != nil {
		return model.Athlete{}, err
	}
	out, err := c.store.AddAthlete(ctx, a)
	if err != nil {
		return model.Athlete{}, fmt.Errorf("register athlete: %w", err)
	}
	s.logger.Debug(ctx, "athlete registered",
		logger.String("tournament", out.TournamentID),
		logger.String("athlete", out.ID),
	)
	return out, nil
}

// RemoveAthlete withdraws an athlete; its attempts no longer count.
func (s *Service) RemoveAthlete(ctx context.Context, tournamentID, athleteID string) error {
	c, err := s.running()
	if err != nil {
		return err
	}
	if err := c.store.DeleteAthlete(ctx, tournamentID, athleteID); err != nil {
		return fmt.Errorf("remove athlete: %w", err)
	}
	return nil
}

// Athletes lists a tournament's athletes in registration order.
func (s *Service) Athletes(ctx context.Context, tournamentID string) ([]model.Athlete, error) {
	c, err := s.running()
	if err != nil {
		return nil, err
	}
	return c.store.Athletes(ctx, tournamentID)
}

// Import replaces a tournament's athletes and attempts.
func (s *Service) Import(ctx context.Context, tournamentID string, snap model.Snapshot) error {
	c, err := s.running()
	if err != nil {
		return err
	}
	if err := c.store.Import(ctx, tournamentID, snap); err != nil {
		return fmt.Errorf("import tournament %s: %w", tournamentID, err)
	}
	c.cache.drop(tournamentID)
	s.logger.Info(ctx, "tournament imported",
		logger.String("tournament", tournamentID),
		logger.Int("athletes", len(snap.Athletes)),
		logger.Int("attempts", len(snap.Attempts)),
	)
	return nil
}

func validateSubmission(e *model.JudgingEvent) error {
	switch {
	case strings.TrimSpace(e.SubmissionID) == "":
		return fmt.Errorf("%w: missing submission_id", ErrInvalidSubmission)
	case strings.TrimSpace(e.TournamentID) == "":
		return fmt.Errorf("%w: missing tournament_id", ErrInvalidSubmission)
	}
	if err := e.Attempt.Validate(); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrInvalidAttempt, err)
	}
	return nil
}

// stamp sets UpdatedAt on a judgement received without one. Stamps follow
// arrival order even when the clock does not advance between calls.
func (s *Service) stamp(e *model.JudgingEvent) {
	if !e.Attempt.UpdatedAt.IsZero() {
		return
	}
	s.stampMu.Lock()
	defer s.stampMu.Unlock()
	at := s.now()
	if !at.After(s.lastStamp) {
		at = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = at
	e.Attempt.UpdatedAt = at
}

// SubmitJudging accepts a judgement for asynchronous application. It returns
// true when the submission id was already accepted for the tournament.
// Enqueue failures (queue.ErrFull, queue.ErrClosed) forget the id so the
// client can retry.
func (s *Service) SubmitJudging(ctx context.Context, e model.JudgingEvent) (bool, error) { //nolint:gocritic // hugeParam: events travel by value
	c, err := s.running()
	if err != nil {
		return false, err
	}
	if err := validateSubmission(&e); err != nil {
		return false, err
	}
	s.stamp(&e)

	key := e.DedupeKey()
	if c.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate submission", logger.String("submission", key))
		return true, nil
	}
	if err := c.queue.Enqueue(ctx, e); err != nil {
		c.deduper.Unrecord(ctx, key)
		return false, fmt.Errorf("submit judging: %w", err)
	}
	return false, nil
}

// ApplyJudging writes a judgement synchronously, bypassing the queue but not
// the submission deduper.
func (s *Service) ApplyJudging(ctx context.Context, e model.JudgingEvent) (model.Outcome, error) { //nolint:gocritic // hugeParam: events travel by value
	c, err := s.running()
	if err != nil {
		return "", err
	}
	if err := validateSubmission(&e); err != nil {
		return "", err
	}
	s.stamp(&e)

	key := e.DedupeKey()
	if c.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordSubmissionDuplicate()
		return model.OutcomeDuplicate, nil
	}
	applied, err := workerpool.Apply(ctx, c.store, e)
	if err != nil {
		c.deduper.Unrecord(ctx, key)
		return "", fmt.Errorf("apply judging: %w", err)
	}
	if !applied {
		return model.OutcomeStale, nil
	}
	return model.OutcomeApplied, nil
}

// Standings computes a tournament's results. Identical tournament state is
// served from the cache; the returned value must be treated as read-only.
func (s *Service) Standings(ctx context.Context, tournamentID string) (model.Standings, error) {
	c, err := s.running()
	if err != nil {
		return model.Standings{}, err
	}
	snap, err := c.store.Snapshot(ctx, tournamentID)
	if err != nil {
		return model.Standings{}, fmt.Errorf("snapshot %s: %w", tournamentID, err)
	}

	hash, err := snapshotHash(snap)
	if err != nil {
		s.logger.Warn(ctx, "snapshot hash failed; computing uncached", logger.Error(err))
		return s.compute(snap), nil
	}
	if cached, ok := c.cache.get(tournamentID, hash); ok {
		metrics.RecordStandingsCacheHit()
		return cached, nil
	}
	metrics.RecordStandingsCacheMiss()

	out := s.compute(snap)
	c.cache.put(tournamentID, hash, out)
	return out, nil
}

func (s *Service) compute(snap model.Snapshot) model.Standings {
	start := time.Now()
	out := s.engine.Compute(snap)
	metrics.RecordStandingsComputed(float64(time.Since(start).Microseconds())/1000, len(out.WeightClasses))
	return out
}

// Export writes the tournament's results as a spreadsheet in format.
func (s *Service) Export(ctx context.Context, tournamentID, format string, w io.Writer) error {
	if format != FormatCSV && format != FormatXLSX {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	standings, err := s.Standings(ctx, tournamentID)
	if err != nil {
		return err
	}
	rows := s.exporter.Rows(standings)
	if format == FormatCSV {
		err = export.WriteCSV(w, rows)
	} else {
		err = export.WriteXLSX(w, rows)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}
	metrics.RecordExport(format)
	return nil
}

// TeamChart renders the tournament's team totals as a PNG.
func (s *Service) TeamChart(ctx context.Context, tournamentID string) ([]byte, error) {
	standings, err := s.Standings(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	png, err := export.TeamChart(standings.Teams)
	if err != nil {
		return nil, fmt.Errorf("team chart: %w", err)
	}
	metrics.RecordExport("png")
	return png, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"cacheSize":   s.cacheSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		athletes := s.store.Count(ctx)
		tournaments := s.store.Tournaments(ctx)

		stats["queueLength"] = queueLen
		stats["totalAthletes"] = athletes
		stats["tournaments"] = tournaments
		stats["seenSubmissions"] = s.deduper.Size()
		stats["cachedStandings"] = s.cache.len()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateAthletesTotal(athletes)
		metrics.UpdateTournamentsTotal(len(tournaments))
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}
