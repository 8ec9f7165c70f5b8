package repository

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/barbell/internal/domain/dedupe"
	"github.com/okian/barbell/internal/domain/model"
	"github.com/okian/barbell/pkg/metrics"
)

// athleteRecord is a registered athlete. Deleted athletes stay in the
// registration order so a re-registration keeps history out of snapshots.
type athleteRecord struct {
	athlete model.Athlete
	deleted bool
}

type tournament struct {
	order    []string // athlete ids in registration order
	athletes map[string]*athleteRecord
	attempts map[model.AttemptKey]model.Attempt
}

func newTournament() *tournament {
	return &tournament{
		athletes: make(map[string]*athleteRecord),
		attempts: make(map[model.AttemptKey]model.Attempt),
	}
}

func (t *tournament) live(id string) (*athleteRecord, bool) {
	rec, ok := t.athletes[id]
	if !ok || rec.deleted {
		return nil, false
	}
	return rec, true
}

// MemoryStore is an in-memory Store guarded by a single RWMutex.
type MemoryStore struct {
	mu          sync.RWMutex
	tournaments map[string]*tournament

	now   func() time.Time
	newID func() string

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	stopOnce              sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs a store and starts its metrics updater, which
// runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		tournaments:           make(map[string]*tournament),
		now:                   time.Now,
		newID:                 uuid.NewString,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.startMetricsUpdater(ctx)
	return s
}

// startMetricsUpdater periodically publishes store gauges.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.publishGauges(ctx)
			}
		}
	}()
}

func (s *MemoryStore) publishGauges(ctx context.Context) {
	metrics.UpdateAthletesTotal(s.Count(ctx))
	metrics.UpdateTournamentsTotal(len(s.Tournaments(ctx)))
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func observeUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

// prepareAthlete fills defaults and checks required fields.
func (s *MemoryStore) prepareAthlete(tournamentID string, a model.Athlete) (model.Athlete, error) {
	if a.Name == "" {
		return a, fmt.Errorf("%w: missing name", ErrInvalidAthlete)
	}
	if a.Gender != "" && !a.Gender.Valid() {
		return a, fmt.Errorf("%w: gender %q", ErrInvalidAthlete, a.Gender)
	}
	if a.ID == "" {
		a.ID = s.newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	a.TournamentID = tournamentID
	return a, nil
}

// AddAthlete registers a in a.TournamentID.
func (s *MemoryStore) AddAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error) {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return model.Athlete{}, err
	}

	a, err := s.prepareAthlete(a.TournamentID, a)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_athlete")
		return model.Athlete{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[a.TournamentID]
	if !ok {
		t = newTournament()
		s.tournaments[a.TournamentID] = t
	}
	if rec, exists := t.athletes[a.ID]; exists {
		if !rec.deleted {
			metrics.RecordErrorByComponent("repository", "duplicate_athlete")
			return model.Athlete{}, fmt.Errorf("%w: %s", ErrDuplicateAthlete, a.ID)
		}
		// Re-registration starts from a clean slate.
		s.dropAttempts(t, a.ID)
		rec.athlete, rec.deleted = a, false
		return a, nil
	}
	t.order = append(t.order, a.ID)
	t.athletes[a.ID] = &athleteRecord{athlete: a}
	return a, nil
}

func (s *MemoryStore) dropAttempts(t *tournament, athleteID string) {
	maps.DeleteFunc(t.attempts, func(k model.AttemptKey, _ model.Attempt) bool {
		return k.AthleteID == athleteID
	})
}

// DeleteAthlete soft-deletes an athlete.
func (s *MemoryStore) DeleteAthlete(ctx context.Context, tournamentID, athleteID string) error {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[tournamentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, athleteID)
	}
	rec, ok := t.live(athleteID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, athleteID)
	}
	rec.deleted = true
	return nil
}

// Athletes returns live athletes in registration order.
func (s *MemoryStore) Athletes(ctx context.Context, tournamentID string) ([]model.Athlete, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.athletesLocked(tournamentID), nil
}

func (s *MemoryStore) athletesLocked(tournamentID string) []model.Athlete {
	t, ok := s.tournaments[tournamentID]
	if !ok {
		return []model.Athlete{}
	}
	out := make([]model.Athlete, 0, len(t.order))
	for _, id := range t.order {
		if rec, ok := t.live(id); ok {
			out = append(out, copyAthlete(rec.athlete))
		}
	}
	return out
}

// UpsertAttempt stores a when it is not older than the stored attempt with
// the same natural key. The service stamps judgements on receipt; a zero
// UpdatedAt from a direct caller is stamped with the store clock.
func (s *MemoryStore) UpsertAttempt(ctx context.Context, tournamentID string, a model.Attempt) (bool, error) {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := a.Validate(); err != nil {
		metrics.RecordErrorByComponent("repository", "invalid_attempt")
		return false, fmt.Errorf("%w: %w", ErrInvalidAttempt, err)
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[tournamentID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, a.AthleteID)
	}
	if _, ok := t.live(a.AthleteID); !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, a.AthleteID)
	}

	key := a.Key()
	if prev, exists := t.attempts[key]; exists {
		if prev.UpdatedAt.After(a.UpdatedAt) {
			return false, nil
		}
		if a.ID == "" {
			a.ID = prev.ID
		}
	}
	if a.ID == "" {
		a.ID = s.newID()
	}
	t.attempts[key] = a
	return true, nil
}

// Snapshot copies the live athletes and their attempts. Attempts are ordered
// by natural key. An unknown tournament yields an empty snapshot.
func (s *MemoryStore) Snapshot(ctx context.Context, tournamentID string) (model.Snapshot, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := model.Snapshot{
		Athletes: s.athletesLocked(tournamentID),
		Attempts: []model.Attempt{},
	}
	t, ok := s.tournaments[tournamentID]
	if !ok {
		return snap, nil
	}
	for key, a := range t.attempts {
		if _, live := t.live(key.AthleteID); live {
			snap.Attempts = append(snap.Attempts, copyAttempt(a))
		}
	}
	slices.SortFunc(snap.Attempts, compareAttemptKeys)
	return snap, nil
}

func compareAttemptKeys(a, b model.Attempt) int {
	return cmp.Or(
		cmp.Compare(a.AthleteID, b.AthleteID),
		cmp.Compare(a.Discipline, b.Discipline),
		cmp.Compare(a.AttemptNum, b.AttemptNum),
	)
}

func copyAttempt(a model.Attempt) model.Attempt {
	if a.DeclaredWeight != nil {
		w := *a.DeclaredWeight
		a.DeclaredWeight = &w
	}
	return a
}

func copyAthlete(a model.Athlete) model.Athlete {
	if a.Team != nil {
		team := *a.Team
		a.Team = &team
	}
	if a.LotNumber != nil {
		lot := *a.LotNumber
		a.LotNumber = &lot
	}
	return a
}

// Import replaces the tournament with snap. Nothing changes on error.
func (s *MemoryStore) Import(ctx context.Context, tournamentID string, snap model.Snapshot) error {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := dedupe.CheckAttempts(snap.Attempts); err != nil {
		metrics.RecordErrorByComponent("repository", "duplicate_attempt")
		return err
	}

	t := newTournament()
	for _, a := range snap.Athletes {
		a, err := s.prepareAthlete(tournamentID, copyAthlete(a))
		if err != nil {
			return err
		}
		if _, exists := t.athletes[a.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateAthlete, a.ID)
		}
		t.order = append(t.order, a.ID)
		t.athletes[a.ID] = &athleteRecord{athlete: a}
	}
	for _, a := range snap.Attempts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidAttempt, a.Key(), err)
		}
		if _, ok := t.athletes[a.AthleteID]; !ok {
			return fmt.Errorf("%w: attempt %s", ErrNotFound, a.Key())
		}
		a = copyAttempt(a)
		if a.ID == "" {
			a.ID = s.newID()
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = s.now()
		}
		t.attempts[a.Key()] = a
	}

	s.mu.Lock()
	s.tournaments[tournamentID] = t
	s.mu.Unlock()
	return nil
}

// Count returns the number of live athletes across all tournaments.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.tournaments {
		for _, rec := range t.athletes {
			if !rec.deleted {
				n++
			}
		}
	}
	return n
}

// Tournaments returns the known tournament ids sorted.
func (s *MemoryStore) Tournaments(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.tournaments))
}
