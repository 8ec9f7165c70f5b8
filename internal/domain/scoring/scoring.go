// Package scoring computes weightlifting standings from judged attempts.
//
// The engine is a pure function of its input snapshot: it performs no I/O,
// never mutates its arguments and returns identical output for identical
// input, so it is safe to call concurrently and on every poll tick.
package scoring

import (
	"slices"

	"github.com/okian/barbell/internal/domain/model"
)

// Default engine configuration constants.
const (
	defaultTeamSize     = 5
	defaultUnknownLabel = "unknown"
)

// defaultPointsTable maps total rank 1..8 to points. Ranks beyond the table score 0.
var defaultPointsTable = []int{8, 7, 6, 5, 4, 3, 2, 1} //nolint:gochecknoglobals // read-only defaults

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPointsTable sets the rank-to-points table. The table must be
// non-increasing and non-negative; anything else is ignored.
func WithPointsTable(table []int) Option {
	return func(e *Engine) {
		if len(table) == 0 {
			return
		}
		for i, p := range table {
			if p < 0 || (i > 0 && p > table[i-1]) {
				return
			}
		}
		e.pointsTable = slices.Clone(table)
	}
}

// WithTeamSize sets how many of a team's best awards count towards its score.
func WithTeamSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.teamSize = n
		}
	}
}

// WithUnknownLabel sets the cohort label used for a missing gender or weight class.
func WithUnknownLabel(label string) Option {
	return func(e *Engine) {
		if label != "" {
			e.unknownLabel = label
		}
	}
}

// Engine turns athlete and attempt snapshots into standings.
type Engine struct {
	pointsTable  []int
	teamSize     int
	unknownLabel string
}

// New creates an engine with the IWF-style defaults.
func New(opts ...Option) *Engine {
	e := &Engine{
		pointsTable:  slices.Clone(defaultPointsTable),
		teamSize:     defaultTeamSize,
		unknownLabel: defaultUnknownLabel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TeamSize returns the number of awards counted per team.
func (e *Engine) TeamSize() int { return e.teamSize }

// Compute runs the whole pipeline: grouping, per-cohort ranking and team
// aggregation.
func (e *Engine) Compute(s model.Snapshot) model.Standings {
	classes := e.IndividualResults(s.Athletes, s.Attempts)
	return model.Standings{
		WeightClasses: classes,
		Teams:         e.TeamScores(classes),
	}
}

// IndividualResults groups athletes into cohorts, ranks each cohort and
// returns the cohorts in display order.
func (e *Engine) IndividualResults(athletes []model.Athlete, attempts []model.Attempt) []model.WeightClassResult {
	slots := mapAttempts(attempts)

	var order []model.CohortKey
	groups := make(map[model.CohortKey][]model.AthleteResult)
	for i := range athletes {
		key := e.cohortKey(&athletes[i])
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], newResult(athletes[i], slots[athletes[i].ID]))
	}

	out := make([]model.WeightClassResult, 0, len(order))
	for _, key := range order {
		members := groups[key]
		e.rankCohort(members)
		out = append(out, model.WeightClassResult{CohortKey: key, Athletes: members})
	}
	slices.SortStableFunc(out, compareCohorts)
	return out
}

// Points returns the award for a total rank; nil or out-of-table ranks score 0.
func (e *Engine) Points(rank *int) int {
	if rank == nil || *rank < 1 || *rank > len(e.pointsTable) {
		return 0
	}
	return e.pointsTable[*rank-1]
}

// attemptSlots holds one athlete's attempts indexed by attempt number - 1.
type attemptSlots struct {
	snatch [model.MaxAttempts]*model.Attempt
	cj     [model.MaxAttempts]*model.Attempt
}

// mapAttempts flattens attempts into per-athlete slots. Attempts with an
// unknown discipline or a number outside 1..3 are ignored; when two share a
// natural key the later one wins.
func mapAttempts(attempts []model.Attempt) map[string]attemptSlots {
	out := make(map[string]attemptSlots)
	for _, a := range attempts {
		if a.AttemptNum < 1 || a.AttemptNum > model.MaxAttempts {
			continue
		}
		s := out[a.AthleteID]
		switch a.Discipline {
		case model.Snatch:
			s.snatch[a.AttemptNum-1] = &a
		case model.CleanJerk:
			s.cj[a.AttemptNum-1] = &a
		default:
			continue
		}
		out[a.AthleteID] = s
	}
	return out
}

func newResult(a model.Athlete, s attemptSlots) model.AthleteResult {
	r := model.AthleteResult{
		Athlete:        a,
		SnatchAttempts: s.snatch,
		CJAttempts:     s.cj,
	}
	if l, ok := BestLift(s.snatch); ok {
		r.BestSnatch = intPtr(l.Weight)
	}
	if l, ok := BestLift(s.cj); ok {
		r.BestCJ = intPtr(l.Weight)
	}
	if r.BestSnatch != nil && r.BestCJ != nil {
		r.Total = intPtr(*r.BestSnatch + *r.BestCJ)
	}
	return r
}

func intPtr(v int) *int { return &v }
