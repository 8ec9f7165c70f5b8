// Package types contains the JSON views served by the API and the CLI.
// Nil pointers render as null.
package types

import "github.com/okian/barbell/internal/domain/model"

// AttemptView is one attempt slot; an empty slot renders as null.
type AttemptView struct {
	ID     string       `json:"id"`
	Number int          `json:"attempt_num"`
	Weight *int         `json:"declared_weight"`
	Status model.Status `json:"status"`
}

// ResultEntry is an athlete's line in a weight class.
type ResultEntry struct {
	AthleteID   string         `json:"athlete_id"`
	Name        string         `json:"name"`
	Team        *string        `json:"team"`
	Gender      model.Gender   `json:"gender"`
	WeightClass string         `json:"weight_class"`
	LotNumber   *int           `json:"lot_number"`
	BestSnatch  *int           `json:"best_snatch"`
	BestCJ      *int           `json:"best_cj"`
	Total       *int           `json:"total"`
	SnatchRank  *int           `json:"snatch_rank"`
	CJRank      *int           `json:"cj_rank"`
	TotalRank   *int           `json:"total_rank"`
	Points      int            `json:"points"`
	Snatch      []*AttemptView `json:"snatch"`
	CleanJerk   []*AttemptView `json:"cj"`
}

// WeightClass groups the entries of one cohort in display order.
type WeightClass struct {
	Gender      string        `json:"gender"`
	WeightClass string        `json:"weight_class"`
	Athletes    []ResultEntry `json:"athletes"`
}

// Team is a team's aggregated score.
type Team struct {
	Team        string            `json:"team"`
	TotalPoints int               `json:"total_points"`
	Counted     []model.TeamEntry `json:"counted"`
	Entries     []model.TeamEntry `json:"entries"`
}

// Standings is the full results document.
type Standings struct {
	WeightClasses []WeightClass `json:"weight_classes"`
	Teams         []Team        `json:"teams"`
}

// FromStandings converts engine output into its JSON view. Empty lists
// render as [] rather than null.
func FromStandings(s model.Standings) Standings {
	return Standings{
		WeightClasses: FromWeightClasses(s.WeightClasses),
		Teams:         FromTeams(s.Teams),
	}
}

// FromWeightClasses converts cohort results.
func FromWeightClasses(in []model.WeightClassResult) []WeightClass {
	out := make([]WeightClass, 0, len(in))
	for _, wc := range in {
		entries := make([]ResultEntry, 0, len(wc.Athletes))
		for i := range wc.Athletes {
			entries = append(entries, FromResult(&wc.Athletes[i]))
		}
		out = append(out, WeightClass{
			Gender:      wc.Gender,
			WeightClass: wc.WeightClass,
			Athletes:    entries,
		})
	}
	return out
}

// FromTeams converts team scores.
func FromTeams(in []model.TeamScore) []Team {
	out := make([]Team, 0, len(in))
	for _, t := range in {
		out = append(out, Team{
			Team:        t.Team,
			TotalPoints: t.TotalPoints,
			Counted:     nonNil(t.Counted),
			Entries:     nonNil(t.Entries),
		})
	}
	return out
}

// FromResult converts one athlete's result.
func FromResult(r *model.AthleteResult) ResultEntry {
	return ResultEntry{
		AthleteID:   r.Athlete.ID,
		Name:        r.Athlete.Name,
		Team:        r.Athlete.Team,
		Gender:      r.Athlete.Gender,
		WeightClass: r.Athlete.WeightClass,
		LotNumber:   r.Athlete.LotNumber,
		BestSnatch:  r.BestSnatch,
		BestCJ:      r.BestCJ,
		Total:       r.Total,
		SnatchRank:  r.SnatchRank,
		CJRank:      r.CJRank,
		TotalRank:   r.TotalRank,
		Points:      r.Points,
		Snatch:      slots(r.SnatchAttempts),
		CleanJerk:   slots(r.CJAttempts),
	}
}

func slots(in [model.MaxAttempts]*model.Attempt) []*AttemptView {
	out := make([]*AttemptView, model.MaxAttempts)
	for i, a := range in {
		if a == nil {
			continue
		}
		out[i] = &AttemptView{
			ID:     a.ID,
			Number: a.AttemptNum,
			Weight: a.DeclaredWeight,
			Status: a.Status,
		}
	}
	return out
}

func nonNil(in []model.TeamEntry) []model.TeamEntry {
	if in == nil {
		return []model.TeamEntry{}
	}
	return in
}
