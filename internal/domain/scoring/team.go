package scoring

import (
	"cmp"
	"slices"
	"strings"

	"github.com/okian/barbell/internal/domain/model"
)

// TeamScores rolls individual awards up into team standings. Only athletes
// with a team and at least one point contribute. Each team's entries are
// sorted by points, descending, and the first TeamSize of them are summed;
// ties in points keep their cohort order. Teams are ordered by score, then name.
func (e *Engine) TeamScores(results []model.WeightClassResult) []model.TeamScore {
	var order []string
	entries := make(map[string][]model.TeamEntry)
	for _, wc := range results {
		for i := range wc.Athletes {
			r := &wc.Athletes[i]
			team := r.Athlete.TeamName()
			if team == "" || r.Points <= 0 {
				continue
			}
			if _, ok := entries[team]; !ok {
				order = append(order, team)
			}
			entries[team] = append(entries[team], model.TeamEntry{
				AthleteID:   r.Athlete.ID,
				Name:        r.Athlete.Name,
				Gender:      wc.Gender,
				WeightClass: wc.WeightClass,
				Points:      r.Points,
			})
		}
	}

	scores := make([]model.TeamScore, 0, len(order))
	for _, team := range order {
		all := entries[team]
		slices.SortStableFunc(all, func(a, b model.TeamEntry) int {
			return cmp.Compare(b.Points, a.Points)
		})
		counted := slices.Clone(all[:min(e.teamSize, len(all))])
		total := 0
		for _, c := range counted {
			total += c.Points
		}
		scores = append(scores, model.TeamScore{
			Team:        team,
			TotalPoints: total,
			Entries:     all,
			Counted:     counted,
		})
	}

	slices.SortStableFunc(scores, func(a, b model.TeamScore) int {
		if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
			return c
		}
		return strings.Compare(a.Team, b.Team)
	})
	return scores
}
