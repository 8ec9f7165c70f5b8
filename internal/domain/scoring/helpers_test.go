package scoring_test

import (
	"time"

	"github.com/okian/barbell/internal/domain/model"
)

var base = time.Date(2026, 5, 10, 10, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }

func athlete(id string, gender model.Gender, class string) model.Athlete {
	return model.Athlete{ID: id, Name: "Athlete " + id, Gender: gender, WeightClass: class}
}

func onTeam(a model.Athlete, team string) model.Athlete {
	a.Team = strPtr(team)
	return a
}

// lift builds an attempt judged minute minutes after the session start.
func lift(athleteID string, d model.Discipline, num, weight int, status model.Status, minute int) model.Attempt {
	return model.Attempt{
		ID:             athleteID + "-" + string(d) + "-" + string(rune('0'+num)),
		AthleteID:      athleteID,
		Discipline:     d,
		AttemptNum:     num,
		DeclaredWeight: intPtr(weight),
		Status:         status,
		UpdatedAt:      base.Add(time.Duration(minute) * time.Minute),
	}
}

func find(results []model.WeightClassResult, athleteID string) *model.AthleteResult {
	for i := range results {
		for j := range results[i].Athletes {
			if results[i].Athletes[j].Athlete.ID == athleteID {
				return &results[i].Athletes[j]
			}
		}
	}
	return nil
}
