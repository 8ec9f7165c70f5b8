// Package simulate generates fake weightlifting meets and replays them
// against a running results service.
package simulate

import (
	"fmt"
	"math"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/okian/barbell/internal/domain/model"
	"github.com/okian/barbell/internal/domain/scoring"
)

// Outcome probabilities for a generated attempt.
const (
	successRate = 0.65
	passRate    = 0.05

	// unteamedRate is the share of athletes entered without a team.
	unteamedRate = 0.1

	// Openers scale with bodyweight; the jerk opener is ~22% over the snatch.
	snatchPerKg  = 1.25
	cjOverSnatch = 1.22
	minOpener    = 30
)

// namespace seeds deterministic ids for generated entities.
var namespace = uuid.MustParse("8f1d7a52-5c2e-4c0b-9a59-6f2b8f0b4b11") //nolint:gochecknoglobals // constant namespace

// MeetConfig describes the meet to generate.
type MeetConfig struct {
	Athletes int       // number of athletes
	Teams    int       // number of teams; 0 leaves everyone unteamed
	Seed     uint64    // equal seeds produce equal meets
	Start    time.Time // time of the first judgement
	// Progress is the share of attempts already judged, in [0,1]. The rest
	// are pending with a declared weight.
	Progress float64
}

// Generate builds a complete meet snapshot from cfg.
func Generate(cfg MeetConfig) model.Snapshot {
	f := gofakeit.New(cfg.Seed)
	if cfg.Start.IsZero() {
		cfg.Start = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	}
	progress := cfg.Progress
	if progress <= 0 || progress > 1 {
		progress = 1
	}

	teams := make([]string, cfg.Teams)
	for i := range teams {
		teams[i] = fmt.Sprintf("%s %s", f.City(), f.RandomString([]string{"Barbell", "Weightlifting", "Athletic", "Strength"}))
	}

	lots := make([]int, cfg.Athletes)
	for i := range lots {
		lots[i] = i + 1
	}
	f.ShuffleInts(lots)

	snap := model.Snapshot{
		Athletes: make([]model.Athlete, 0, cfg.Athletes),
		Attempts: make([]model.Attempt, 0, cfg.Athletes*2*model.MaxAttempts),
	}
	clock := cfg.Start
	for i := 0; i < cfg.Athletes; i++ {
		gender := model.GenderMale
		if f.Bool() {
			gender = model.GenderFemale
		}
		classes := model.WeightClasses(gender)
		class := classes[f.Number(0, len(classes)-1)]

		a := model.Athlete{
			ID:          uuid.NewSHA1(namespace, fmt.Appendf(nil, "%d/athlete/%d", cfg.Seed, i)).String(),
			Name:        f.FirstName() + " " + f.LastName(),
			Gender:      gender,
			WeightClass: class,
			LotNumber:   &lots[i],
			CreatedAt:   cfg.Start,
		}
		if len(teams) > 0 && f.Float64() >= unteamedRate {
			team := teams[f.Number(0, len(teams)-1)]
			a.Team = &team
		}
		snap.Athletes = append(snap.Athletes, a)

		opener := opening(f, class, gender)
		for _, d := range []model.Discipline{model.Snatch, model.CleanJerk} {
			weight := opener
			if d == model.CleanJerk {
				weight = int(math.Round(float64(opener) * cjOverSnatch))
			}
			for num := 1; num <= model.MaxAttempts; num++ {
				clock = clock.Add(time.Duration(f.Number(40, 120)) * time.Second)
				declared := weight
				status := model.StatusPending
				if f.Float64() < progress {
					status = outcome(f)
				}
				snap.Attempts = append(snap.Attempts, model.Attempt{
					ID:             uuid.NewSHA1(namespace, fmt.Appendf(nil, "%d/%s/%s/%d", cfg.Seed, a.ID, d, num)).String(),
					AthleteID:      a.ID,
					Discipline:     d,
					AttemptNum:     num,
					DeclaredWeight: &declared,
					Status:         status,
					UpdatedAt:      clock,
				})
				// A made lift earns a jump; a miss is repeated or nudged up a kilo.
				if status == model.StatusSuccess {
					weight += f.Number(1, 5)
				} else if f.Bool() {
					weight++
				}
			}
		}
	}
	return snap
}

func opening(f *gofakeit.Faker, class string, gender model.Gender) int {
	kg := scoring.ClassMagnitude(class)
	if kg > 200 {
		kg = 80
	}
	factor := snatchPerKg
	if gender == model.GenderFemale {
		factor *= 0.8
	}
	return max(minOpener, int(kg*factor*f.Float64Range(0.75, 1.15)))
}

func outcome(f *gofakeit.Faker) model.Status {
	switch r := f.Float64(); {
	case r < successRate:
		return model.StatusSuccess
	case r < successRate+passRate:
		return model.StatusPass
	}
	return model.StatusFail
}
