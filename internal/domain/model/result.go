package model

// AthleteResult is one athlete's computed line in a weight class.
// Nil pointers mean "no value": no successful lift, no total, or unranked.
type AthleteResult struct {
	Athlete        Athlete
	BestSnatch     *int
	BestCJ         *int
	Total          *int
	SnatchRank     *int
	CJRank         *int
	TotalRank      *int
	Points         int
	SnatchAttempts [MaxAttempts]*Attempt
	CJAttempts     [MaxAttempts]*Attempt
}

// Slots returns the attempt slots for discipline d.
func (r *AthleteResult) Slots(d Discipline) [MaxAttempts]*Attempt {
	if d == CleanJerk {
		return r.CJAttempts
	}
	return r.SnatchAttempts
}

// CohortKey identifies a weight class within a gender.
type CohortKey struct {
	Gender      string
	WeightClass string
}

// WeightClassResult holds the ranked athletes of one cohort.
type WeightClassResult struct {
	CohortKey
	Athletes []AthleteResult
}

// TeamEntry is one athlete's point contribution to a team.
type TeamEntry struct {
	AthleteID   string `json:"athlete_id"`
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	WeightClass string `json:"weight_class"`
	Points      int    `json:"points"`
}

// TeamScore aggregates a team's point awards across all cohorts.
type TeamScore struct {
	Team        string
	TotalPoints int
	Entries     []TeamEntry // sorted by points, descending
	Counted     []TeamEntry // the prefix of Entries summed into TotalPoints
}

// Standings is the complete output of a results computation.
type Standings struct {
	WeightClasses []WeightClassResult
	Teams         []TeamScore
}
