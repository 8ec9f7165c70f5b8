// Package model contains domain models passed between layers.
package model

import "time"

// Gender of an athlete. The empty value means the registry did not record one.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Athlete is a registered competitor. Athletes are read-only while standings
// are being computed.
type Athlete struct {
	ID           string    `json:"id" yaml:"id"`
	TournamentID string    `json:"tournament_id,omitempty" yaml:"tournament_id,omitempty"`
	Name         string    `json:"name" yaml:"name"`
	Team         *string   `json:"team" yaml:"team,omitempty"`
	Gender       Gender    `json:"gender" yaml:"gender"`
	WeightClass  string    `json:"weight_class" yaml:"weight_class"` // e.g. "81" or "+109"
	LotNumber    *int      `json:"lot_number" yaml:"lot_number,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at,omitempty"`
}

// TeamName returns the athlete's team, or "" when none is registered.
func (a *Athlete) TeamName() string {
	if a.Team == nil {
		return ""
	}
	return *a.Team
}

// Snapshot is one consistent read of a tournament: the engine's whole input.
type Snapshot struct {
	Athletes []Athlete `json:"athletes" yaml:"athletes"`
	Attempts []Attempt `json:"attempts" yaml:"attempts"`
}
