package model

import (
	"errors"
	"fmt"
	"time"
)

// Discipline is one of the two contested lifts.
type Discipline string

const (
	Snatch    Discipline = "snatch"
	CleanJerk Discipline = "cj"
)

// MaxAttempts is the number of attempts each athlete gets per discipline.
const MaxAttempts = 3

// Valid reports whether d is snatch or clean & jerk.
func (d Discipline) Valid() bool {
	return d == Snatch || d == CleanJerk
}

// Status is the judged outcome of an attempt.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
	StatusPass    Status = "pass"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFail, StatusPass:
		return true
	}
	return false
}

// Attempt is a single declared lift and its judgement.
type Attempt struct {
	ID             string     `json:"id" yaml:"id"`
	AthleteID      string     `json:"athlete_id" yaml:"athlete_id"`
	Discipline     Discipline `json:"type" yaml:"type"`
	AttemptNum     int        `json:"attempt_num" yaml:"attempt_num"`
	DeclaredWeight *int       `json:"declared_weight" yaml:"declared_weight,omitempty"` // kg
	Status         Status     `json:"status" yaml:"status"`
	UpdatedAt      time.Time  `json:"updated_at" yaml:"updated_at"`
}

// AttemptKey is the natural key of an attempt. At most one attempt exists
// per key.
type AttemptKey struct {
	AthleteID  string
	Discipline Discipline
	AttemptNum int
}

// Key returns the natural key of a.
func (a *Attempt) Key() AttemptKey {
	return AttemptKey{AthleteID: a.AthleteID, Discipline: a.Discipline, AttemptNum: a.AttemptNum}
}

func (k AttemptKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.AthleteID, k.Discipline, k.AttemptNum)
}

// Validate checks the attempt's enumerated fields. It does not check that the
// athlete exists.
func (a *Attempt) Validate() error {
	switch {
	case a.AthleteID == "":
		return errors.New("missing athlete_id")
	case !a.Discipline.Valid():
		return fmt.Errorf("invalid type %q", a.Discipline)
	case a.AttemptNum < 1 || a.AttemptNum > MaxAttempts:
		return fmt.Errorf("attempt_num %d out of range 1..%d", a.AttemptNum, MaxAttempts)
	case !a.Status.Valid():
		return fmt.Errorf("invalid status %q", a.Status)
	case a.DeclaredWeight != nil && *a.DeclaredWeight <= 0:
		return errors.New("declared_weight must be positive")
	}
	return nil
}

// JudgingEvent is a judging submission flowing through the queue.
type JudgingEvent struct {
	SubmissionID string  // client-supplied id for idempotency
	TournamentID string
	Attempt      Attempt
}

// DedupeKey scopes the submission id to its tournament.
func (e *JudgingEvent) DedupeKey() string {
	return e.TournamentID + "/" + e.SubmissionID
}

// Outcome is what a synchronously applied judgement did to the store.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeStale     Outcome = "stale"     // a newer judgement is stored
	OutcomeDuplicate Outcome = "duplicate" // submission id already accepted
)
