// Package repository holds tournament athletes and attempts and serves
// consistent snapshots of them to the results engine.
package repository

import (
	"context"

	"github.com/okian/barbell/internal/domain/model"
)

// Store provides read/write access to tournament state.
type Store interface {
	// AddAthlete registers an athlete, assigning an id when empty.
	// Returns ErrDuplicateAthlete if the id is already registered.
	AddAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error)

	// DeleteAthlete hides an athlete and its attempts from snapshots.
	// Returns ErrNotFound if the athlete is unknown.
	DeleteAthlete(ctx context.Context, tournamentID, athleteID string) error

	// Athletes lists the registered athletes in registration order.
	Athletes(ctx context.Context, tournamentID string) ([]model.Athlete, error)

	// UpsertAttempt stores an attempt under its natural key. It returns
	// false without error when a newer update is already stored.
	UpsertAttempt(ctx context.Context, tournamentID string, a model.Attempt) (bool, error)

	// Snapshot returns a consistent copy of the tournament.
	Snapshot(ctx context.Context, tournamentID string) (model.Snapshot, error)

	// Import replaces the tournament with the given snapshot.
	Import(ctx context.Context, tournamentID string, s model.Snapshot) error

	// Count returns the number of registered athletes across tournaments.
	Count(ctx context.Context) int

	// Tournaments lists tournament ids in lexical order.
	Tournaments(ctx context.Context) []string
}
