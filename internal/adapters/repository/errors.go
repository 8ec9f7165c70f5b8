package repository

import (
	"errors"

	"github.com/okian/barbell/internal/domain/dedupe"
)

// Sentinel kinds for store errors.
var (
	ErrNotFound         = errors.New("athlete not found")
	ErrDuplicateAthlete = errors.New("duplicate athlete id")
	ErrInvalidAthlete   = errors.New("invalid athlete")
	ErrInvalidAttempt   = errors.New("invalid attempt")
	ErrDuplicateAttempt = dedupe.ErrDuplicateAttempt
)
