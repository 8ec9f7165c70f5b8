package dedupe

import (
	"errors"
	"fmt"

	"github.com/okian/barbell/internal/domain/model"
)

// ErrDuplicateAttempt reports two attempts sharing a natural key.
var ErrDuplicateAttempt = errors.New("duplicate attempt")

// CheckAttempts returns ErrDuplicateAttempt, naming every offending key, when
// more than one attempt shares an (athlete, discipline, attempt number) key.
func CheckAttempts(attempts []model.Attempt) error {
	seen := make(map[model.AttemptKey]struct{}, len(attempts))
	var dups []error
	for i := range attempts {
		key := attempts[i].Key()
		if _, ok := seen[key]; ok {
			dups = append(dups, fmt.Errorf("%w: %s", ErrDuplicateAttempt, key))
			continue
		}
		seen[key] = struct{}{}
	}
	return errors.Join(dups...)
}
