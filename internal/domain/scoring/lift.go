package scoring

import (
	"cmp"
	"time"

	"github.com/okian/barbell/internal/domain/model"
)

// Lift is a ranked quantity together with when it was achieved. For totals
// the attempt metadata is that of the clean & jerk, the lift completed last.
type Lift struct {
	Weight     int
	AttemptNum int
	At         time.Time
}

// BestLift returns the heaviest successful attempt among slots. Failed,
// passed, pending and missing attempts never count, nor does a success
// without a declared weight. On an exact weight tie the earlier attempt is kept.
func BestLift(slots [model.MaxAttempts]*model.Attempt) (Lift, bool) {
	var (
		best  Lift
		found bool
	)
	for _, a := range slots {
		if a == nil || a.Status != model.StatusSuccess || a.DeclaredWeight == nil {
			continue
		}
		if !found || *a.DeclaredWeight > best.Weight {
			best = Lift{Weight: *a.DeclaredWeight, AttemptNum: a.AttemptNum, At: a.UpdatedAt}
			found = true
		}
	}
	return best, found
}

// CompareLifts orders lifts by the IWF tiebreak: heavier first, then fewer
// attempts needed, then earlier in time. It returns a negative number when a
// ranks ahead of b.
func CompareLifts(a, b Lift) int {
	if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
		return c
	}
	if c := cmp.Compare(a.AttemptNum, b.AttemptNum); c != 0 {
		return c
	}
	return a.At.Compare(b.At)
}

// liftOf extracts the ranked quantity from a result.
type liftOf func(r *model.AthleteResult) (Lift, bool)

func snatchLift(r *model.AthleteResult) (Lift, bool) { return BestLift(r.SnatchAttempts) }

func cjLift(r *model.AthleteResult) (Lift, bool) { return BestLift(r.CJAttempts) }

func totalLift(r *model.AthleteResult) (Lift, bool) {
	sn, ok := BestLift(r.SnatchAttempts)
	if !ok {
		return Lift{}, false
	}
	cj, ok := BestLift(r.CJAttempts)
	if !ok {
		return Lift{}, false
	}
	return Lift{Weight: sn.Weight + cj.Weight, AttemptNum: cj.AttemptNum, At: cj.At}, true
}
