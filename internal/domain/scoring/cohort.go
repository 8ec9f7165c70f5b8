package scoring

import (
	"cmp"
	"math"
	"strconv"
	"strings"

	"github.com/okian/barbell/internal/domain/model"
)

// malformedClassOrder is the sort value of a weight class label that has no
// numeric magnitude. It places such cohorts after every real class.
const malformedClassOrder = 999

func (e *Engine) cohortKey(a *model.Athlete) model.CohortKey {
	gender := strings.TrimSpace(string(a.Gender))
	if gender == "" {
		gender = e.unknownLabel
	}
	class := strings.TrimSpace(a.WeightClass)
	if class == "" {
		class = e.unknownLabel
	}
	return model.CohortKey{Gender: gender, WeightClass: class}
}

// ClassMagnitude returns the numeric value of a weight class label. A leading
// or trailing "+" ("and above") and a "kg" suffix are ignored, so "+109",
// "109+" and "109kg" all weigh 109. Labels without a positive number return
// the malformed sentinel.
func ClassMagnitude(label string) float64 {
	s := strings.TrimSpace(label)
	s = strings.TrimPrefix(s, "+")
	s = strings.TrimSuffix(s, "+")
	s = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(s), "kg"))

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return malformedClassOrder
	}
	return v
}

func isOpenClass(label string) bool {
	s := strings.TrimSpace(label)
	return strings.HasPrefix(s, "+") || strings.HasSuffix(s, "+")
}

// compareCohorts orders cohorts by gender, then class magnitude, with "109"
// ahead of "+109" and the label text as the final tiebreak.
func compareCohorts(a, b model.WeightClassResult) int { //nolint:gocritic // hugeParam: slices.SortStableFunc passes elements by value
	if c := strings.Compare(a.Gender, b.Gender); c != 0 {
		return c
	}
	if c := cmp.Compare(ClassMagnitude(a.WeightClass), ClassMagnitude(b.WeightClass)); c != 0 {
		return c
	}
	if ao, bo := isOpenClass(a.WeightClass), isOpenClass(b.WeightClass); ao != bo {
		if ao {
			return 1
		}
		return -1
	}
	return strings.Compare(a.WeightClass, b.WeightClass)
}
