package scoring

import (
	"cmp"
	"slices"

	"github.com/okian/barbell/internal/domain/model"
)

// missingLot stands in for an absent lot number so undrawn athletes go last.
const missingLot = 9999

// rankCohort fills in ranks and points for one cohort and puts it in display
// order: ranked by total first, unranked after in their original order.
func (e *Engine) rankCohort(members []model.AthleteResult) {
	assignRanks(members, snatchLift, func(r *model.AthleteResult, rank *int) { r.SnatchRank = rank })
	assignRanks(members, cjLift, func(r *model.AthleteResult, rank *int) { r.CJRank = rank })
	assignRanks(members, totalLift, func(r *model.AthleteResult, rank *int) { r.TotalRank = rank })

	for i := range members {
		members[i].Points = e.Points(members[i].TotalRank)
	}
	slices.SortStableFunc(members, compareByTotalRank)
}

// assignRanks gives dense ranks 1..k to the members that have a value and nil
// to the rest. Equal lifts fall back to lot number then athlete id, so no two
// members ever share a rank.
func assignRanks(members []model.AthleteResult, value liftOf, set func(*model.AthleteResult, *int)) {
	type candidate struct {
		idx  int
		lift Lift
	}
	ranked := make([]candidate, 0, len(members))
	for i := range members {
		if l, ok := value(&members[i]); ok {
			ranked = append(ranked, candidate{idx: i, lift: l})
			continue
		}
		set(&members[i], nil)
	}

	slices.SortStableFunc(ranked, func(a, b candidate) int {
		if c := CompareLifts(a.lift, b.lift); c != 0 {
			return c
		}
		return compareDraw(&members[a.idx].Athlete, &members[b.idx].Athlete)
	})
	for pos, c := range ranked {
		set(&members[c.idx], intPtr(pos+1))
	}
}

// compareDraw is the tiebreak of last resort.
func compareDraw(a, b *model.Athlete) int {
	if c := cmp.Compare(lotOf(a), lotOf(b)); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func lotOf(a *model.Athlete) int {
	if a.LotNumber == nil {
		return missingLot
	}
	return *a.LotNumber
}

func compareByTotalRank(a, b model.AthleteResult) int { //nolint:gocritic // hugeParam: slices.SortStableFunc passes elements by value
	switch {
	case a.TotalRank == nil && b.TotalRank == nil:
		return 0
	case a.TotalRank == nil:
		return 1
	case b.TotalRank == nil:
		return -1
	}
	return cmp.Compare(*a.TotalRank, *b.TotalRank)
}
