package scorecard

// HalfScore is a half subtotal. Played distinguishes a legitimate 0 from a
// half that has not been opened yet; the browser scoreboard renders the two
// differently.
type HalfScore struct {
	Points int
	Played bool
}

// HalfNotPlayed is the "not yet available" sentinel.
var HalfNotPlayed = HalfScore{}

// ComputeHalfScore sums the materialized entries of one half.
//
// Touchdowns are worth 6. A conversion counts only when it pairs with the
// nearest preceding non-deleted touchdown that has not already consumed a
// conversion; an unpaired conversion is an orphan and contributes nothing.
// Safeties are worth 2, turnovers and notes 0.
func ComputeHalfScore(entries []EventRecord) int {
	total := 0
	openTouchdown := false
	for _, record := range entries {
		switch {
		case record.Event.Kind == KindTouchdown:
			total += record.Event.Points()
			openTouchdown = true
		case record.Event.isConversion():
			if openTouchdown {
				total += record.Event.Points()
				openTouchdown = false
			}
		default:
			total += record.Event.Points()
		}
	}
	return total
}

// OrphanConversions returns the conversion entries that failed to pair with a
// touchdown. Orphans are a data-quality signal, never an error.
func OrphanConversions(entries []EventRecord) []EventRecord {
	var orphans []EventRecord
	openTouchdown := false
	for _, record := range entries {
		switch {
		case record.Event.Kind == KindTouchdown:
			openTouchdown = true
		case record.Event.isConversion():
			if openTouchdown {
				openTouchdown = false
			} else {
				orphans = append(orphans, record)
			}
		}
	}
	return orphans
}

// TeamTotals carries per-half subtotals and the running total for one team.
type TeamTotals struct {
	FirstHalf  HalfScore
	SecondHalf HalfScore
	Total      int
}

// GameTotals is the score summary for both teams.
type GameTotals struct {
	Home TeamTotals
	Away TeamTotals
}

func computeTeamTotals(first, second *HalfLedger, secondHalfOpen bool) TeamTotals {
	totals := TeamTotals{
		FirstHalf: HalfScore{Points: ComputeHalfScore(first.Materialize()), Played: true},
	}
	if secondHalfOpen {
		totals.SecondHalf = HalfScore{Points: ComputeHalfScore(second.Materialize()), Played: true}
	}
	totals.Total = totals.FirstHalf.Points + totals.SecondHalf.Points
	return totals
}
