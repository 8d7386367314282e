package registry

import "time"

// staleAfterDays is the visit-recency threshold: a patient whose most recent
// visit is strictly older than this many days is due for a follow-up.
const staleAfterDays = 14

// Staleness is the result of evaluating a patient's visit history.
type Staleness struct {
	IsOld         bool   `json:"is_old"`
	LastVisitDate string `json:"last_visit_date,omitempty"`
}

// IsLastVisitOld reports whether the most recent visit in the history is more
// than two weeks before now. Pure: the clock is injected, no I/O.
//
// The last element of the slice is taken as the most recent visit. Histories
// are stored in chronological order, so this holds in practice; an unordered
// slice would be evaluated against its final element regardless of date.
//
// The comparison works at calendar-date granularity: a visit exactly 14 days
// old is not yet stale, 15 days is.
func IsLastVisitOld(visits []*Visit, now time.Time) Staleness {
	if len(visits) == 0 {
		return Staleness{IsOld: false}
	}

	last := visits[len(visits)-1].Date
	threshold := DateOf(now).AddDate(0, 0, -staleAfterDays)

	if last.Before(threshold) {
		return Staleness{IsOld: true, LastVisitDate: last.String()}
	}
	return Staleness{IsOld: false}
}
