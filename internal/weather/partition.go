package weather

import (
	"fmt"
	"time"
)

// Partition splits [start, end] into a chronologically ordered sequence of
// month-aligned sub-intervals, one per provider request. Sub-intervals are
// contiguous and non-overlapping; the first starts at start, the last ends at
// end, and every interior boundary falls on a calendar month start or end.
// A range contained in a single month yields exactly one sub-interval.
func Partition(start, end time.Time) ([]SubInterval, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start date %s must precede end date %s",
			ErrValidation, start.Format(DateFormat), end.Format(DateFormat))
	}

	// Month starts strictly after start, up to and including end.
	starts := []time.Time{start}
	for ms := nextMonthStart(start); !ms.After(end); ms = ms.AddDate(0, 1, 0) {
		starts = append(starts, ms)
	}

	// Month ends at or after start, strictly before end.
	var ends []time.Time
	for me := monthEnd(start); me.Before(end); me = monthEnd(me.AddDate(0, 0, 1)) {
		ends = append(ends, me)
	}
	ends = append(ends, end)

	// Equal length holds by construction, but calendar arithmetic across
	// partial first/last months is easy to desynchronize, so verify it.
	if len(starts) != len(ends) {
		return nil, fmt.Errorf("month boundary sequences desynchronized: %d starts, %d ends", len(starts), len(ends))
	}

	subs := make([]SubInterval, len(starts))
	for i := range starts {
		subs[i] = SubInterval{Start: starts[i], End: ends[i]}
	}
	return subs, nil
}

// nextMonthStart returns the first day of the month after d.
func nextMonthStart(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// monthEnd returns the last day of d's month.
func monthEnd(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
}
