package util

import "time"

// NextDue returns the earliest time at which a new monthly run is due after
// a run at last. The due date keeps last's day-of-month and clock time,
// moved one calendar month forward, with the day clamped to the target
// month's final day. Examples: Jan 15 -> Feb 15; Jan 31 2024 -> Feb 29 2024;
// Jan 31 2023 -> Feb 28 2023.
//
// A zero last means no prior run; NextDue returns the zero time in that case.
func NextDue(last time.Time) time.Time {
	if last.IsZero() {
		return time.Time{}
	}

	year, month, day := last.Date()
	month++
	if month > time.December {
		month = time.January
		year++
	}

	if end := lastDayOfMonth(year, month); day > end {
		day = end
	}

	hour, min, sec := last.Clock()
	return time.Date(year, month, day, hour, min, sec, last.Nanosecond(), last.Location())
}

// IsDue reports whether a run at now is due given the last successful run.
// A zero last (no prior run) is always due.
func IsDue(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	return !now.Before(NextDue(last))
}

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the following month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
