package quotas

import "time"

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// nextResetDate advances current by whole months until it is after today.
// The day of month is clamped to the length of the target month.
func nextResetDate(current, today time.Time) time.Time {
	anchor := truncateToDate(current)
	today = truncateToDate(today)
	day := anchor.Day()
	next := anchor
	for months := 1; !next.After(today); months++ {
		first := time.Date(anchor.Year(), anchor.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
		next = first.AddDate(0, 0, min(day, daysIn(first))-1)
	}
	return next
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
