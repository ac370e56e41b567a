// Package dates computes calendar-aligned boundaries. Weeks start on Monday.
package dates

import "time"

// KeyLayout formats a calendar day for map keys and SQL range bounds.
const KeyLayout = "2006-01-02"

// StartOfDay truncates d to midnight in its own location.
func StartOfDay(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, d.Location())
}

// StartOfWeek returns the Monday of d's week.
func StartOfWeek(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return StartOfDay(d).AddDate(0, 0, -offset)
}

// EndOfWeek returns the Sunday of d's week.
func EndOfWeek(d time.Time) time.Time {
	return StartOfWeek(d).AddDate(0, 0, 6)
}

// StartOfMonth returns the first day of d's month.
func StartOfMonth(d time.Time) time.Time {
	y, m, _ := d.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, d.Location())
}

// EndOfMonth returns the last day of d's month.
func EndOfMonth(d time.Time) time.Time {
	// time.Date normalizes month 13 into January of the next year.
	return StartOfMonth(d).AddDate(0, 1, -1)
}

// DateKey renders the calendar day of d.
func DateKey(d time.Time) string {
	return d.Format(KeyLayout)
}

// DaysInRange lists every calendar day from from to to, inclusive.
func DaysInRange(from, to time.Time) []time.Time {
	from, to = StartOfDay(from), StartOfDay(to)
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
