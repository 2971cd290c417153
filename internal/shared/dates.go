package shared

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// DateOf truncates t to its calendar date in t's own location, expressed as UTC midnight.
// Two values are the same calendar day exactly when their DateOf results are equal.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a calendar date by n days.
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}

// MonthBounds returns the first and last calendar day of the month containing t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	y, m, _ := t.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// CeilDays converts a duration to whole days, rounding partial days up.
func CeilDays(d time.Duration) int {
	return int(math.Ceil(float64(d) / float64(day)))
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
