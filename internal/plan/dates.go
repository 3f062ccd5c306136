package plan

import "time"

// Day returns midnight UTC of the given calendar date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Normalize strips the clock and location from t, keeping its calendar date.
func Normalize(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return Day(t.Year(), t.Month(), t.Day())
}

// DateKey formats a date as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return Normalize(t), nil
}

// DaysBetween returns the whole days from a to b (negative when b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(Normalize(b).Sub(Normalize(a)).Hours() / 24)
}

// EachDay calls fn for every date in [start, end].
func EachDay(start, end time.Time, fn func(time.Time)) {
	for d := Normalize(start); !d.After(Normalize(end)); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

// WeekStart returns the Monday of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	t = Normalize(t)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
