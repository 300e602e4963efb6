package domain

import "time"

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// WeekStart returns the most recent Sunday 00:00 (today if t is a Sunday).
func WeekStart(t time.Time, loc *time.Location) time.Time {
	d := StartOfDay(t, loc)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// MonthStart returns the first day of t's month at 00:00.
func MonthStart(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), 1, 0, 0, 0, 0, loc)
}

// DayKey formats the local calendar day of t, used to bucket records.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// GreetingByHour picks a greeting for the local hour.
func GreetingByHour(now time.Time) string {
	switch h := now.Hour(); {
	case h < 5:
		return "Still up? Good night owl"
	case h < 11:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
