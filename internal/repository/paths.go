package repository

import "time"

// Archive bucket addressing. A migrated question lives under
// (user, year, "YYYY-MM", "YYYY-MM-DD", question id); months and days are
// zero-padded so lexical order matches chronological order.

func YearPath(date time.Time) string {
	return date.Format("2006")
}

func MonthPath(date time.Time) string {
	return date.Format("2006-01")
}

func DayPath(date time.Time) string {
	return date.Format("2006-01-02")
}
