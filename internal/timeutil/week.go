// Package timeutil holds the calendar-day arithmetic behind the week grid.
// Every function is pure and works in the location of its input.
package timeutil

import (
	"fmt"
	"time"
)

// DayNames are the column headers of a Sunday-anchored week.
var DayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStartOf returns the Sunday-anchored week containing d.
func WeekStartOf(d time.Time) [7]time.Time {
	return WeekOf(d, time.Sunday)
}

// WeekOf returns the 7 consecutive calendar days (at midnight) of the week
// containing d, beginning on first.
//
// The anchor is found by subtracting the weekday offset from the
// day-of-month and letting time.Date normalize, so month and year
// boundaries and DST transitions never shift a day.
func WeekOf(d time.Time, first time.Weekday) [7]time.Time {
	offset := (int(d.Weekday()) - int(first) + 7) % 7
	anchorDay := d.Day() - offset

	var week [7]time.Time
	for i := range week {
		week[i] = time.Date(d.Year(), d.Month(), anchorDay+i, 0, 0, 0, 0, d.Location())
	}
	return week
}

// ShiftWeek moves d by n whole weeks using calendar days (previous: -1,
// next: +1).
func ShiftWeek(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, 7*n)
}

// IsSameCalendarDay compares (year, month, day) only. Both values are
// compared as given; callers convert to the display location first.
func IsSameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsToday reports whether d falls on now's calendar day in d's location.
func IsToday(d, now time.Time) bool {
	return IsSameCalendarDay(d, now.In(d.Location()))
}

// FormatHour renders 0-23 as a 12-hour label: 0 -> "12 AM", 12 -> "12 PM".
func FormatHour(h int) string {
	switch {
	case h == 0:
		return "12 AM"
	case h < 12:
		return fmt.Sprintf("%d AM", h)
	case h == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", h-12)
	}
}

// MonthYearLabel renders the header for a week. A week spanning two months
// renders "January - February 2026"; the year is always the first date's,
// even when the week crosses into a new year.
func MonthYearLabel(week [7]time.Time) string {
	first, last := week[0], week[6]
	if first.Month() == last.Month() {
		return fmt.Sprintf("%s %d", first.Month(), first.Year())
	}
	return fmt.Sprintf("%s - %s %d", first.Month(), last.Month(), first.Year())
}

// SlotStart is the instant a click on (day, hour) opens a draft at:
// minutes, seconds and sub-second components are zero.
func SlotStart(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

// Hours converts a duration into fractional hours.
func Hours(d time.Duration) float64 {
	return d.Hours()
}

// FromHours converts fractional hours into a duration using
// hours * 3600 * 1000 milliseconds, matching the wire arithmetic.
func FromHours(h float64) time.Duration {
	return time.Duration(h*3600*1000) * time.Millisecond
}
