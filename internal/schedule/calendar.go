package schedule

import (
	"math"
	"time"
)

// Calendar arithmetic over inclusive working-day date ranges. All dates are
// normalized to UTC midnight; when includeWeekends is false, Saturday and
// Sunday never count toward a duration and never host a start or finish.

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isWorkingDay(t time.Time, includeWeekends bool) bool {
	if includeWeekends {
		return true
	}
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// rollForward moves a date onto the next working day if it falls on a
// skipped one.
func rollForward(t time.Time, includeWeekends bool) time.Time {
	t = day(t)
	for !isWorkingDay(t, includeWeekends) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// nextWorkingDay returns the first working day strictly after t.
func nextWorkingDay(t time.Time, includeWeekends bool) time.Time {
	t = day(t).AddDate(0, 0, 1)
	return rollForward(t, includeWeekends)
}

// prevWorkingDay returns the last working day strictly before t.
func prevWorkingDay(t time.Time, includeWeekends bool) time.Time {
	t = day(t).AddDate(0, 0, -1)
	for !isWorkingDay(t, includeWeekends) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// addWorkingDuration returns the last day occupied by a task of the given
// working-day duration starting at start. A 1-day task ends on its own
// start day, so a Friday task with weekends excluded ends that Friday.
// Durations below 1 are clamped to 1.
func addWorkingDuration(start time.Time, durationDays int, includeWeekends bool) time.Time {
	if durationDays < 1 {
		durationDays = 1
	}
	t := rollForward(start, includeWeekends)
	for i := 1; i < durationDays; i++ {
		t = nextWorkingDay(t, includeWeekends)
	}
	return t
}

// subWorkingDuration is the inverse of addWorkingDuration: the first day of
// a task of the given duration finishing on finish.
func subWorkingDuration(finish time.Time, durationDays int, includeWeekends bool) time.Time {
	if durationDays < 1 {
		durationDays = 1
	}
	t := day(finish)
	for i := 1; i < durationDays; i++ {
		t = prevWorkingDay(t, includeWeekends)
	}
	return t
}

// workingDaysBetween counts working days after start up to and including
// end. It is zero when end is not after start, and is the unit used for
// float and lateness so both stay consistent with how durations advance.
func workingDaysBetween(start, end time.Time, includeWeekends bool) int {
	start, end = day(start), day(end)
	n := 0
	for t := start.AddDate(0, 0, 1); !t.After(end); t = t.AddDate(0, 0, 1) {
		if isWorkingDay(t, includeWeekends) {
			n++
		}
	}
	return n
}

// durationDays converts an effort estimate into whole working days, rounded
// up, minimum one. Absent or zero estimates still occupy one day so the
// task keeps a slot in the schedule.
func durationDays(estimateHours *float64, hoursPerDay float64) int {
	if estimateHours == nil || *estimateHours <= 0 {
		return 1
	}
	d := int(math.Ceil(*estimateHours / hoursPerDay))
	if d < 1 {
		d = 1
	}
	return d
}
