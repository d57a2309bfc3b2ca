package schedule

import (
	"testing"
	"time"
)

func date(y int, m time.Month, dn int) time.Time {
	return time.Date(y, m, dn, 0, 0, 0, 0, time.UTC)
}

func TestAddWorkingDurationSpansWeekend(t *testing.T) {
	// 2025-01-03 is a Friday; a 2-day task continues on Monday.
	got := addWorkingDuration(date(2025, time.January, 3), 2, false)
	if !got.Equal(date(2025, time.January, 6)) {
		t.Fatalf("got %v", got)
	}
	// With weekends included the same task ends Saturday.
	got = addWorkingDuration(date(2025, time.January, 3), 2, true)
	if !got.Equal(date(2025, time.January, 4)) {
		t.Fatalf("got %v", got)
	}
}

func TestAddWorkingDurationClampsToOneDay(t *testing.T) {
	got := addWorkingDuration(date(2025, time.January, 3), 0, false)
	if !got.Equal(date(2025, time.January, 3)) {
		t.Fatalf("got %v", got)
	}
}

func TestRollForwardFromWeekend(t *testing.T) {
	got := rollForward(date(2025, time.January, 4), false) // Saturday
	if !got.Equal(date(2025, time.January, 6)) {
		t.Fatalf("got %v", got)
	}
	got = rollForward(date(2025, time.January, 4), true)
	if !got.Equal(date(2025, time.January, 4)) {
		t.Fatalf("got %v", got)
	}
}

func TestSubWorkingDurationInvertsAdd(t *testing.T) {
	start := date(2025, time.January, 2)
	for days := 1; days <= 10; days++ {
		finish := addWorkingDuration(start, days, false)
		if back := subWorkingDuration(finish, days, false); !back.Equal(start) {
			t.Fatalf("days=%d: %v != %v", days, back, start)
		}
	}
}

func TestWorkingDaysBetween(t *testing.T) {
	cases := []struct {
		start, end      time.Time
		includeWeekends bool
		want            int
	}{
		{date(2025, time.January, 1), date(2025, time.January, 1), false, 0},
		{date(2025, time.January, 1), date(2025, time.January, 2), false, 1},
		{date(2025, time.January, 3), date(2025, time.January, 6), false, 1},  // Fri -> Mon
		{date(2025, time.January, 3), date(2025, time.January, 6), true, 3},
		{date(2025, time.January, 2), date(2025, time.January, 1), false, 0},  // end before start
	}
	for _, c := range cases {
		if got := workingDaysBetween(c.start, c.end, c.includeWeekends); got != c.want {
			t.Fatalf("between(%v,%v,%v) = %d, want %d", c.start, c.end, c.includeWeekends, got, c.want)
		}
	}
}

func TestDurationDays(t *testing.T) {
	h := func(v float64) *float64 { return &v }
	cases := []struct {
		estimate *float64
		perDay   float64
		want     int
	}{
		{h(8), 8, 1},
		{h(9), 8, 2},
		{h(24), 8, 3},
		{h(0), 8, 1},
		{nil, 8, 1},
		{h(1), 8, 1},
	}
	for _, c := range cases {
		if got := durationDays(c.estimate, c.perDay); got != c.want {
			t.Fatalf("durationDays(%v,%v) = %d, want %d", c.estimate, c.perDay, got, c.want)
		}
	}
}
