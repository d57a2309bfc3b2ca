package schedule_test

import (
	"reflect"
	"testing"
	"time"

	"planline/internal/schedule"
)

func d(year int, month time.Month, dayNum int) time.Time {
	return time.Date(year, month, dayNum, 0, 0, 0, 0, time.UTC)
}

func hours(h float64) *float64 {
	return &h
}

func ref(typ, id string) schedule.Ref {
	return schedule.Ref{Type: typ, ID: id}
}

func item(typ, id string, estimate *float64, deps ...schedule.Ref) schedule.WorkItem {
	return schedule.WorkItem{
		Ref:            ref(typ, id),
		Title:          id,
		EstimateHours:  estimate,
		EstimateSource: "manual",
		DependsOn:      deps,
	}
}

func taskByID(t *testing.T, res *schedule.Result, id string) schedule.Task {
	t.Helper()
	for _, task := range res.Tasks {
		if task.ID == id {
			return task
		}
	}
	t.Fatalf("task %s not in result", id)
	return schedule.Task{}
}

func TestLinearChain(t *testing.T) {
	res, err := schedule.Calculate(schedule.Request{
		Items: []schedule.WorkItem{
			item("issue", "A", hours(8)),
			item("issue", "B", hours(8), ref("issue", "A")),
		},
		StartDate:       d(2025, time.January, 1),
		HoursPerDay:     8,
		IncludeWeekends: true,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	a := taskByID(t, res, "A")
	b := taskByID(t, res, "B")
	if !a.ScheduledStart.Equal(d(2025, time.January, 1)) || !a.ScheduledEnd.Equal(d(2025, time.January, 1)) {
		t.Fatalf("A span %v..%v", a.ScheduledStart, a.ScheduledEnd)
	}
	if !b.ScheduledStart.Equal(d(2025, time.January, 2)) || !b.ScheduledEnd.Equal(d(2025, time.January, 2)) {
		t.Fatalf("B span %v..%v", b.ScheduledStart, b.ScheduledEnd)
	}
	if !a.Critical || !b.Critical {
		t.Fatalf("expected both tasks critical")
	}
	if !res.Summary.EndDate.Equal(d(2025, time.January, 2)) {
		t.Fatalf("summary end %v", res.Summary.EndDate)
	}
	if res.Summary.CriticalPathTasks != 2 || res.Summary.TotalHours != 16 {
		t.Fatalf("summary %+v", res.Summary)
	}
}

func TestCycleDegradesGracefully(t *testing.T) {
	res, err := schedule.Calculate(schedule.Request{
		Items: []schedule.WorkItem{
			item("issue", "A", hours(8), ref("issue", "B")),
			item("issue", "B", hours(8), ref("issue", "A")),
		},
		StartDate:       d(2025, time.January, 1),
		HoursPerDay:     8,
		IncludeWeekends: true,
	})
	if err != nil {
		t.Fatalf("cycle must not be fatal: %v", err)
	}
	if !res.HasCycle || !res.Summary.HasCycle {
		t.Fatalf("expected hasCycle")
	}
	for _, task := range res.Tasks {
		if task.FloatDays != nil {
			t.Fatalf("task %s: float must be undefined in a cycle", task.ID)
		}
		if task.Critical {
			t.Fatalf("task %s: cycle members are never critical", task.ID)
		}
		if task.ScheduledStart.After(task.ScheduledEnd) {
			t.Fatalf("task %s: start after end", task.ID)
		}
	}
}

func TestCycleWithDownstreamTask(t *testing.T) {
	res, err := schedule.Calculate(schedule.Request{
		Items: []schedule.WorkItem{
			item("issue", "A", hours(8), ref("issue", "B")),
			item("issue", "B", hours(8), ref("issue", "A")),
			item("issue", "C", hours(8), ref("issue", "A")),
		},
		StartDate:       d(2025, time.January, 1),
		HoursPerDay:     8,
		IncludeWeekends: true,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	c := taskByID(t, res, "C")
	a := taskByID(t, res, "A")
	if c.ScheduledStart.Before(a.ScheduledEnd) {
		t.Fatalf("C starts %v before its dependency ends %v", c.ScheduledStart, a.ScheduledEnd)
	}
	if len(res.Tasks) != 3 {
		t.Fatalf("every input item must be scheduled, got %d", len(res.Tasks))
	}
}

func TestCycleDependentDeclaredBeforeCycle(t *testing.T) {
	res, err := schedule.Calculate(schedule.Request{
		Items: []schedule.WorkItem{
			item("issue", "C", hours(8), ref("issue", "A")),
			item("issue", "A", hours(16), ref("issue", "B")),
			item("issue", "B", hours(8), ref("issue", "A")),
		},
		StartDate:       d(2025, time.January, 1),
		HoursPerDay:     8,
		IncludeWeekends: true,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	c := taskByID(t, res, "C")
	a := taskByID(t, res, "A")
	if !a.ScheduledEnd.Equal(d(2025, time.January, 2)) {
		t.Fatalf("A span %v..%v", a.ScheduledStart, a.ScheduledEnd)
	}
	if !c.ScheduledStart.Equal(d(2025, time.January, 3)) {
		t.Fatalf("C must start after A ends, got %v", c.ScheduledStart)
	}
	if c.FloatDays == nil {
		t.Fatalf("C is not a cycle member, float must be defined")
	}
	if a.FloatDays != nil || a.Critical {
		t.Fatalf("cycle member A must have undefined float")
	}
}

func TestItemDueDateRisk(t *testing.T) {
	due := d(2025, time.January, 1)
	items := []schedule.WorkItem{item("issue", "A", hours(16))}
	items[0].DueDate = &due
	res, err := schedule.Calculate(schedule.Request{
		Items:           items,
		StartDate:       d(2025, time.January, 1),
		HoursPerDay:     8,
		IncludeWeekends: true,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	a := taskByID(t, res, "A")
	if !a.EarliestFinish.Equal(d(2025, time.January, 2)) {
		t.Fatalf("earliest finish %v", a.EarliestFinish)
	}
	if !a.HasRisk || a.RiskReason != schedule.RiskItemDueDate {
		t.Fatalf("risk %v reason %q", a.HasRisk, a.RiskReason)
	}
	if a.DaysLate != 1 {
		t.Fatalf("days late %d", a.DaysLate)
	}
	if res.Summary.RisksCount != 1 {
		t.Fatalf("risks count %d", res.Summary.RisksCount)
	}
}

func TestItemDueDateTakesPrecedenceOverDeadline(t *testing.T) {
	due := d(2025, time.January, 1)
	deadline := d(2025, time.January, 1)
	items := []schedule.WorkItem{item("issue", "A", hours(16))}
	items[0].DueDate = &due
	res, err := schedule.Calculate(schedule.Request{
		Items:           items,
		StartDate:       d(2025, time.January, 1),
		HoursPerDay:     8,
		IncludeWeekends: true,
		ProjectDeadline: &deadline,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got := taskByID(t, res, "A").RiskReason; got != schedule.RiskItemDueDate {
		t.Fatalf("reason %q", got)
	}
}

func TestProjectDeadlineRisk(t *testing.T) {
	deadline := d(2025, time.January, 1)
	res, err := schedule.Calculate(schedule.Request{
		Items:           []schedule.WorkItem{item("issue", "A", hours(24))},
		StartDate:       d(2025, time.January, 1),
		HoursPerDay:     8,
		IncludeWeekends: true,
		ProjectDeadline: &deadline,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	a := taskByID(t, res, "A")
	if a.RiskReason != schedule.RiskProjectDeadline || a.DaysLate != 2 {
		t.Fatalf("reason %q days late %d", a.RiskReason, a.DaysLate)
	}
}

func TestWeekendExclusion(t *testing.T) {
	// 2025-01-03 is a Friday.
	res, err := schedule.Calculate(schedule.Request{
		Items:           []schedule.WorkItem{item("issue", "A", hours(8))},
		StartDate:       d(2025, time.January, 3),
		HoursPerDay:     8,
		IncludeWeekends: false,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	a := taskByID(t, res, "A")
	if !a.ScheduledStart.Equal(d(2025, time.January, 3)) || !a.ScheduledEnd.Equal(d(2025, time.January, 3)) {
		t.Fatalf("1-day Friday task must end Friday, got %v..%v", a.ScheduledStart, a.ScheduledEnd)
	}
}

func TestWeekendStartRollsForward(t *testing.T) {
	// 2025-01-04 is a Saturday; work begins the following Monday.
	res, err := schedule.Calculate(schedule.Request{
		Items:           []schedule.WorkItem{item("issue", "A", hours(8))},
		StartDate:       d(2025, time.January, 4),
		HoursPerDay:     8,
		IncludeWeekends: false,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got := taskByID(t, res, "A").ScheduledStart; !got.Equal(d(2025, time.January, 6)) {
		t.Fatalf("start %v", got)
	}
}

func TestDanglingDependencyReported(t *testing.T) {
	res, err := schedule.Calculate(schedule.Request{
		Items: []schedule.WorkItem{
			item("issue", "A", hours(8), ref("issue", "missing")),
		},
		StartDate:       d(2025, time.January, 1),
		HoursPerDay:     8,
		IncludeWeekends: true,
	})
	if err != nil {
		t.Fatalf("dangling refs must not fail the build: %v", err)
	}
	if len(res.Dangling) != 1 || res.Dangling[0].To.ID != "missing" {
		t.Fatalf("dangling %+v", res.Dangling)
	}
	a := taskByID(t, res, "A")
	if len(a.DependsOn) != 0 {
		t.Fatalf("dropped edge must not appear on the task: %+v", a.DependsOn)
	}
	if !a.ScheduledStart.Equal(d(2025, time.January, 1)) {
		t.Fatalf("dangling edge must impose no constraint, start %v", a.ScheduledStart)
	}
}

func TestDiamondFloat(t *testing.T) {
	res, err := schedule.Calculate(schedule.Request{
		Items: []schedule.WorkItem{
			item("issue", "A", hours(8)),
			item("issue", "B", hours(16), ref("issue", "A")),
			item("issue", "C", hours(8), ref("issue", "A")),
			item("issue", "D", hours(8), ref("issue", "B"), ref("issue", "C")),
		},
		StartDate:       d(2025, time.January, 1),
		HoursPerDay:     8,
		IncludeWeekends: true,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	c := taskByID(t, res, "C")
	if c.FloatDays == nil || *c.FloatDays != 1 || c.Critical {
		t.Fatalf("C float %v critical %v", c.FloatDays, c.Critical)
	}
	for _, id := range []string{"A", "B", "D"} {
		task := taskByID(t, res, id)
		if task.FloatDays == nil || *task.FloatDays != 0 || !task.Critical {
			t.Fatalf("%s should be critical, float %v", id, task.FloatDays)
		}
	}
	if res.Summary.CriticalPathTasks != 3 {
		t.Fatalf("critical count %d", res.Summary.CriticalPathTasks)
	}
}

func TestDurationRoundTrip(t *testing.T) {
	res, err := schedule.Calculate(schedule.Request{
		Items:           []schedule.WorkItem{item("issue", "A", hours(24))},
		StartDate:       d(2025, time.January, 1),
		HoursPerDay:     8,
		IncludeWeekends: true,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got := taskByID(t, res, "A").DurationDays; got != 3 {
		t.Fatalf("duration %d", got)
	}
}

func TestDegenerateEstimateGetsOneDay(t *testing.T) {
	res, err := schedule.Calculate(schedule.Request{
		Items: []schedule.WorkItem{
			item("issue", "A", nil),
			item("issue", "B", hours(0)),
		},
		StartDate:       d(2025, time.January, 1),
		HoursPerDay:     8,
		IncludeWeekends: true,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	for _, id := range []string{"A", "B"} {
		if got := taskByID(t, res, id).DurationDays; got != 1 {
			t.Fatalf("%s duration %d", id, got)
		}
	}
	if res.Summary.TotalHours != 0 {
		t.Fatalf("missing estimates count as zero hours, got %v", res.Summary.TotalHours)
	}
}

func TestDeterministicOutput(t *testing.T) {
	req := schedule.Request{
		Items: []schedule.WorkItem{
			item("issue", "A", hours(8)),
			item("action-item", "B", hours(12), ref("issue", "A")),
			item("issue", "C", hours(4), ref("issue", "A"), ref("action-item", "B")),
		},
		StartDate:       d(2025, time.January, 1),
		HoursPerDay:     8,
		IncludeWeekends: false,
	}
	first, err := schedule.Calculate(req)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	second, err := schedule.Calculate(req)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical input must yield identical output")
	}
	for i, task := range first.Tasks {
		if task.Ref != req.Items[i].Ref {
			t.Fatalf("output order must follow input order at %d", i)
		}
	}
}

func TestInvariants(t *testing.T) {
	res, err := schedule.Calculate(schedule.Request{
		Items: []schedule.WorkItem{
			item("issue", "A", hours(8)),
			item("issue", "B", hours(40), ref("issue", "A")),
			item("issue", "C", hours(16)),
			item("issue", "D", hours(8), ref("issue", "B"), ref("issue", "C")),
		},
		StartDate:       d(2025, time.January, 1),
		HoursPerDay:     8,
		IncludeWeekends: false,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	critical := 0
	for _, task := range res.Tasks {
		if task.ScheduledStart.After(task.ScheduledEnd) {
			t.Fatalf("%s start after end", task.ID)
		}
		if task.EarliestStart.After(task.LatestStart) || task.EarliestFinish.After(task.LatestFinish) {
			t.Fatalf("%s earliest after latest", task.ID)
		}
		if task.FloatDays == nil || *task.FloatDays < 0 {
			t.Fatalf("%s float %v", task.ID, task.FloatDays)
		}
		if task.Critical {
			critical++
		}
		if res.Summary.StartDate.After(task.ScheduledStart) || res.Summary.EndDate.Before(task.ScheduledEnd) {
			t.Fatalf("summary bounds do not cover %s", task.ID)
		}
	}
	if critical == 0 {
		t.Fatalf("an acyclic schedule must have at least one critical task")
	}
}

func TestValidation(t *testing.T) {
	base := schedule.Request{
		Items:       []schedule.WorkItem{item("issue", "A", hours(8))},
		StartDate:   d(2025, time.January, 1),
		HoursPerDay: 8,
	}

	empty := base
	empty.Items = nil
	if _, err := schedule.Calculate(empty); err == nil {
		t.Fatalf("expected error for empty items")
	}

	badHours := base
	badHours.HoursPerDay = 0
	if _, err := schedule.Calculate(badHours); err == nil {
		t.Fatalf("expected error for non-positive hours per day")
	}

	noStart := base
	noStart.StartDate = time.Time{}
	if _, err := schedule.Calculate(noStart); err == nil {
		t.Fatalf("expected error for zero start date")
	}

	dup := base
	dup.Items = []schedule.WorkItem{item("issue", "A", hours(8)), item("issue", "A", hours(4))}
	if _, err := schedule.Calculate(dup); err == nil {
		t.Fatalf("expected error for duplicate identity")
	}
}
