// Package schedule computes calendar-accurate project schedules with the
// critical path method. Given work items with effort estimates and
// inter-item dependencies it derives per-task date ranges, float, critical
// path membership and deadline risk. The computation is a pure function of
// its request: no I/O, no clock, no state shared between calls.
package schedule

import (
	"errors"
	"fmt"
)

// Calculate is the single entry point of the engine. It returns an error
// only for invalid input (empty items, non-positive hours per day, zero
// start date, duplicate identities); every other anomaly (dangling
// references, dependency cycles, absent estimates) is absorbed into the
// result so the caller always gets a best-effort schedule.
func Calculate(req Request) (*Result, error) {
	if len(req.Items) == 0 {
		return nil, errors.New("items are required")
	}
	if req.HoursPerDay <= 0 {
		return nil, errors.New("hours per day must be positive")
	}
	if req.StartDate.IsZero() {
		return nil, errors.New("start date is required")
	}
	seen := make(map[Ref]bool, len(req.Items))
	for _, it := range req.Items {
		if it.Type == "" || it.ID == "" {
			return nil, fmt.Errorf("item %q: item type and id are required", it.Title)
		}
		if seen[it.Ref] {
			return nil, fmt.Errorf("duplicate item %s", it.Ref)
		}
		seen[it.Ref] = true
	}

	g, dangling := buildGraph(req.Items)
	hasCycle, cycleMembers := g.detectCycles()
	order := g.topoOrder(cycleMembers)

	byRef := make(map[Ref]WorkItem, len(req.Items))
	durations := make(map[Ref]int, len(req.Items))
	for _, it := range req.Items {
		byRef[it.Ref] = it
		durations[it.Ref] = durationDays(it.EstimateHours, req.HoursPerDay)
	}

	fwd := forwardPass(g, order, durations, req.StartDate, req.IncludeWeekends)
	end := projectEnd(order, fwd)
	bwd := backwardPass(g, order, durations, end, req.IncludeWeekends)

	res := &Result{
		HasCycle: hasCycle,
		Tasks:    make([]Task, 0, len(req.Items)),
		Dangling: dangling,
	}
	summary := Summary{HasCycle: hasCycle}
	for i, it := range req.Items {
		fb, bb := fwd[it.Ref], bwd[it.Ref]
		floatDays, critical := analyzeFloat(it.Ref, fwd, bwd, cycleMembers, req.IncludeWeekends)
		hasRisk, reason, late := analyzeRisk(it, fb.finish, req.ProjectDeadline, req.IncludeWeekends)
		t := Task{
			Ref:            it.Ref,
			Title:          it.Title,
			Assignee:       it.Assignee,
			EstimateHours:  it.EstimateHours,
			EstimateSource: it.EstimateSource,
			DueDate:        it.DueDate,
			DurationDays:   durations[it.Ref],
			ScheduledStart: fb.start,
			ScheduledEnd:   fb.finish,
			EarliestStart:  fb.start,
			EarliestFinish: fb.finish,
			LatestStart:    bb.start,
			LatestFinish:   bb.finish,
			FloatDays:      floatDays,
			Critical:       critical,
			HasRisk:        hasRisk,
			RiskReason:     reason,
			DaysLate:       late,
			DependsOn:      resolvedDeps(it, g),
		}
		res.Tasks = append(res.Tasks, t)

		if i == 0 || t.ScheduledStart.Before(summary.StartDate) {
			summary.StartDate = t.ScheduledStart
		}
		if t.ScheduledEnd.After(summary.EndDate) {
			summary.EndDate = t.ScheduledEnd
		}
		summary.TotalTasks++
		if it.EstimateHours != nil {
			summary.TotalHours += *it.EstimateHours
		}
		if critical {
			summary.CriticalPathTasks++
			summary.CriticalPathHours += float64(durations[it.Ref]) * req.HoursPerDay
		}
		if hasRisk {
			summary.RisksCount++
		}
	}
	res.Summary = summary
	return res, nil
}

// resolvedDeps returns the item's dependency list with dangling references
// removed, preserving declaration order, for traceability on the task.
func resolvedDeps(it WorkItem, g *depGraph) []Ref {
	var deps []Ref
	for _, dep := range it.DependsOn {
		if _, ok := g.index[dep]; ok {
			deps = append(deps, dep)
		}
	}
	return deps
}
