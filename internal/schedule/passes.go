package schedule

import "time"

// bounds holds the inclusive start/finish pair computed by a pass.
type bounds struct {
	start  time.Time
	finish time.Time
}

// forwardPass computes earliest start/finish per task by walking the
// topological order. A task starts on the project start (rolled onto a
// working day) or on the first working day after its latest predecessor's
// finish. Predecessors without a computed finish (edges inside a dependency
// cycle) impose no constraint, same as a dropped dangling edge.
func forwardPass(g *depGraph, order []Ref, durations map[Ref]int, startDate time.Time, includeWeekends bool) map[Ref]bounds {
	out := make(map[Ref]bounds, len(order))
	base := rollForward(startDate, includeWeekends)
	for _, n := range order {
		es := base
		for _, p := range g.pred[n] {
			pb, ok := out[p]
			if !ok {
				continue
			}
			if cand := nextWorkingDay(pb.finish, includeWeekends); cand.After(es) {
				es = cand
			}
		}
		out[n] = bounds{start: es, finish: addWorkingDuration(es, durations[n], includeWeekends)}
	}
	return out
}

// projectEnd is the maximum earliest finish across all tasks.
func projectEnd(order []Ref, fwd map[Ref]bounds) time.Time {
	var end time.Time
	for _, n := range order {
		if f := fwd[n].finish; f.After(end) {
			end = f
		}
	}
	return end
}

// backwardPass computes latest start/finish per task by walking the reverse
// topological order from the overall project finish. A task without
// successors may finish as late as the project end; otherwise it must
// finish before its earliest successor starts.
func backwardPass(g *depGraph, order []Ref, durations map[Ref]int, end time.Time, includeWeekends bool) map[Ref]bounds {
	out := make(map[Ref]bounds, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		lf := end
		for _, s := range g.succ[n] {
			sb, ok := out[s]
			if !ok {
				continue
			}
			if cand := prevWorkingDay(sb.start, includeWeekends); cand.Before(lf) {
				lf = cand
			}
		}
		out[n] = bounds{start: subWorkingDuration(lf, durations[n], includeWeekends), finish: lf}
	}
	return out
}

// analyzeFloat derives float from the two passes. Zero float marks the
// critical path. Cycle members get nil float and are never critical, since
// CPM float is undefined in the presence of cycles.
func analyzeFloat(n Ref, fwd, bwd map[Ref]bounds, cycleMembers map[Ref]bool, includeWeekends bool) (*int, bool) {
	if cycleMembers[n] {
		return nil, false
	}
	f := workingDaysBetween(fwd[n].start, bwd[n].start, includeWeekends)
	return &f, f == 0
}

// analyzeRisk compares a task's earliest finish against its own due date
// and then the project deadline. Only one reason is reported; the item due
// date wins as the more specific constraint. Lateness is expressed in
// working days for consistency with how durations were computed.
func analyzeRisk(item WorkItem, earliestFinish time.Time, deadline *time.Time, includeWeekends bool) (bool, string, int) {
	if item.DueDate != nil && earliestFinish.After(day(*item.DueDate)) {
		return true, RiskItemDueDate, workingDaysBetween(*item.DueDate, earliestFinish, includeWeekends)
	}
	if deadline != nil && earliestFinish.After(day(*deadline)) {
		return true, RiskProjectDeadline, workingDaysBetween(*deadline, earliestFinish, includeWeekends)
	}
	return false, "", 0
}
