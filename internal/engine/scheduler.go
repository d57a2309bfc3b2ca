package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"planline/internal/domain"
	"planline/internal/events"
	"planline/internal/repo"
	"planline/internal/schedule"
)

// ScheduleCreateOptions are parameters for computing and storing a
// schedule. Zero-valued fields fall back to the config's scheduling
// defaults.
type ScheduleCreateOptions struct {
	StartDate       string
	HoursPerDay     float64
	IncludeWeekends *bool
	ProjectDeadline string
	ActorID         string
}

// CreateSchedule resolves all open issues and action items into work
// items, runs the scheduling engine over them and stores the result as a
// header row plus one row per task. The stored schedule is immutable;
// re-planning creates a new one.
func (e Engine) CreateSchedule(ctx context.Context, opts ScheduleCreateOptions) (domain.Schedule, []domain.ScheduleTask, error) {
	if e.Config == nil {
		return domain.Schedule{}, nil, errors.New("config not loaded")
	}
	req, err := e.buildScheduleRequest(ctx, opts)
	if err != nil {
		return domain.Schedule{}, nil, err
	}
	res, err := schedule.Calculate(*req)
	if err != nil {
		return domain.Schedule{}, nil, err
	}

	now := e.now().UTC().Format(time.RFC3339)
	s := domain.Schedule{
		ID:                uuid.New().String(),
		CreatedAt:         now,
		StartDate:         res.Summary.StartDate.Format(dateLayout),
		EndDate:           res.Summary.EndDate.Format(dateLayout),
		HoursPerDay:       req.HoursPerDay,
		IncludeWeekends:   req.IncludeWeekends,
		HasCycle:          res.HasCycle,
		TotalTasks:        res.Summary.TotalTasks,
		TotalHours:        res.Summary.TotalHours,
		CriticalPathTasks: res.Summary.CriticalPathTasks,
		CriticalPathHours: res.Summary.CriticalPathHours,
		RisksCount:        res.Summary.RisksCount,
	}
	if req.ProjectDeadline != nil {
		d := req.ProjectDeadline.Format(dateLayout)
		s.ProjectDeadline = &d
	}
	if len(res.Dangling) > 0 {
		b, err := json.Marshal(res.Dangling)
		if err != nil {
			return domain.Schedule{}, nil, fmt.Errorf("marshal dangling refs: %w", err)
		}
		j := string(b)
		s.DanglingJSON = &j
	}
	tasks := make([]domain.ScheduleTask, 0, len(res.Tasks))
	for i, t := range res.Tasks {
		row, err := scheduleTaskRow(s.ID, i, t)
		if err != nil {
			return domain.Schedule{}, nil, err
		}
		tasks = append(tasks, row)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Schedule{}, nil, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertSchedule(ctx, tx, s, tasks); err != nil {
		return domain.Schedule{}, nil, err
	}
	if err := e.Events.Append(ctx, tx, "schedule.created", "schedule", s.ID, opts.ActorID, events.EventPayload{
		"total_tasks": s.TotalTasks,
		"has_cycle":   s.HasCycle,
		"risks_count": s.RisksCount,
	}); err != nil {
		return domain.Schedule{}, nil, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Schedule{}, nil, err
	}
	return s, tasks, nil
}

// buildScheduleRequest gathers schedulable items and resolves per-call
// configuration against the config defaults. Items without an estimate get
// the config's per-type default hours with provenance "default"; items
// still lacking one are scheduled with the engine's minimum duration.
func (e Engine) buildScheduleRequest(ctx context.Context, opts ScheduleCreateOptions) (*schedule.Request, error) {
	startStr := opts.StartDate
	if startStr == "" {
		startStr = e.now().UTC().Format(dateLayout)
	}
	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	hoursPerDay := opts.HoursPerDay
	if hoursPerDay == 0 {
		hoursPerDay = e.Config.Scheduling.HoursPerDay
	}
	includeWeekends := e.Config.Scheduling.IncludeWeekends
	if opts.IncludeWeekends != nil {
		includeWeekends = *opts.IncludeWeekends
	}
	deadlineStr := opts.ProjectDeadline
	if deadlineStr == "" {
		deadlineStr = e.Config.Scheduling.ProjectDeadline
	}
	var deadline *time.Time
	if deadlineStr != "" {
		d, err := time.Parse(dateLayout, deadlineStr)
		if err != nil {
			return nil, fmt.Errorf("invalid project deadline: %w", err)
		}
		deadline = &d
	}

	var items []schedule.WorkItem
	issues, err := e.Repo.ListIssues(ctx, repo.IssueFilters{})
	if err != nil {
		return nil, err
	}
	for _, i := range issues {
		if i.Status != "open" && i.Status != "in_progress" {
			continue
		}
		deps, err := e.Repo.ListDeps(ctx, domain.ItemRef{Type: "issue", ID: i.ID})
		if err != nil {
			return nil, err
		}
		items = append(items, e.workItem("issue", i.ID, i.Title, i.Assignee, i.EstimateHours, i.EstimateSource, i.DueDate, deps))
	}
	actions, err := e.Repo.ListActionItems(ctx, "open")
	if err != nil {
		return nil, err
	}
	for _, a := range actions {
		deps, err := e.Repo.ListDeps(ctx, domain.ItemRef{Type: "action-item", ID: a.ID})
		if err != nil {
			return nil, err
		}
		items = append(items, e.workItem("action-item", a.ID, a.Title, a.Assignee, a.EstimateHours, a.EstimateSource, a.DueDate, deps))
	}
	if len(items) == 0 {
		return nil, errors.New("no open items to schedule")
	}

	return &schedule.Request{
		Items:           items,
		StartDate:       start,
		HoursPerDay:     hoursPerDay,
		IncludeWeekends: includeWeekends,
		ProjectDeadline: deadline,
	}, nil
}

func (e Engine) workItem(typ, id, title string, assignee *string, estimate *float64, source string, due *string, deps []domain.ItemRef) schedule.WorkItem {
	w := schedule.WorkItem{
		Ref:            schedule.Ref{Type: typ, ID: id},
		Title:          title,
		EstimateHours:  estimate,
		EstimateSource: source,
	}
	if assignee != nil {
		w.Assignee = *assignee
	}
	if w.EstimateHours == nil {
		if h, ok := e.Config.Estimates.DefaultHours[typ]; ok && h > 0 {
			w.EstimateHours = &h
			w.EstimateSource = "default"
		}
	}
	if due != nil {
		if d, err := time.Parse(dateLayout, *due); err == nil {
			w.DueDate = &d
		}
	}
	for _, d := range deps {
		w.DependsOn = append(w.DependsOn, schedule.Ref{Type: d.Type, ID: d.ID})
	}
	return w
}

func scheduleTaskRow(scheduleID string, position int, t schedule.Task) (domain.ScheduleTask, error) {
	row := domain.ScheduleTask{
		ScheduleID:     scheduleID,
		Position:       position,
		ItemType:       t.Type,
		ItemID:         t.ID,
		Title:          t.Title,
		Assignee:       optionalString(t.Assignee),
		EstimateHours:  t.EstimateHours,
		EstimateSource: t.EstimateSource,
		DurationDays:   t.DurationDays,
		ScheduledStart: t.ScheduledStart.Format(dateLayout),
		ScheduledEnd:   t.ScheduledEnd.Format(dateLayout),
		EarliestStart:  t.EarliestStart.Format(dateLayout),
		EarliestFinish: t.EarliestFinish.Format(dateLayout),
		LatestStart:    t.LatestStart.Format(dateLayout),
		LatestFinish:   t.LatestFinish.Format(dateLayout),
		FloatDays:      t.FloatDays,
		IsCriticalPath: t.Critical,
		HasRisk:        t.HasRisk,
		RiskReason:     optionalString(t.RiskReason),
		DaysLate:       t.DaysLate,
	}
	if t.DueDate != nil {
		d := t.DueDate.Format(dateLayout)
		row.DueDate = &d
	}
	if len(t.DependsOn) > 0 {
		b, err := json.Marshal(t.DependsOn)
		if err != nil {
			return row, fmt.Errorf("marshal task deps: %w", err)
		}
		j := string(b)
		row.DepsJSON = &j
	}
	return row, nil
}
