package schedule

import "time"

// Ref identifies a work item within one scheduling batch by its
// (item type, item id) pair.
type Ref struct {
	Type string `json:"item_type"`
	ID   string `json:"item_id"`
}

func (r Ref) String() string {
	return r.Type + ":" + r.ID
}

// WorkItem is one schedulable unit handed to the engine by the caller.
// The engine never mutates it.
type WorkItem struct {
	Ref
	Title          string
	Assignee       string
	EstimateHours  *float64
	EstimateSource string
	DueDate        *time.Time
	DependsOn      []Ref
}

// Request carries the full input of one scheduling call. Configuration is
// explicit per call; the engine keeps no ambient state between calls.
type Request struct {
	Items           []WorkItem
	StartDate       time.Time
	HoursPerDay     float64
	IncludeWeekends bool
	ProjectDeadline *time.Time
}

// Risk reasons reported per task. An item-level due date is the more
// specific constraint and takes precedence over the project deadline.
const (
	RiskItemDueDate     = "exceeds-item-due-date"
	RiskProjectDeadline = "exceeds-project-deadline"
)

// Task is the scheduled counterpart of one WorkItem. FloatDays is nil for
// tasks involved in a dependency cycle, where CPM float is undefined.
type Task struct {
	Ref
	Title          string     `json:"title"`
	Assignee       string     `json:"assignee,omitempty"`
	EstimateHours  *float64   `json:"estimate_hours,omitempty"`
	EstimateSource string     `json:"estimate_source,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	DurationDays   int        `json:"duration_days"`
	ScheduledStart time.Time  `json:"scheduled_start"`
	ScheduledEnd   time.Time  `json:"scheduled_end"`
	EarliestStart  time.Time  `json:"earliest_start"`
	EarliestFinish time.Time  `json:"earliest_finish"`
	LatestStart    time.Time  `json:"latest_start"`
	LatestFinish   time.Time  `json:"latest_finish"`
	FloatDays      *int       `json:"float_days,omitempty"`
	Critical       bool       `json:"is_critical_path"`
	HasRisk        bool       `json:"has_risk"`
	RiskReason     string     `json:"risk_reason,omitempty"`
	DaysLate       int        `json:"days_late"`
	DependsOn      []Ref      `json:"dependencies,omitempty"`
}

// Summary aggregates over the produced tasks.
type Summary struct {
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	TotalTasks        int       `json:"total_tasks"`
	TotalHours        float64   `json:"total_hours"`
	CriticalPathTasks int       `json:"critical_path_tasks"`
	CriticalPathHours float64   `json:"critical_path_hours"`
	RisksCount        int       `json:"risks_count"`
	HasCycle          bool      `json:"has_cycle"`
}

// DanglingRef records a dependency reference whose target was absent from
// the batch. The edge is dropped but the reference is reported.
type DanglingRef struct {
	From Ref `json:"from"`
	To   Ref `json:"to"`
}

// Result is the output of Calculate. Tasks appear in input order.
type Result struct {
	HasCycle bool          `json:"has_cycle"`
	Tasks    []Task        `json:"tasks"`
	Summary  Summary       `json:"summary"`
	Dangling []DanglingRef `json:"dangling_refs,omitempty"`
}
