package domain

// ItemRef points at an issue or action item by its (type, id) pair.
type ItemRef struct {
	Type string `json:"item_type" enum:"issue,action-item"`
	ID   string `json:"item_id"`
}

type Issue struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status" enum:"open,in_progress,done,closed"`
	Assignee       *string   `json:"assignee,omitempty"`
	EstimateHours  *float64  `json:"estimate_hours,omitempty"`
	EstimateSource string    `json:"estimate_source,omitempty" enum:"manual,ai,default"`
	DueDate        *string   `json:"due_date,omitempty" format:"date"`
	DependsOn      []ItemRef `json:"depends_on,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      string    `json:"created_at" format:"date-time"`
	UpdatedAt      string    `json:"updated_at" format:"date-time"`
}

type ActionItem struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Status         string    `json:"status" enum:"open,done"`
	Assignee       *string   `json:"assignee,omitempty"`
	EstimateHours  *float64  `json:"estimate_hours,omitempty"`
	EstimateSource string    `json:"estimate_source,omitempty" enum:"manual,ai,default"`
	DueDate        *string   `json:"due_date,omitempty" format:"date"`
	DependsOn      []ItemRef `json:"depends_on,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      string    `json:"created_at" format:"date-time"`
	UpdatedAt      string    `json:"updated_at" format:"date-time"`
}

type Comment struct {
	ID        string `json:"id"`
	ItemType  string `json:"item_type"`
	ItemID    string `json:"item_id"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Schedule is one stored scheduling run: a header row plus one
// ScheduleTask row per input item. Schedules are immutable once stored;
// re-planning creates a new one.
type Schedule struct {
	ID                string  `json:"id"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
	StartDate         string  `json:"start_date" format:"date"`
	EndDate           string  `json:"end_date" format:"date"`
	HoursPerDay       float64 `json:"hours_per_day"`
	IncludeWeekends   bool    `json:"include_weekends"`
	ProjectDeadline   *string `json:"project_deadline,omitempty" format:"date"`
	HasCycle          bool    `json:"has_cycle"`
	TotalTasks        int     `json:"total_tasks"`
	TotalHours        float64 `json:"total_hours"`
	CriticalPathTasks int     `json:"critical_path_tasks"`
	CriticalPathHours float64 `json:"critical_path_hours"`
	RisksCount        int     `json:"risks_count"`
	DanglingJSON      *string `json:"dangling_json,omitempty"`
}

type ScheduleTask struct {
	ScheduleID     string   `json:"schedule_id"`
	Position       int      `json:"position"`
	ItemType       string   `json:"item_type"`
	ItemID         string   `json:"item_id"`
	Title          string   `json:"title"`
	Assignee       *string  `json:"assignee,omitempty"`
	EstimateHours  *float64 `json:"estimate_hours,omitempty"`
	EstimateSource string   `json:"estimate_source,omitempty"`
	DueDate        *string  `json:"due_date,omitempty" format:"date"`
	DurationDays   int      `json:"duration_days"`
	ScheduledStart string   `json:"scheduled_start" format:"date"`
	ScheduledEnd   string   `json:"scheduled_end" format:"date"`
	EarliestStart  string   `json:"earliest_start" format:"date"`
	EarliestFinish string   `json:"earliest_finish" format:"date"`
	LatestStart    string   `json:"latest_start" format:"date"`
	LatestFinish   string   `json:"latest_finish" format:"date"`
	FloatDays      *int     `json:"float_days,omitempty"`
	IsCriticalPath bool     `json:"is_critical_path"`
	HasRisk        bool     `json:"has_risk"`
	RiskReason     *string  `json:"risk_reason,omitempty" enum:"exceeds-item-due-date,exceeds-project-deadline"`
	DaysLate       int      `json:"days_late"`
	DepsJSON       *string  `json:"deps_json,omitempty"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
