package server

import (
	"encoding/json"

	"planline/internal/domain"
)

// Request payloads

type CreateItemRequest struct {
	ID             *string          `json:"id,omitempty"`
	Title          string           `json:"title"`
	Description    *string          `json:"description,omitempty"`
	Assignee       *string          `json:"assignee,omitempty"`
	EstimateHours  *float64         `json:"estimate_hours,omitempty"`
	EstimateSource *string          `json:"estimate_source,omitempty" enum:"manual,ai"`
	DueDate        *string          `json:"due_date,omitempty" format:"date"`
	DependsOn      []domain.ItemRef `json:"depends_on,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
}

type UpdateItemRequest struct {
	Title          *string          `json:"title,omitempty"`
	Description    *string          `json:"description,omitempty"`
	Status         *string          `json:"status,omitempty"`
	Assignee       *string          `json:"assignee,omitempty"`
	EstimateHours  *float64         `json:"estimate_hours,omitempty"`
	EstimateSource *string          `json:"estimate_source,omitempty" enum:"manual,ai"`
	DueDate        *string          `json:"due_date,omitempty" format:"date"`
	DependsOn      []domain.ItemRef `json:"depends_on,omitempty"`
}

type CreateCommentRequest struct {
	Body string `json:"body"`
}

type CreateScheduleRequest struct {
	StartDate       *string  `json:"start_date,omitempty" format:"date"`
	HoursPerDay     *float64 `json:"hours_per_day,omitempty"`
	IncludeWeekends *bool    `json:"include_weekends,omitempty"`
	ProjectDeadline *string  `json:"project_deadline,omitempty" format:"date"`
}

type DevTokenRequest struct {
	ActorID string `json:"actor_id"`
}

// Response payloads

type IssueResponse struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description,omitempty"`
	Status         string           `json:"status" enum:"open,in_progress,done,closed"`
	Assignee       *string          `json:"assignee,omitempty"`
	EstimateHours  *float64         `json:"estimate_hours,omitempty"`
	EstimateSource string           `json:"estimate_source,omitempty" enum:"manual,ai,default"`
	DueDate        *string          `json:"due_date,omitempty" format:"date"`
	DependsOn      []domain.ItemRef `json:"depends_on,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	CreatedAt      string           `json:"created_at" format:"date-time"`
	UpdatedAt      string           `json:"updated_at" format:"date-time"`
}

type ActionItemResponse struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Status         string           `json:"status" enum:"open,done"`
	Assignee       *string          `json:"assignee,omitempty"`
	EstimateHours  *float64         `json:"estimate_hours,omitempty"`
	EstimateSource string           `json:"estimate_source,omitempty" enum:"manual,ai,default"`
	DueDate        *string          `json:"due_date,omitempty" format:"date"`
	DependsOn      []domain.ItemRef `json:"depends_on,omitempty"`
	Tags           []string         `json:"tags,omitempty"`
	CreatedAt      string           `json:"created_at" format:"date-time"`
	UpdatedAt      string           `json:"updated_at" format:"date-time"`
}

type CommentResponse struct {
	ID        string `json:"id"`
	ItemType  string `json:"item_type"`
	ItemID    string `json:"item_id"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type ScheduleTaskResponse struct {
	Position       int              `json:"position"`
	ItemType       string           `json:"item_type"`
	ItemID         string           `json:"item_id"`
	Title          string           `json:"title"`
	Assignee       *string          `json:"assignee,omitempty"`
	EstimateHours  *float64         `json:"estimate_hours,omitempty"`
	EstimateSource string           `json:"estimate_source,omitempty"`
	DueDate        *string          `json:"due_date,omitempty" format:"date"`
	DurationDays   int              `json:"duration_days"`
	ScheduledStart string           `json:"scheduled_start" format:"date"`
	ScheduledEnd   string           `json:"scheduled_end" format:"date"`
	FloatDays      *int             `json:"float_days,omitempty"`
	IsCriticalPath bool             `json:"is_critical_path"`
	HasRisk        bool             `json:"has_risk"`
	RiskReason     *string          `json:"risk_reason,omitempty"`
	DaysLate       int              `json:"days_late"`
	DependsOn      []domain.ItemRef `json:"dependencies,omitempty"`
}

type ScheduleSummaryResponse struct {
	StartDate         string  `json:"start_date" format:"date"`
	EndDate           string  `json:"end_date" format:"date"`
	TotalTasks        int     `json:"total_tasks"`
	TotalHours        float64 `json:"total_hours"`
	CriticalPathTasks int     `json:"critical_path_tasks"`
	CriticalPathHours float64 `json:"critical_path_hours"`
	RisksCount        int     `json:"risks_count"`
	HasCycle          bool    `json:"has_cycle"`
}

type ScheduleResponse struct {
	ID              string                  `json:"id"`
	CreatedAt       string                  `json:"created_at" format:"date-time"`
	HoursPerDay     float64                 `json:"hours_per_day"`
	IncludeWeekends bool                    `json:"include_weekends"`
	ProjectDeadline *string                 `json:"project_deadline,omitempty" format:"date"`
	HasCycle        bool                    `json:"has_cycle"`
	Summary         ScheduleSummaryResponse `json:"summary"`
	Tasks           []ScheduleTaskResponse  `json:"tasks,omitempty"`
	DanglingRefs    []DanglingRefResponse   `json:"dangling_refs,omitempty"`
}

type DanglingRefResponse struct {
	From domain.ItemRef `json:"from"`
	To   domain.ItemRef `json:"to"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type DevTokenResponse struct {
	Token string `json:"token"`
}

// Mappers

func issueResponse(i domain.Issue) IssueResponse {
	return IssueResponse{
		ID:             i.ID,
		Title:          i.Title,
		Description:    i.Description,
		Status:         i.Status,
		Assignee:       i.Assignee,
		EstimateHours:  i.EstimateHours,
		EstimateSource: i.EstimateSource,
		DueDate:        i.DueDate,
		DependsOn:      i.DependsOn,
		Tags:           i.Tags,
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}

func mapIssues(items []domain.Issue) []IssueResponse {
	out := make([]IssueResponse, 0, len(items))
	for _, i := range items {
		out = append(out, issueResponse(i))
	}
	return out
}

func actionItemResponse(a domain.ActionItem) ActionItemResponse {
	return ActionItemResponse{
		ID:             a.ID,
		Title:          a.Title,
		Status:         a.Status,
		Assignee:       a.Assignee,
		EstimateHours:  a.EstimateHours,
		EstimateSource: a.EstimateSource,
		DueDate:        a.DueDate,
		DependsOn:      a.DependsOn,
		Tags:           a.Tags,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func mapActionItems(items []domain.ActionItem) []ActionItemResponse {
	out := make([]ActionItemResponse, 0, len(items))
	for _, a := range items {
		out = append(out, actionItemResponse(a))
	}
	return out
}

func commentResponse(c domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		ItemType:  c.ItemType,
		ItemID:    c.ItemID,
		Author:    c.Author,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
}

func scheduleResponse(s domain.Schedule, tasks []domain.ScheduleTask) ScheduleResponse {
	resp := ScheduleResponse{
		ID:              s.ID,
		CreatedAt:       s.CreatedAt,
		HoursPerDay:     s.HoursPerDay,
		IncludeWeekends: s.IncludeWeekends,
		ProjectDeadline: s.ProjectDeadline,
		HasCycle:        s.HasCycle,
		Summary: ScheduleSummaryResponse{
			StartDate:         s.StartDate,
			EndDate:           s.EndDate,
			TotalTasks:        s.TotalTasks,
			TotalHours:        s.TotalHours,
			CriticalPathTasks: s.CriticalPathTasks,
			CriticalPathHours: s.CriticalPathHours,
			RisksCount:        s.RisksCount,
			HasCycle:          s.HasCycle,
		},
	}
	for _, t := range tasks {
		tr := ScheduleTaskResponse{
			Position:       t.Position,
			ItemType:       t.ItemType,
			ItemID:         t.ItemID,
			Title:          t.Title,
			Assignee:       t.Assignee,
			EstimateHours:  t.EstimateHours,
			EstimateSource: t.EstimateSource,
			DueDate:        t.DueDate,
			DurationDays:   t.DurationDays,
			ScheduledStart: t.ScheduledStart,
			ScheduledEnd:   t.ScheduledEnd,
			FloatDays:      t.FloatDays,
			IsCriticalPath: t.IsCriticalPath,
			HasRisk:        t.HasRisk,
			RiskReason:     t.RiskReason,
			DaysLate:       t.DaysLate,
		}
		if t.DepsJSON != nil {
			_ = json.Unmarshal([]byte(*t.DepsJSON), &tr.DependsOn)
		}
		resp.Tasks = append(resp.Tasks, tr)
	}
	if s.DanglingJSON != nil {
		_ = json.Unmarshal([]byte(*s.DanglingJSON), &resp.DanglingRefs)
	}
	return resp
}

func mapEvents(events []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			ID:         e.ID,
			TS:         e.TS,
			Type:       e.Type,
			EntityKind: e.EntityKind,
			EntityID:   e.EntityID,
			ActorID:    e.ActorID,
			Payload:    e.Payload,
		})
	}
	return out
}
