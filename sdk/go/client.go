package planlinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Planline HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	ActorID     string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// ItemRef identifies an issue or action item.
type ItemRef struct {
	Type string `json:"item_type"`
	ID   string `json:"item_id"`
}

// Issue represents the API issue model.
type Issue struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status"`
	Assignee       *string   `json:"assignee,omitempty"`
	EstimateHours  *float64  `json:"estimate_hours,omitempty"`
	EstimateSource string    `json:"estimate_source,omitempty"`
	DueDate        *string   `json:"due_date,omitempty"`
	DependsOn      []ItemRef `json:"depends_on,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
}

// ActionItem represents the API action item model.
type ActionItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	Assignee      *string   `json:"assignee,omitempty"`
	EstimateHours *float64  `json:"estimate_hours,omitempty"`
	DueDate       *string   `json:"due_date,omitempty"`
	DependsOn     []ItemRef `json:"depends_on,omitempty"`
	CreatedAt     string    `json:"created_at"`
	UpdatedAt     string    `json:"updated_at"`
}

// ScheduleTask is one scheduled item within a schedule.
type ScheduleTask struct {
	Position       int       `json:"position"`
	ItemType       string    `json:"item_type"`
	ItemID         string    `json:"item_id"`
	Title          string    `json:"title"`
	DurationDays   int       `json:"duration_days"`
	ScheduledStart string    `json:"scheduled_start"`
	ScheduledEnd   string    `json:"scheduled_end"`
	FloatDays      *int      `json:"float_days,omitempty"`
	IsCriticalPath bool      `json:"is_critical_path"`
	HasRisk        bool      `json:"has_risk"`
	RiskReason     *string   `json:"risk_reason,omitempty"`
	DaysLate       int       `json:"days_late"`
	DependsOn      []ItemRef `json:"dependencies,omitempty"`
}

// ScheduleSummary aggregates a schedule.
type ScheduleSummary struct {
	StartDate         string  `json:"start_date"`
	EndDate           string  `json:"end_date"`
	TotalTasks        int     `json:"total_tasks"`
	TotalHours        float64 `json:"total_hours"`
	CriticalPathTasks int     `json:"critical_path_tasks"`
	CriticalPathHours float64 `json:"critical_path_hours"`
	RisksCount        int     `json:"risks_count"`
	HasCycle          bool    `json:"has_cycle"`
}

// Schedule is a stored schedule with its computed tasks.
type Schedule struct {
	ID              string          `json:"id"`
	CreatedAt       string          `json:"created_at"`
	HoursPerDay     float64         `json:"hours_per_day"`
	IncludeWeekends bool            `json:"include_weekends"`
	HasCycle        bool            `json:"has_cycle"`
	Summary         ScheduleSummary `json:"summary"`
	Tasks           []ScheduleTask  `json:"tasks,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// CreateIssueOptions carries optional fields for CreateIssue.
type CreateIssueOptions struct {
	ID            string
	Description   string
	Assignee      string
	EstimateHours *float64
	DueDate       string
	DependsOn     []ItemRef
	Tags          []string
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateIssue creates an issue.
func (c *Client) CreateIssue(ctx context.Context, title string, opts *CreateIssueOptions) (Issue, error) {
	body := map[string]any{"title": title}
	if opts != nil {
		if opts.ID != "" {
			body["id"] = opts.ID
		}
		if opts.Description != "" {
			body["description"] = opts.Description
		}
		if opts.Assignee != "" {
			body["assignee"] = opts.Assignee
		}
		if opts.EstimateHours != nil {
			body["estimate_hours"] = *opts.EstimateHours
		}
		if opts.DueDate != "" {
			body["due_date"] = opts.DueDate
		}
		if len(opts.DependsOn) > 0 {
			body["depends_on"] = opts.DependsOn
		}
		if len(opts.Tags) > 0 {
			body["tags"] = opts.Tags
		}
	}
	var resp Issue
	err := c.do(ctx, http.MethodPost, "v0/issues", body, &resp)
	return resp, err
}

// GetIssue fetches an issue by id.
func (c *Client) GetIssue(ctx context.Context, id string) (Issue, error) {
	var resp Issue
	err := c.do(ctx, http.MethodGet, "v0/issues/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListIssues returns issues, optionally filtered by status.
func (c *Client) ListIssues(ctx context.Context, status string) ([]Issue, error) {
	endpoint := "v0/issues"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var resp []Issue
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// UpdateIssueStatus moves an issue to a new status.
func (c *Client) UpdateIssueStatus(ctx context.Context, id, status string, force bool) (Issue, error) {
	endpoint := "v0/issues/" + url.PathEscape(id)
	if force {
		endpoint += "?force=true"
	}
	var resp Issue
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// CreateActionItem creates an action item.
func (c *Client) CreateActionItem(ctx context.Context, title string, estimateHours *float64) (ActionItem, error) {
	body := map[string]any{"title": title}
	if estimateHours != nil {
		body["estimate_hours"] = *estimateHours
	}
	var resp ActionItem
	err := c.do(ctx, http.MethodPost, "v0/action-items", body, &resp)
	return resp, err
}

// CreateSchedule computes and stores a schedule from all open items.
func (c *Client) CreateSchedule(ctx context.Context, startDate string) (Schedule, error) {
	body := map[string]any{}
	if startDate != "" {
		body["start_date"] = startDate
	}
	var resp Schedule
	err := c.do(ctx, http.MethodPost, "v0/schedules", body, &resp)
	return resp, err
}

// GetSchedule fetches a schedule with tasks.
func (c *Client) GetSchedule(ctx context.Context, id string) (Schedule, error) {
	var resp Schedule
	err := c.do(ctx, http.MethodGet, "v0/schedules/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ActorID != "":
		req.Header.Set("X-Actor-ID", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
