package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"planline/internal/config"
	"planline/internal/domain"
	"planline/internal/events"
	"planline/internal/repo"
)

const dateLayout = "2006-01-02"

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ItemCreateOptions are parameters for creating an issue or action item.
type ItemCreateOptions struct {
	ID             string
	Title          string
	Description    string
	Assignee       string
	EstimateHours  *float64
	EstimateSource string
	DueDate        string
	DependsOn      []domain.ItemRef
	Tags           []string
	ActorID        string
}

func (o *ItemCreateOptions) validate() error {
	if o.Title == "" {
		return errors.New("title is required")
	}
	if o.DueDate != "" {
		if _, err := time.Parse(dateLayout, o.DueDate); err != nil {
			return fmt.Errorf("invalid due date: %w", err)
		}
	}
	if o.EstimateHours != nil && *o.EstimateHours < 0 {
		return errors.New("estimate hours must not be negative")
	}
	if o.EstimateHours != nil && o.EstimateSource == "" {
		o.EstimateSource = "manual"
	}
	return nil
}

func (e Engine) CreateIssue(ctx context.Context, opts ItemCreateOptions) (domain.Issue, error) {
	if err := opts.validate(); err != nil {
		return domain.Issue{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	i := domain.Issue{
		ID:             id,
		Title:          opts.Title,
		Description:    opts.Description,
		Status:         "open",
		Assignee:       optionalString(opts.Assignee),
		EstimateHours:  opts.EstimateHours,
		EstimateSource: opts.EstimateSource,
		DueDate:        optionalString(opts.DueDate),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Issue{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertIssue(ctx, tx, i); err != nil {
		return domain.Issue{}, err
	}
	ref := domain.ItemRef{Type: "issue", ID: i.ID}
	if len(opts.DependsOn) > 0 {
		if err := e.Repo.ReplaceDeps(ctx, tx, ref, opts.DependsOn); err != nil {
			return domain.Issue{}, err
		}
	}
	for _, tag := range opts.Tags {
		if err := e.Repo.AddTag(ctx, tx, ref, tag); err != nil {
			return domain.Issue{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "issue.created", "issue", i.ID, opts.ActorID, events.EventPayload{"title": i.Title}); err != nil {
		return domain.Issue{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Issue{}, err
	}
	i.DependsOn = opts.DependsOn
	i.Tags = opts.Tags
	return i, nil
}

// ItemUpdateOptions encapsulates allowed updates to an issue or action item.
type ItemUpdateOptions struct {
	ID             string
	Title          string
	Description    *string
	Status         string
	Assign         *string
	EstimateHours  *float64
	EstimateSource string
	DueDate        *string
	SetDeps        []domain.ItemRef
	ReplaceDeps    bool
	ActorID        string
	Force          bool
}

func (e Engine) UpdateIssue(ctx context.Context, opts ItemUpdateOptions) (domain.Issue, error) {
	i, err := e.Repo.GetIssue(ctx, opts.ID)
	if err != nil {
		return i, err
	}
	original := i.Status
	if opts.Title != "" {
		i.Title = opts.Title
	}
	if opts.Description != nil {
		i.Description = *opts.Description
	}
	if opts.Assign != nil {
		i.Assignee = optionalString(*opts.Assign)
	}
	if opts.EstimateHours != nil {
		if *opts.EstimateHours < 0 {
			return i, errors.New("estimate hours must not be negative")
		}
		i.EstimateHours = opts.EstimateHours
		i.EstimateSource = opts.EstimateSource
		if i.EstimateSource == "" {
			i.EstimateSource = "manual"
		}
	}
	if opts.DueDate != nil {
		if *opts.DueDate == "" {
			i.DueDate = nil
		} else {
			if _, err := time.Parse(dateLayout, *opts.DueDate); err != nil {
				return i, fmt.Errorf("due date: %w", err)
			}
			i.DueDate = opts.DueDate
		}
	}
	if opts.Status != "" && opts.Status != i.Status {
		if err := ensureIssueTransition(i.Status, opts.Status, opts.Force); err != nil {
			return i, err
		}
		i.Status = opts.Status
	}
	i.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return i, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateIssue(ctx, tx, i); err != nil {
		return i, err
	}
	if opts.ReplaceDeps {
		if err := e.Repo.ReplaceDeps(ctx, tx, domain.ItemRef{Type: "issue", ID: i.ID}, opts.SetDeps); err != nil {
			return i, err
		}
		i.DependsOn = opts.SetDeps
	}
	if err := e.Events.Append(ctx, tx, "issue.updated", "issue", i.ID, opts.ActorID, events.EventPayload{
		"from_status": original,
		"to_status":   i.Status,
	}); err != nil {
		return i, err
	}
	if err := tx.Commit(); err != nil {
		return i, err
	}
	return i, nil
}

func (e Engine) DeleteIssue(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteIssue(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "issue.deleted", "issue", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) CreateActionItem(ctx context.Context, opts ItemCreateOptions) (domain.ActionItem, error) {
	if err := opts.validate(); err != nil {
		return domain.ActionItem{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	a := domain.ActionItem{
		ID:             id,
		Title:          opts.Title,
		Status:         "open",
		Assignee:       optionalString(opts.Assignee),
		EstimateHours:  opts.EstimateHours,
		EstimateSource: opts.EstimateSource,
		DueDate:        optionalString(opts.DueDate),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ActionItem{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertActionItem(ctx, tx, a); err != nil {
		return domain.ActionItem{}, err
	}
	ref := domain.ItemRef{Type: "action-item", ID: a.ID}
	if len(opts.DependsOn) > 0 {
		if err := e.Repo.ReplaceDeps(ctx, tx, ref, opts.DependsOn); err != nil {
			return domain.ActionItem{}, err
		}
	}
	for _, tag := range opts.Tags {
		if err := e.Repo.AddTag(ctx, tx, ref, tag); err != nil {
			return domain.ActionItem{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, "action.created", "action-item", a.ID, opts.ActorID, events.EventPayload{"title": a.Title}); err != nil {
		return domain.ActionItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ActionItem{}, err
	}
	a.DependsOn = opts.DependsOn
	a.Tags = opts.Tags
	return a, nil
}

func (e Engine) UpdateActionItem(ctx context.Context, opts ItemUpdateOptions) (domain.ActionItem, error) {
	a, err := e.Repo.GetActionItem(ctx, opts.ID)
	if err != nil {
		return a, err
	}
	original := a.Status
	if opts.Title != "" {
		a.Title = opts.Title
	}
	if opts.Assign != nil {
		a.Assignee = optionalString(*opts.Assign)
	}
	if opts.EstimateHours != nil {
		if *opts.EstimateHours < 0 {
			return a, errors.New("estimate hours must not be negative")
		}
		a.EstimateHours = opts.EstimateHours
		a.EstimateSource = opts.EstimateSource
		if a.EstimateSource == "" {
			a.EstimateSource = "manual"
		}
	}
	if opts.DueDate != nil {
		if *opts.DueDate == "" {
			a.DueDate = nil
		} else {
			if _, err := time.Parse(dateLayout, *opts.DueDate); err != nil {
				return a, fmt.Errorf("due date: %w", err)
			}
			a.DueDate = opts.DueDate
		}
	}
	if opts.Status != "" && opts.Status != a.Status {
		if opts.Status != "open" && opts.Status != "done" {
			return a, fmt.Errorf("invalid action item status %s", opts.Status)
		}
		a.Status = opts.Status
	}
	a.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return a, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateActionItem(ctx, tx, a); err != nil {
		return a, err
	}
	if opts.ReplaceDeps {
		if err := e.Repo.ReplaceDeps(ctx, tx, domain.ItemRef{Type: "action-item", ID: a.ID}, opts.SetDeps); err != nil {
			return a, err
		}
		a.DependsOn = opts.SetDeps
	}
	if err := e.Events.Append(ctx, tx, "action.updated", "action-item", a.ID, opts.ActorID, events.EventPayload{
		"from_status": original,
		"to_status":   a.Status,
	}); err != nil {
		return a, err
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	return a, nil
}

func (e Engine) DeleteActionItem(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteActionItem(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "action.deleted", "action-item", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

func ensureIssueTransition(oldStatus, newStatus string, force bool) error {
	if force {
		return nil
	}
	switch oldStatus {
	case "open":
		if newStatus == "in_progress" || newStatus == "closed" {
			return nil
		}
	case "in_progress":
		if newStatus == "done" || newStatus == "open" || newStatus == "closed" {
			return nil
		}
	case "done":
		if newStatus == "closed" || newStatus == "open" {
			return nil
		}
	case "closed":
		if newStatus == "open" {
			return nil
		}
	}
	return fmt.Errorf("invalid issue status transition %s -> %s", oldStatus, newStatus)
}

// AddComment attaches a comment to an issue or action item.
func (e Engine) AddComment(ctx context.Context, item domain.ItemRef, body, actorID string) (domain.Comment, error) {
	if body == "" {
		return domain.Comment{}, errors.New("body is required")
	}
	if err := e.ensureItemExists(ctx, item); err != nil {
		return domain.Comment{}, err
	}
	c := domain.Comment{
		ID:        uuid.New().String(),
		ItemType:  item.Type,
		ItemID:    item.ID,
		Author:    actorID,
		Body:      body,
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertComment(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "comment.added", item.Type, item.ID, actorID, events.EventPayload{"comment_id": c.ID}); err != nil {
		return c, err
	}
	return c, tx.Commit()
}

// DeleteComment removes a comment from an issue or action item.
func (e Engine) DeleteComment(ctx context.Context, item domain.ItemRef, id, actorID string) error {
	if err := e.ensureItemExists(ctx, item); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteComment(ctx, tx, item, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "comment.removed", item.Type, item.ID, actorID, events.EventPayload{"comment_id": id}); err != nil {
		return err
	}
	return tx.Commit()
}

// TagItem adds or removes a tag on an issue or action item.
func (e Engine) TagItem(ctx context.Context, item domain.ItemRef, tag, actorID string, remove bool) error {
	if tag == "" {
		return errors.New("tag is required")
	}
	if err := e.ensureItemExists(ctx, item); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	evtType := "tag.added"
	if remove {
		evtType = "tag.removed"
		if err := e.Repo.RemoveTag(ctx, tx, item, tag); err != nil {
			return err
		}
	} else {
		if err := e.Repo.AddTag(ctx, tx, item, tag); err != nil {
			return err
		}
	}
	if err := e.Events.Append(ctx, tx, evtType, item.Type, item.ID, actorID, events.EventPayload{"tag": tag}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) ensureItemExists(ctx context.Context, item domain.ItemRef) error {
	switch item.Type {
	case "issue":
		_, err := e.Repo.GetIssue(ctx, item.ID)
		return err
	case "action-item":
		_, err := e.Repo.GetActionItem(ctx, item.ID)
		return err
	default:
		return fmt.Errorf("unknown item type %s", item.Type)
	}
}

// --- helpers ---

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
