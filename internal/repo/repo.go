package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"planline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const (
	issueCols  = `id,title,COALESCE(description,''),status,assignee,estimate_hours,estimate_source,due_date,created_at,updated_at`
	actionCols = `id,title,status,assignee,estimate_hours,estimate_source,due_date,created_at,updated_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (domain.Issue, error) {
	var i domain.Issue
	var assignee, source, due sql.NullString
	var estimate sql.NullFloat64
	err := row.Scan(&i.ID, &i.Title, &i.Description, &i.Status, &assignee, &estimate, &source, &due, &i.CreatedAt, &i.UpdatedAt)
	if err == sql.ErrNoRows {
		return i, ErrNotFound
	}
	if err != nil {
		return i, err
	}
	if assignee.Valid {
		i.Assignee = &assignee.String
	}
	if estimate.Valid {
		i.EstimateHours = &estimate.Float64
	}
	if source.Valid {
		i.EstimateSource = source.String
	}
	if due.Valid {
		i.DueDate = &due.String
	}
	return i, nil
}

func scanActionItem(row rowScanner) (domain.ActionItem, error) {
	var a domain.ActionItem
	var assignee, source, due sql.NullString
	var estimate sql.NullFloat64
	err := row.Scan(&a.ID, &a.Title, &a.Status, &assignee, &estimate, &source, &due, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if assignee.Valid {
		a.Assignee = &assignee.String
	}
	if estimate.Valid {
		a.EstimateHours = &estimate.Float64
	}
	if source.Valid {
		a.EstimateSource = source.String
	}
	if due.Valid {
		a.DueDate = &due.String
	}
	return a, nil
}

func (r Repo) InsertIssue(ctx context.Context, tx *sql.Tx, i domain.Issue) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO issues(id,title,description,status,assignee,estimate_hours,estimate_source,due_date,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		i.ID, i.Title, nullable(i.Description), i.Status, ptrArg(i.Assignee), floatArg(i.EstimateHours), nullable(i.EstimateSource), ptrArg(i.DueDate), i.CreatedAt, i.UpdatedAt)
	return err
}

func (r Repo) GetIssue(ctx context.Context, id string) (domain.Issue, error) {
	i, err := scanIssue(r.DB.QueryRowContext(ctx, `SELECT `+issueCols+` FROM issues WHERE id=?`, id))
	if err != nil {
		return i, err
	}
	i.DependsOn, err = r.ListDeps(ctx, domain.ItemRef{Type: "issue", ID: id})
	if err != nil {
		return i, err
	}
	i.Tags, err = r.ListTags(ctx, domain.ItemRef{Type: "issue", ID: id})
	return i, err
}

type IssueFilters struct {
	Status   string
	Assignee string
	Tag      string
}

func (r Repo) ListIssues(ctx context.Context, f IssueFilters) ([]domain.Issue, error) {
	query := `SELECT ` + issueCols + ` FROM issues`
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	if f.Assignee != "" {
		where = append(where, "assignee=?")
		args = append(args, f.Assignee)
	}
	if f.Tag != "" {
		where = append(where, "id IN (SELECT item_id FROM item_tags WHERE item_type='issue' AND tag=?)")
		args = append(args, f.Tag)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r Repo) UpdateIssue(ctx context.Context, tx *sql.Tx, i domain.Issue) error {
	res, err := tx.ExecContext(ctx, `UPDATE issues SET title=?,description=?,status=?,assignee=?,estimate_hours=?,estimate_source=?,due_date=?,updated_at=? WHERE id=?`,
		i.Title, nullable(i.Description), i.Status, ptrArg(i.Assignee), floatArg(i.EstimateHours), nullable(i.EstimateSource), ptrArg(i.DueDate), i.UpdatedAt, i.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r Repo) DeleteIssue(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM issues WHERE id=?`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return r.deleteItemRows(ctx, tx, domain.ItemRef{Type: "issue", ID: id})
}

func (r Repo) InsertActionItem(ctx context.Context, tx *sql.Tx, a domain.ActionItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO action_items(id,title,status,assignee,estimate_hours,estimate_source,due_date,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		a.ID, a.Title, a.Status, ptrArg(a.Assignee), floatArg(a.EstimateHours), nullable(a.EstimateSource), ptrArg(a.DueDate), a.CreatedAt, a.UpdatedAt)
	return err
}

func (r Repo) GetActionItem(ctx context.Context, id string) (domain.ActionItem, error) {
	a, err := scanActionItem(r.DB.QueryRowContext(ctx, `SELECT `+actionCols+` FROM action_items WHERE id=?`, id))
	if err != nil {
		return a, err
	}
	a.DependsOn, err = r.ListDeps(ctx, domain.ItemRef{Type: "action-item", ID: id})
	if err != nil {
		return a, err
	}
	a.Tags, err = r.ListTags(ctx, domain.ItemRef{Type: "action-item", ID: id})
	return a, err
}

func (r Repo) ListActionItems(ctx context.Context, status string) ([]domain.ActionItem, error) {
	query := `SELECT ` + actionCols + ` FROM action_items`
	var args []any
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ActionItem
	for rows.Next() {
		a, err := scanActionItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r Repo) UpdateActionItem(ctx context.Context, tx *sql.Tx, a domain.ActionItem) error {
	res, err := tx.ExecContext(ctx, `UPDATE action_items SET title=?,status=?,assignee=?,estimate_hours=?,estimate_source=?,due_date=?,updated_at=? WHERE id=?`,
		a.Title, a.Status, ptrArg(a.Assignee), floatArg(a.EstimateHours), nullable(a.EstimateSource), ptrArg(a.DueDate), a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r Repo) DeleteActionItem(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM action_items WHERE id=?`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return r.deleteItemRows(ctx, tx, domain.ItemRef{Type: "action-item", ID: id})
}

// ReplaceDeps overwrites the dependency list of an item.
func (r Repo) ReplaceDeps(ctx context.Context, tx *sql.Tx, item domain.ItemRef, deps []domain.ItemRef) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_deps WHERE item_type=? AND item_id=?`, item.Type, item.ID); err != nil {
		return err
	}
	for _, d := range deps {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO item_deps(item_type,item_id,dep_type,dep_id) VALUES (?,?,?,?)`,
			item.Type, item.ID, d.Type, d.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) ListDeps(ctx context.Context, item domain.ItemRef) ([]domain.ItemRef, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT dep_type,dep_id FROM item_deps WHERE item_type=? AND item_id=? ORDER BY dep_type,dep_id`, item.Type, item.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ItemRef
	for rows.Next() {
		var d domain.ItemRef
		if err := rows.Scan(&d.Type, &d.ID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// deleteItemRows clears dependency, tag and comment rows owned by an item
// together with dangling dependency references pointing at it.
func (r Repo) deleteItemRows(ctx context.Context, tx *sql.Tx, item domain.ItemRef) error {
	for _, q := range []string{
		`DELETE FROM item_deps WHERE item_type=? AND item_id=?`,
		`DELETE FROM item_deps WHERE dep_type=? AND dep_id=?`,
		`DELETE FROM item_tags WHERE item_type=? AND item_id=?`,
		`DELETE FROM comments WHERE item_type=? AND item_id=?`,
	} {
		if _, err := tx.ExecContext(ctx, q, item.Type, item.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) ListEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// EventsAfter returns events with id greater than after, oldest first.
func (r Repo) EventsAfter(ctx context.Context, limit int, after int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE id > ? ORDER BY id ASC LIMIT ?`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestEventID returns the highest event id, 0 when the log is empty.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM events`).Scan(&id)
	return id, err
}

func requireAffected(res sql.Result) error {
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func ptrArg(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatArg(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
