package repo

import (
	"context"
	"database/sql"

	"planline/internal/domain"
)

func (r Repo) InsertComment(ctx context.Context, tx *sql.Tx, c domain.Comment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO comments(id,item_type,item_id,author,body,created_at) VALUES (?,?,?,?,?,?)`,
		c.ID, c.ItemType, c.ItemID, c.Author, c.Body, c.CreatedAt)
	return err
}

func (r Repo) ListComments(ctx context.Context, item domain.ItemRef) ([]domain.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,item_type,item_id,author,body,created_at FROM comments WHERE item_type=? AND item_id=? ORDER BY created_at, id`, item.Type, item.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.ItemType, &c.ItemID, &c.Author, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r Repo) DeleteComment(ctx context.Context, tx *sql.Tx, item domain.ItemRef, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id=? AND item_type=? AND item_id=?`, id, item.Type, item.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r Repo) AddTag(ctx context.Context, tx *sql.Tx, item domain.ItemRef, tag string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO item_tags(item_type,item_id,tag) VALUES (?,?,?)`, item.Type, item.ID, tag)
	return err
}

func (r Repo) RemoveTag(ctx context.Context, tx *sql.Tx, item domain.ItemRef, tag string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM item_tags WHERE item_type=? AND item_id=? AND tag=?`, item.Type, item.ID, tag)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r Repo) ListTags(ctx context.Context, item domain.ItemRef) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT tag FROM item_tags WHERE item_type=? AND item_id=? ORDER BY tag`, item.Type, item.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}
