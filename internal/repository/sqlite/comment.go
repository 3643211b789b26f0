package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/listen-api/internal/apperror"
	"github.com/sakif/listen-api/internal/model"
	"github.com/sakif/listen-api/internal/repository"
)

var _ repository.CommentRepository = (*DB)(nil)

const commentColumns = `id, author_id, recording_id, date, content`

func checkCommentRefs(ctx context.Context, q querier, comment *model.Comment) error {
	if err := requireRef(ctx, q, "musicians", "musician", comment.AuthorID); err != nil {
		return err
	}
	return requireRef(ctx, q, "recordings", "recording", comment.RecordingID)
}

func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkCommentRefs(ctx, tx, comment); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO comments (author_id, recording_id, date, content) VALUES (?, ?, ?, ?)`,
			comment.AuthorID, comment.RecordingID, comment.Date, comment.Content,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting comment: %w", err)
		}
		comment.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading comment id: %w", err)
		}
		return nil
	})
}

func (db *DB) GetComment(ctx context.Context, id int64) (*model.Comment, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = ?`, id)

	c, err := scanComment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %d: %w", id, err)
	}
	return c, nil
}

func (db *DB) ListComments(ctx context.Context, filter repository.CommentFilter) ([]model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments`
	var args []any
	if filter.RecordingID != nil {
		query += ` WHERE recording_id = ?`
		args = append(args, *filter.RecordingID)
	}
	query += ` ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}

func (db *DB) UpdateComment(ctx context.Context, comment *model.Comment) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkCommentRefs(ctx, tx, comment); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE comments SET author_id = ?, recording_id = ?, date = ?, content = ? WHERE id = ?`,
			comment.AuthorID, comment.RecordingID, comment.Date, comment.Content, comment.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating comment %d: %w", comment.ID, err)
		}
		return checkAffected(result, "comment", comment.ID)
	})
}

func (db *DB) DeleteComment(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %d: %w", id, err)
	}
	return checkAffected(result, "comment", id)
}

func scanComment(row rowScanner) (*model.Comment, error) {
	var c model.Comment
	if err := row.Scan(&c.ID, &c.AuthorID, &c.RecordingID, &c.Date, &c.Content); err != nil {
		return nil, err
	}
	return &c, nil
}
