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

var _ repository.ExcerptRepository = (*DB)(nil)

const excerptColumns = `id, name, done, musician_id`

func (db *DB) CreateExcerpt(ctx context.Context, excerpt *model.Excerpt) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRef(ctx, tx, "musicians", "musician", excerpt.MusicianID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO excerpts (name, done, musician_id) VALUES (?, ?, ?)`,
			excerpt.Name, excerpt.Done, excerpt.MusicianID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting excerpt: %w", err)
		}
		excerpt.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading excerpt id: %w", err)
		}
		return nil
	})
}

func (db *DB) GetExcerpt(ctx context.Context, id int64) (*model.Excerpt, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+excerptColumns+` FROM excerpts WHERE id = ?`, id)

	e, err := scanExcerpt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("excerpt", id)
		}
		return nil, fmt.Errorf("sqlite: getting excerpt %d: %w", id, err)
	}
	return e, nil
}

// ListExcerpts returns excerpts in id order, optionally only those owned by
// filter.MusicianID.
func (db *DB) ListExcerpts(ctx context.Context, filter repository.ExcerptFilter) ([]model.Excerpt, error) {
	query := `SELECT ` + excerptColumns + ` FROM excerpts`
	var args []any
	if filter.MusicianID != nil {
		query += ` WHERE musician_id = ?`
		args = append(args, *filter.MusicianID)
	}
	query += ` ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing excerpts: %w", err)
	}
	defer rows.Close()

	excerpts := []model.Excerpt{}
	for rows.Next() {
		e, err := scanExcerpt(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning excerpt row: %w", err)
		}
		excerpts = append(excerpts, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating excerpts: %w", err)
	}
	return excerpts, nil
}

func (db *DB) UpdateExcerpt(ctx context.Context, excerpt *model.Excerpt) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRef(ctx, tx, "musicians", "musician", excerpt.MusicianID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE excerpts SET name = ?, done = ?, musician_id = ? WHERE id = ?`,
			excerpt.Name, excerpt.Done, excerpt.MusicianID, excerpt.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating excerpt %d: %w", excerpt.ID, err)
		}
		return checkAffected(result, "excerpt", excerpt.ID)
	})
}

func (db *DB) DeleteExcerpt(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM excerpts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting excerpt %d: %w", id, err)
	}
	return checkAffected(result, "excerpt", id)
}

func scanExcerpt(row rowScanner) (*model.Excerpt, error) {
	var e model.Excerpt
	if err := row.Scan(&e.ID, &e.Name, &e.Done, &e.MusicianID); err != nil {
		return nil, err
	}
	return &e, nil
}
