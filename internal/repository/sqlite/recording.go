package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/listen-api/internal/apperror"
	"github.com/sakif/listen-api/internal/model"
	"github.com/sakif/listen-api/internal/repository"
)

var _ repository.RecordingRepository = (*DB)(nil)

const recordingColumns = `r.id, r.audio, r.excerpt_id, r.date, r.label`

func (db *DB) CreateRecording(ctx context.Context, recording *model.Recording) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRef(ctx, tx, "excerpts", "excerpt", recording.ExcerptID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO recordings (audio, excerpt_id, date, label) VALUES (?, ?, ?, ?)`,
			recording.Audio, recording.ExcerptID, recording.Date, recording.Label,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting recording: %w", err)
		}
		recording.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading recording id: %w", err)
		}
		return nil
	})
}

func (db *DB) GetRecording(ctx context.Context, id int64) (*model.Recording, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+recordingColumns+` FROM recordings r WHERE r.id = ?`, id)

	r, err := scanRecording(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("recording", id)
		}
		return nil, fmt.Errorf("sqlite: getting recording %d: %w", id, err)
	}
	return r, nil
}

// ListRecordings filters by excerpt, or by the musician owning the excerpt.
// Recordings whose excerpt was deleted never match a musician filter.
func (db *DB) ListRecordings(ctx context.Context, filter repository.RecordingFilter) ([]model.Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings r`
	var (
		where []string
		args  []any
	)
	if filter.MusicianID != nil {
		query += ` JOIN excerpts e ON e.id = r.excerpt_id`
		where = append(where, `e.musician_id = ?`)
		args = append(args, *filter.MusicianID)
	}
	if filter.ExcerptID != nil {
		where = append(where, `r.excerpt_id = ?`)
		args = append(args, *filter.ExcerptID)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY r.id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recordings: %w", err)
	}
	defer rows.Close()

	recordings := []model.Recording{}
	for rows.Next() {
		r, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning recording row: %w", err)
		}
		recordings = append(recordings, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating recordings: %w", err)
	}
	return recordings, nil
}

func (db *DB) UpdateRecording(ctx context.Context, recording *model.Recording) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRef(ctx, tx, "excerpts", "excerpt", recording.ExcerptID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE recordings SET audio = ?, excerpt_id = ?, date = ?, label = ? WHERE id = ?`,
			recording.Audio, recording.ExcerptID, recording.Date, recording.Label, recording.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating recording %d: %w", recording.ID, err)
		}
		return checkAffected(result, "recording", recording.ID)
	})
}

func (db *DB) DeleteRecording(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting recording %d: %w", id, err)
	}
	return checkAffected(result, "recording", id)
}

func scanRecording(row rowScanner) (*model.Recording, error) {
	var r model.Recording
	if err := row.Scan(&r.ID, &r.Audio, &r.ExcerptID, &r.Date, &r.Label); err != nil {
		return nil, err
	}
	return &r, nil
}
