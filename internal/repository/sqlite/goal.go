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

var _ repository.GoalRepository = (*DB)(nil)

const goalColumns = `id, recording_id, category_id, goal, action`

// checkGoalRefs resolves both optional references of a goal.
func checkGoalRefs(ctx context.Context, q querier, goal *model.Goal) error {
	if err := requireRef(ctx, q, "recordings", "recording", goal.RecordingID); err != nil {
		return err
	}
	return requireRef(ctx, q, "categories", "category", goal.CategoryID)
}

func (db *DB) CreateGoal(ctx context.Context, goal *model.Goal) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkGoalRefs(ctx, tx, goal); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO goals (recording_id, category_id, goal, action) VALUES (?, ?, ?, ?)`,
			goal.RecordingID, goal.CategoryID, goal.Goal, goal.Action,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting goal: %w", err)
		}
		goal.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading goal id: %w", err)
		}
		return nil
	})
}

func (db *DB) GetGoal(ctx context.Context, id int64) (*model.Goal, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)

	g, err := scanGoal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("goal", id)
		}
		return nil, fmt.Errorf("sqlite: getting goal %d: %w", id, err)
	}
	return g, nil
}

func (db *DB) ListGoals(ctx context.Context, filter repository.GoalFilter) ([]model.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals`
	var args []any
	if filter.RecordingID != nil {
		query += ` WHERE recording_id = ?`
		args = append(args, *filter.RecordingID)
	}
	query += ` ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing goals: %w", err)
	}
	defer rows.Close()

	goals := []model.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning goal row: %w", err)
		}
		goals = append(goals, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating goals: %w", err)
	}
	return goals, nil
}

func (db *DB) UpdateGoal(ctx context.Context, goal *model.Goal) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkGoalRefs(ctx, tx, goal); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE goals SET recording_id = ?, category_id = ?, goal = ?, action = ? WHERE id = ?`,
			goal.RecordingID, goal.CategoryID, goal.Goal, goal.Action, goal.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating goal %d: %w", goal.ID, err)
		}
		return checkAffected(result, "goal", goal.ID)
	})
}

func (db *DB) DeleteGoal(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting goal %d: %w", id, err)
	}
	return checkAffected(result, "goal", id)
}

func scanGoal(row rowScanner) (*model.Goal, error) {
	var g model.Goal
	if err := row.Scan(&g.ID, &g.RecordingID, &g.CategoryID, &g.Goal, &g.Action); err != nil {
		return nil, err
	}
	return &g, nil
}
