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

var _ repository.ConnectionRepository = (*DB)(nil)

const connectionColumns = `id, practicer_id, follower_id, created_on, ended_on`

// CreateConnection inserts a follow. Both musicians are checked inside the
// same transaction as the INSERT, so an unknown id leaves no row behind.
func (db *DB) CreateConnection(ctx context.Context, conn *model.Connection) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireRef(ctx, tx, "musicians", "musician", conn.PracticerID); err != nil {
			return err
		}
		if err := requireRef(ctx, tx, "musicians", "musician", conn.FollowerID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO connections (practicer_id, follower_id, created_on, ended_on)
			 VALUES (?, ?, ?, ?)`,
			conn.PracticerID, conn.FollowerID, conn.CreatedOn, conn.EndedOn,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting connection: %w", err)
		}
		conn.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading connection id: %w", err)
		}
		return nil
	})
}

func (db *DB) GetConnection(ctx context.Context, id int64) (*model.Connection, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE id = ?`, id)

	c, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("connection", id)
		}
		return nil, fmt.Errorf("sqlite: getting connection %d: %w", id, err)
	}
	return c, nil
}

func (db *DB) ListConnections(ctx context.Context) ([]model.Connection, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM connections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing connections: %w", err)
	}
	defer rows.Close()

	connections := []model.Connection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning connection row: %w", err)
		}
		connections = append(connections, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating connections: %w", err)
	}
	return connections, nil
}

// EndActiveConnections ends every still-active follow of practicerID by
// followerID in one UPDATE. Duplicate follows are allowed, so this can end
// more than one row; zero means there was nothing to end.
func (db *DB) EndActiveConnections(ctx context.Context, practicerID, followerID int64, endedOn model.Date) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE connections SET ended_on = ?
		 WHERE practicer_id = ? AND follower_id = ? AND ended_on IS NULL`,
		endedOn, practicerID, followerID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: ending connections %d->%d: %w", followerID, practicerID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

func scanConnection(row rowScanner) (*model.Connection, error) {
	var c model.Connection
	if err := row.Scan(&c.ID, &c.PracticerID, &c.FollowerID, &c.CreatedOn, &c.EndedOn); err != nil {
		return nil, err
	}
	return &c, nil
}
