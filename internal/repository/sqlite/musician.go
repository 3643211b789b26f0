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

var _ repository.MusicianRepository = (*DB)(nil)

// Every musician read joins its account: the two are one-to-one and every
// musician view shows the account's name fields.
const musicianSelect = `
	SELECT m.id, m.account_id, m.bio,
	       a.id, a.username, a.email, a.first_name, a.last_name, a.password_hash, a.github_id, a.created_at
	FROM musicians m
	JOIN accounts a ON a.id = m.account_id`

func (db *DB) GetMusician(ctx context.Context, id int64) (*model.Musician, error) {
	m, err := scanMusician(db.conn.QueryRowContext(ctx, musicianSelect+` WHERE m.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("musician", id)
		}
		return nil, fmt.Errorf("sqlite: getting musician %d: %w", id, err)
	}
	return m, nil
}

// GetMusicianByAccount resolves an authenticated account to its profile.
func (db *DB) GetMusicianByAccount(ctx context.Context, accountID int64) (*model.Musician, error) {
	m, err := scanMusician(db.conn.QueryRowContext(ctx, musicianSelect+` WHERE m.account_id = ?`, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("musician for account", accountID)
		}
		return nil, fmt.Errorf("sqlite: getting musician for account %d: %w", accountID, err)
	}
	return m, nil
}

func (db *DB) ListMusicians(ctx context.Context) ([]model.Musician, error) {
	rows, err := db.conn.QueryContext(ctx, musicianSelect+` ORDER BY m.id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing musicians: %w", err)
	}
	defer rows.Close()

	musicians := []model.Musician{}
	for rows.Next() {
		m, err := scanMusician(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning musician row: %w", err)
		}
		musicians = append(musicians, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating musicians: %w", err)
	}
	return musicians, nil
}

// UpdateMusician overwrites the profile (bio) and the account's public fields.
// Password and GitHub link are not touched here.
func (db *DB) UpdateMusician(ctx context.Context, musician *model.Musician) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var accountID int64
		err := tx.QueryRowContext(ctx,
			`SELECT account_id FROM musicians WHERE id = ?`, musician.ID,
		).Scan(&accountID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("musician", musician.ID)
			}
			return fmt.Errorf("sqlite: looking up musician %d: %w", musician.ID, err)
		}

		acct := musician.Account
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET username = ?, email = ?, first_name = ?, last_name = ?
			 WHERE id = ?`,
			acct.Username, acct.Email, acct.FirstName, acct.LastName, accountID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict(fmt.Sprintf("username %q is already taken", acct.Username))
			}
			return fmt.Errorf("sqlite: updating account %d: %w", accountID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE musicians SET bio = ? WHERE id = ?`, musician.Bio, musician.ID,
		); err != nil {
			return fmt.Errorf("sqlite: updating musician %d: %w", musician.ID, err)
		}

		musician.AccountID = accountID
		musician.Account.ID = accountID
		return nil
	})
}

// DeleteMusician deletes the account; ON DELETE CASCADE removes the musician
// and the SET NULL rules detach its excerpts, comments and connections.
func (db *DB) DeleteMusician(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = (SELECT account_id FROM musicians WHERE id = ?)`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting musician %d: %w", id, err)
	}
	return checkAffected(result, "musician", id)
}

func scanMusician(row rowScanner) (*model.Musician, error) {
	var m model.Musician
	a := &m.Account
	if err := row.Scan(
		&m.ID, &m.AccountID, &m.Bio,
		&a.ID, &a.Username, &a.Email, &a.FirstName, &a.LastName, &a.PasswordHash, &a.GitHubID, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}
