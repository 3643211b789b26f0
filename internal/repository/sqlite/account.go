package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/listen-api/internal/apperror"
	"github.com/sakif/listen-api/internal/model"
	"github.com/sakif/listen-api/internal/repository"
)

// compile-time check that *DB implements repository.AccountRepository
var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `id, username, email, first_name, last_name, password_hash, github_id, created_at`

// CreateAccount inserts an account and its musician profile.
//
// Both rows go in one transaction: a musician without an account (or the
// reverse) is never visible, even if the second INSERT fails.
func (db *DB) CreateAccount(ctx context.Context, account *model.Account, musician *model.Musician) error {
	account.CreatedAt = time.Now().UTC()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (username, email, first_name, last_name, password_hash, github_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			account.Username,
			account.Email,
			account.FirstName,
			account.LastName,
			account.PasswordHash,
			account.GitHubID,
			account.CreatedAt,
		)
		if err != nil {
			switch {
			case uniqueViolationOn(err, "accounts.github_id"):
				return apperror.Conflict(fmt.Sprintf("GitHub user %d is already linked to an account", *account.GitHubID))
			case isUniqueViolation(err):
				return apperror.Conflict(fmt.Sprintf("username %q is already taken", account.Username))
			}
			return fmt.Errorf("sqlite: inserting account %q: %w", account.Username, err)
		}
		if account.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("sqlite: reading account id: %w", err)
		}

		result, err = tx.ExecContext(ctx,
			`INSERT INTO musicians (account_id, bio) VALUES (?, ?)`,
			account.ID, musician.Bio,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting musician for account %d: %w", account.ID, err)
		}
		if musician.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("sqlite: reading musician id: %w", err)
		}

		musician.AccountID = account.ID
		musician.Account = *account
		return nil
	})
}

// GetAccountByUsername is the login lookup.
func (db *DB) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", username)
		}
		return nil, fmt.Errorf("sqlite: getting account %q: %w", username, err)
	}
	return account, nil
}

// GetAccountByGitHubID finds the account linked to a GitHub user, if any.
func (db *DB) GetAccountByGitHubID(ctx context.Context, githubID int64) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE github_id = ?`, githubID)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("github account", githubID)
		}
		return nil, fmt.Errorf("sqlite: getting account for github id %d: %w", githubID, err)
	}
	return account, nil
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.FirstName,
		&a.LastName,
		&a.PasswordHash,
		&a.GitHubID,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
