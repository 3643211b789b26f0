package model

import "time"

// Account is the credential identity behind a Musician.
//
// WHY PasswordHash HAS json:"-"?
// Accounts are never serialized directly (handlers return views), but the tag
// guarantees a bcrypt hash can't leak through an accidental writeJSON(account).
//
// GitHubID is nil for accounts created through /register; it is set for
// accounts created or linked through GitHub sign-in.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
