// Package repository declares the storage interfaces the service layer depends on.
//
// Services accept these interfaces, never *sqlite.DB, so service tests can run
// against in-memory fakes. Every Create/Update that sets a foreign key resolves
// the referenced row inside the same write: an unknown id yields
// apperror.ErrNotFound and nothing is persisted.
package repository

import (
	"context"

	"github.com/sakif/listen-api/internal/model"
)

// AccountRepository owns credentials. CreateAccount inserts the account and its
// musician profile in one transaction; both get their IDs filled in.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *model.Account, musician *model.Musician) error
	GetAccountByUsername(ctx context.Context, username string) (*model.Account, error)
	GetAccountByGitHubID(ctx context.Context, githubID int64) (*model.Account, error)
}

type MusicianRepository interface {
	GetMusician(ctx context.Context, id int64) (*model.Musician, error)
	GetMusicianByAccount(ctx context.Context, accountID int64) (*model.Musician, error)
	ListMusicians(ctx context.Context) ([]model.Musician, error)
	// UpdateMusician writes bio and the account's profile fields together.
	UpdateMusician(ctx context.Context, musician *model.Musician) error
	// DeleteMusician removes the musician and its account. Excerpts, comments
	// and connections referencing it keep a NULL reference.
	DeleteMusician(ctx context.Context, id int64) error
}

type ConnectionRepository interface {
	CreateConnection(ctx context.Context, conn *model.Connection) error
	GetConnection(ctx context.Context, id int64) (*model.Connection, error)
	ListConnections(ctx context.Context) ([]model.Connection, error)
	// EndActiveConnections sets ended_on on every active row for the pair in a
	// single statement and reports how many rows it ended.
	EndActiveConnections(ctx context.Context, practicerID, followerID int64, endedOn model.Date) (int64, error)
}

// ExcerptFilter narrows ListExcerpts. A nil field means "no filter".
type ExcerptFilter struct {
	MusicianID *int64
}

type ExcerptRepository interface {
	CreateExcerpt(ctx context.Context, excerpt *model.Excerpt) error
	GetExcerpt(ctx context.Context, id int64) (*model.Excerpt, error)
	ListExcerpts(ctx context.Context, filter ExcerptFilter) ([]model.Excerpt, error)
	UpdateExcerpt(ctx context.Context, excerpt *model.Excerpt) error
	DeleteExcerpt(ctx context.Context, id int64) error
}

// RecordingFilter narrows ListRecordings. MusicianID matches recordings whose
// excerpt is owned by that musician.
type RecordingFilter struct {
	ExcerptID  *int64
	MusicianID *int64
}

type RecordingRepository interface {
	CreateRecording(ctx context.Context, recording *model.Recording) error
	GetRecording(ctx context.Context, id int64) (*model.Recording, error)
	ListRecordings(ctx context.Context, filter RecordingFilter) ([]model.Recording, error)
	UpdateRecording(ctx context.Context, recording *model.Recording) error
	DeleteRecording(ctx context.Context, id int64) error
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, id int64) error
}

type GoalFilter struct {
	RecordingID *int64
}

type GoalRepository interface {
	CreateGoal(ctx context.Context, goal *model.Goal) error
	GetGoal(ctx context.Context, id int64) (*model.Goal, error)
	ListGoals(ctx context.Context, filter GoalFilter) ([]model.Goal, error)
	UpdateGoal(ctx context.Context, goal *model.Goal) error
	DeleteGoal(ctx context.Context, id int64) error
}

type CommentFilter struct {
	RecordingID *int64
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetComment(ctx context.Context, id int64) (*model.Comment, error)
	ListComments(ctx context.Context, filter CommentFilter) ([]model.Comment, error)
	UpdateComment(ctx context.Context, comment *model.Comment) error
	DeleteComment(ctx context.Context, id int64) error
}
