package service

import (
	"context"
	"errors"

	"github.com/sakif/listen-api/internal/apperror"
	"github.com/sakif/listen-api/internal/model"
)

// UserView is the account part of a musician, without credentials.
type UserView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type MusicianView struct {
	ID            int64    `json:"id"`
	Bio           string   `json:"bio"`
	User          UserView `json:"user"`
	IsCurrentUser bool     `json:"is_current_user"`
}

type ExcerptView struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Done     bool          `json:"done"`
	Musician *MusicianView `json:"musician"`
}

type RecordingView struct {
	ID      int64        `json:"id"`
	Audio   string       `json:"audio"`
	Excerpt *ExcerptView `json:"excerpt"`
	Date    model.Date   `json:"date"`
	Label   string       `json:"label"`
}

type CategoryView struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

type GoalView struct {
	ID        int64          `json:"id"`
	Recording *RecordingView `json:"recording"`
	Category  *CategoryView  `json:"category"`
	Goal      string         `json:"goal"`
	Action    string         `json:"action"`
}

type CommentView struct {
	ID                   int64          `json:"id"`
	Author               *MusicianView  `json:"author"`
	Recording            *RecordingView `json:"recording"`
	Date                 model.Date     `json:"date"`
	Content              string         `json:"content"`
	CreatedByCurrentUser bool           `json:"created_by_current_user"`
}

type ConnectionView struct {
	ID        int64         `json:"id"`
	Practicer *MusicianView `json:"practicer"`
	Follower  *MusicianView `json:"follower"`
	CreatedOn model.Date    `json:"created_on"`
	EndedOn   *model.Date   `json:"ended_on"`
}

// newMusicianView flags the caller's own profile.
func newMusicianView(m *model.Musician, caller int64) *MusicianView {
	return &MusicianView{
		ID:  m.ID,
		Bio: m.Bio,
		User: UserView{
			ID:        m.Account.ID,
			Username:  m.Account.Username,
			FirstName: m.Account.FirstName,
			LastName:  m.Account.LastName,
			Email:     m.Account.Email,
		},
		IsCurrentUser: caller != Anonymous && m.ID == caller,
	}
}

// ViewSource is the read side the assembler needs to expand references.
// *sqlite.DB implements it.
type ViewSource interface {
	GetMusician(ctx context.Context, id int64) (*model.Musician, error)
	GetExcerpt(ctx context.Context, id int64) (*model.Excerpt, error)
	GetRecording(ctx context.Context, id int64) (*model.Recording, error)
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
}

// assembler expands foreign keys into nested views for one request.
//
// It memoises every lookup, so listing fifty recordings of one excerpt loads
// that excerpt and its musician once. A nil reference, or one whose row has
// disappeared since it was read, becomes a JSON null.
type assembler struct {
	src    ViewSource
	caller int64

	musicians  map[int64]*MusicianView
	excerpts   map[int64]*ExcerptView
	recordings map[int64]*RecordingView
	categories map[int64]*CategoryView
}

func newAssembler(src ViewSource, caller int64) *assembler {
	return &assembler{
		src:        src,
		caller:     caller,
		musicians:  make(map[int64]*MusicianView),
		excerpts:   make(map[int64]*ExcerptView),
		recordings: make(map[int64]*RecordingView),
		categories: make(map[int64]*CategoryView),
	}
}

// lookup runs load unless id is nil or already cached, treating NotFound as
// a null reference.
func lookup[V any](ctx context.Context, cache map[int64]*V, id *int64, load func(context.Context, int64) (*V, error)) (*V, error) {
	if id == nil {
		return nil, nil
	}
	if v, ok := cache[*id]; ok {
		return v, nil
	}
	v, err := load(ctx, *id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			cache[*id] = nil
			return nil, nil
		}
		return nil, err
	}
	cache[*id] = v
	return v, nil
}

func (a *assembler) musician(ctx context.Context, id *int64) (*MusicianView, error) {
	return lookup(ctx, a.musicians, id, func(ctx context.Context, id int64) (*MusicianView, error) {
		m, err := a.src.GetMusician(ctx, id)
		if err != nil {
			return nil, err
		}
		return newMusicianView(m, a.caller), nil
	})
}

func (a *assembler) excerpt(ctx context.Context, id *int64) (*ExcerptView, error) {
	return lookup(ctx, a.excerpts, id, func(ctx context.Context, id int64) (*ExcerptView, error) {
		e, err := a.src.GetExcerpt(ctx, id)
		if err != nil {
			return nil, err
		}
		return a.excerptView(ctx, e)
	})
}

func (a *assembler) excerptView(ctx context.Context, e *model.Excerpt) (*ExcerptView, error) {
	owner, err := a.musician(ctx, e.MusicianID)
	if err != nil {
		return nil, err
	}
	return &ExcerptView{ID: e.ID, Name: e.Name, Done: e.Done, Musician: owner}, nil
}

func (a *assembler) recording(ctx context.Context, id *int64) (*RecordingView, error) {
	return lookup(ctx, a.recordings, id, func(ctx context.Context, id int64) (*RecordingView, error) {
		r, err := a.src.GetRecording(ctx, id)
		if err != nil {
			return nil, err
		}
		return a.recordingView(ctx, r)
	})
}

func (a *assembler) recordingView(ctx context.Context, r *model.Recording) (*RecordingView, error) {
	excerpt, err := a.excerpt(ctx, r.ExcerptID)
	if err != nil {
		return nil, err
	}
	return &RecordingView{ID: r.ID, Audio: r.Audio, Excerpt: excerpt, Date: r.Date, Label: r.Label}, nil
}

func (a *assembler) category(ctx context.Context, id *int64) (*CategoryView, error) {
	return lookup(ctx, a.categories, id, func(ctx context.Context, id int64) (*CategoryView, error) {
		c, err := a.src.GetCategory(ctx, id)
		if err != nil {
			return nil, err
		}
		return &CategoryView{ID: c.ID, Label: c.Label}, nil
	})
}

func (a *assembler) goalView(ctx context.Context, g *model.Goal) (*GoalView, error) {
	recording, err := a.recording(ctx, g.RecordingID)
	if err != nil {
		return nil, err
	}
	category, err := a.category(ctx, g.CategoryID)
	if err != nil {
		return nil, err
	}
	return &GoalView{ID: g.ID, Recording: recording, Category: category, Goal: g.Goal, Action: g.Action}, nil
}

// commentView sets created_by_current_user when the caller wrote the comment.
func (a *assembler) commentView(ctx context.Context, c *model.Comment) (*CommentView, error) {
	author, err := a.musician(ctx, c.AuthorID)
	if err != nil {
		return nil, err
	}
	recording, err := a.recording(ctx, c.RecordingID)
	if err != nil {
		return nil, err
	}
	return &CommentView{
		ID:                   c.ID,
		Author:               author,
		Recording:            recording,
		Date:                 c.Date,
		Content:              c.Content,
		CreatedByCurrentUser: a.caller != Anonymous && c.AuthorID != nil && *c.AuthorID == a.caller,
	}, nil
}

func (a *assembler) connectionView(ctx context.Context, c *model.Connection) (*ConnectionView, error) {
	practicer, err := a.musician(ctx, c.PracticerID)
	if err != nil {
		return nil, err
	}
	follower, err := a.musician(ctx, c.FollowerID)
	if err != nil {
		return nil, err
	}
	return &ConnectionView{
		ID:        c.ID,
		Practicer: practicer,
		Follower:  follower,
		CreatedOn: c.CreatedOn,
		EndedOn:   c.EndedOn,
	}, nil
}
