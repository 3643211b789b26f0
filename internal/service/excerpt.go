package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/listen-api/internal/model"
	"github.com/sakif/listen-api/internal/repository"
)

// ExcerptInput is the body of POST and PUT /excerpts. Done defaults to false.
type ExcerptInput struct {
	Name     *string `json:"name"`
	Done     *bool   `json:"done"`
	Musician *int64  `json:"musician"`
}

func (in ExcerptInput) toModel(id int64) (*model.Excerpt, error) {
	name, err := requireText("name", in.Name)
	if err != nil {
		return nil, err
	}
	musician, err := requireRef("musician", in.Musician)
	if err != nil {
		return nil, err
	}
	return &model.Excerpt{ID: id, Name: name, Done: in.Done != nil && *in.Done, MusicianID: musician}, nil
}

type ExcerptService struct {
	repo   repository.ExcerptRepository
	views  ViewSource
	logger *slog.Logger
}

func NewExcerptService(repo repository.ExcerptRepository, views ViewSource, logger *slog.Logger) *ExcerptService {
	return &ExcerptService{repo: repo, views: views, logger: logger}
}

// Create persists an excerpt owned by in.Musician. An unknown musician is a
// NotFound error and nothing is written.
func (s *ExcerptService) Create(ctx context.Context, caller int64, in ExcerptInput) (*ExcerptView, error) {
	excerpt, err := in.toModel(0)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateExcerpt(ctx, excerpt); err != nil {
		logUnexpected(ctx, s.logger, "failed to create excerpt", err)
		return nil, fmt.Errorf("creating excerpt: %w", err)
	}

	s.logger.Info("excerpt created",
		slog.Int64("id", excerpt.ID),
		slog.Int64("musician", *excerpt.MusicianID),
	)
	return newAssembler(s.views, caller).excerptView(ctx, excerpt)
}

func (s *ExcerptService) Get(ctx context.Context, caller, id int64) (*ExcerptView, error) {
	excerpt, err := s.repo.GetExcerpt(ctx, id)
	if err != nil {
		return nil, err
	}
	return newAssembler(s.views, caller).excerptView(ctx, excerpt)
}

// List returns every excerpt, or only those owned by musicianID when it is
// non-nil.
func (s *ExcerptService) List(ctx context.Context, caller int64, musicianID *int64) ([]ExcerptView, error) {
	excerpts, err := s.repo.ListExcerpts(ctx, repository.ExcerptFilter{MusicianID: musicianID})
	if err != nil {
		logUnexpected(ctx, s.logger, "failed to list excerpts", err)
		return nil, fmt.Errorf("listing excerpts: %w", err)
	}

	a := newAssembler(s.views, caller)
	views := make([]ExcerptView, 0, len(excerpts))
	for i := range excerpts {
		v, err := a.excerptView(ctx, &excerpts[i])
		if err != nil {
			return nil, fmt.Errorf("building excerpt view: %w", err)
		}
		views = append(views, *v)
	}
	return views, nil
}

// Update overwrites every field; a missing field is a validation error, not
// "leave unchanged".
func (s *ExcerptService) Update(ctx context.Context, id int64, in ExcerptInput) error {
	excerpt, err := in.toModel(id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateExcerpt(ctx, excerpt); err != nil {
		logUnexpected(ctx, s.logger, "failed to update excerpt", err, slog.Int64("id", id))
		return fmt.Errorf("updating excerpt: %w", err)
	}
	return nil
}

// Delete removes the excerpt; its recordings remain with no excerpt.
func (s *ExcerptService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteExcerpt(ctx, id); err != nil {
		logUnexpected(ctx, s.logger, "failed to delete excerpt", err, slog.Int64("id", id))
		return fmt.Errorf("deleting excerpt: %w", err)
	}
	s.logger.Info("excerpt deleted", slog.Int64("id", id))
	return nil
}
