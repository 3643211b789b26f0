package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/listen-api/internal/apperror"
	"github.com/sakif/listen-api/internal/model"
	"github.com/sakif/listen-api/internal/repository"
)

// MusicianInput is the body of PUT /musicians/{id}. The four account fields
// must all be present; email and names may be empty strings. Bio is optional
// and keeps its stored value when left out.
type MusicianInput struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
}

type MusicianService struct {
	repo   repository.MusicianRepository
	logger *slog.Logger
}

func NewMusicianService(repo repository.MusicianRepository, logger *slog.Logger) *MusicianService {
	return &MusicianService{repo: repo, logger: logger}
}

func (s *MusicianService) List(ctx context.Context, caller int64) ([]MusicianView, error) {
	musicians, err := s.repo.ListMusicians(ctx)
	if err != nil {
		logUnexpected(ctx, s.logger, "failed to list musicians", err)
		return nil, fmt.Errorf("listing musicians: %w", err)
	}

	views := make([]MusicianView, len(musicians))
	for i := range musicians {
		views[i] = *newMusicianView(&musicians[i], caller)
	}
	return views, nil
}

func (s *MusicianService) Get(ctx context.Context, caller, id int64) (*MusicianView, error) {
	m, err := s.repo.GetMusician(ctx, id)
	if err != nil {
		return nil, err
	}
	return newMusicianView(m, caller), nil
}

// Update overwrites the caller's own profile. Editing another musician is
// Forbidden; an unknown id is NotFound either way.
func (s *MusicianService) Update(ctx context.Context, caller, id int64, in MusicianInput) error {
	if err := s.authorize(ctx, caller, id, "edit"); err != nil {
		return err
	}

	username, err := requireText("username", in.Username)
	if err != nil {
		return err
	}
	email, err := requirePresent("email", in.Email)
	if err != nil {
		return err
	}
	firstName, err := requirePresent("first_name", in.FirstName)
	if err != nil {
		return err
	}
	lastName, err := requirePresent("last_name", in.LastName)
	if err != nil {
		return err
	}

	var bio string
	if in.Bio != nil {
		bio = *in.Bio
	} else {
		current, err := s.repo.GetMusician(ctx, id)
		if err != nil {
			return err
		}
		bio = current.Bio
	}

	musician := &model.Musician{
		ID:  id,
		Bio: bio,
		Account: model.Account{
			Username:  username,
			Email:     email,
			FirstName: firstName,
			LastName:  lastName,
		},
	}
	if err := s.repo.UpdateMusician(ctx, musician); err != nil {
		logUnexpected(ctx, s.logger, "failed to update musician", err, slog.Int64("id", id))
		return fmt.Errorf("updating musician: %w", err)
	}

	s.logger.Info("musician updated", slog.Int64("id", id))
	return nil
}

// Delete removes the caller's account together with its musician profile.
// Excerpts, connections and comments pointing at the musician stay, with a
// null reference.
func (s *MusicianService) Delete(ctx context.Context, caller, id int64) error {
	if err := s.authorize(ctx, caller, id, "delete"); err != nil {
		return err
	}

	if err := s.repo.DeleteMusician(ctx, id); err != nil {
		logUnexpected(ctx, s.logger, "failed to delete musician", err, slog.Int64("id", id))
		return fmt.Errorf("deleting musician: %w", err)
	}

	s.logger.Info("musician deleted", slog.Int64("id", id))
	return nil
}

// MusicianIDForAccount lets the auth middleware map a token's account id to
// the musician acting on the request.
func (s *MusicianService) MusicianIDForAccount(ctx context.Context, accountID int64) (int64, error) {
	m, err := s.repo.GetMusicianByAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}

func (s *MusicianService) authorize(ctx context.Context, caller, id int64, action string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if caller == id {
		return nil
	}
	if _, err := s.repo.GetMusician(ctx, id); err != nil {
		return err
	}
	return apperror.Forbidden(fmt.Sprintf("you can only %s your own profile", action))
}
