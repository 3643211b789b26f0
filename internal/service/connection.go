package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/listen-api/internal/apperror"
	"github.com/sakif/listen-api/internal/model"
	"github.com/sakif/listen-api/internal/repository"
)

// ConnectionInput is the body of POST /connections: follower follows
// practicer. CreatedOn defaults to today and EndedOn to null (active).
type ConnectionInput struct {
	Practicer *int64      `json:"practicer"`
	Follower  *int64      `json:"follower"`
	CreatedOn *model.Date `json:"created_on"`
	EndedOn   *model.Date `json:"ended_on"`
}

type ConnectionService struct {
	repo   repository.ConnectionRepository
	views  ViewSource
	logger *slog.Logger
}

func NewConnectionService(repo repository.ConnectionRepository, views ViewSource, logger *slog.Logger) *ConnectionService {
	return &ConnectionService{repo: repo, views: views, logger: logger}
}

// Create records a follow. Both musicians must exist. Duplicate active
// follows and self-follows are accepted.
func (s *ConnectionService) Create(ctx context.Context, caller int64, in ConnectionInput) (*ConnectionView, error) {
	practicer, err := requireRef("practicer", in.Practicer)
	if err != nil {
		return nil, err
	}
	follower, err := requireRef("follower", in.Follower)
	if err != nil {
		return nil, err
	}

	conn := &model.Connection{
		PracticerID: practicer,
		FollowerID:  follower,
		CreatedOn:   dateOrToday(in.CreatedOn),
	}
	if in.EndedOn != nil && !in.EndedOn.IsZero() {
		ended := *in.EndedOn
		if ended.Before(conn.CreatedOn.Time) {
			return nil, apperror.ValidationFailed("ended_on", "ended_on cannot be before created_on")
		}
		conn.EndedOn = &ended
	}

	if err := s.repo.CreateConnection(ctx, conn); err != nil {
		logUnexpected(ctx, s.logger, "failed to create connection", err)
		return nil, fmt.Errorf("creating connection: %w", err)
	}

	s.logger.Info("connection created",
		slog.Int64("id", conn.ID),
		slog.Int64("practicer", *practicer),
		slog.Int64("follower", *follower),
	)
	return newAssembler(s.views, caller).connectionView(ctx, conn)
}

// List returns every connection, active and ended.
func (s *ConnectionService) List(ctx context.Context, caller int64) ([]ConnectionView, error) {
	conns, err := s.repo.ListConnections(ctx)
	if err != nil {
		logUnexpected(ctx, s.logger, "failed to list connections", err)
		return nil, fmt.Errorf("listing connections: %w", err)
	}

	a := newAssembler(s.views, caller)
	views := make([]ConnectionView, 0, len(conns))
	for i := range conns {
		v, err := a.connectionView(ctx, &conns[i])
		if err != nil {
			return nil, fmt.Errorf("building connection view: %w", err)
		}
		views = append(views, *v)
	}
	return views, nil
}

// Unfollow ends every active connection in which the caller follows
// practicerID, stamping today's date. It is a Conflict if there is none:
// an ended connection never becomes active again.
func (s *ConnectionService) Unfollow(ctx context.Context, caller, practicerID int64) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if _, err := s.views.GetMusician(ctx, practicerID); err != nil {
		return err
	}

	n, err := s.repo.EndActiveConnections(ctx, practicerID, caller, model.Today())
	if err != nil {
		logUnexpected(ctx, s.logger, "failed to end connections", err,
			slog.Int64("practicer", practicerID),
			slog.Int64("follower", caller),
		)
		return fmt.Errorf("unfollowing musician %d: %w", practicerID, err)
	}
	if n == 0 {
		return apperror.Conflict(fmt.Sprintf("not following musician %d", practicerID))
	}

	s.logger.Info("connection ended",
		slog.Int64("practicer", practicerID),
		slog.Int64("follower", caller),
		slog.Int64("rows", n),
	)
	return nil
}
