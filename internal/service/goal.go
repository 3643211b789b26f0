package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/listen-api/internal/model"
	"github.com/sakif/listen-api/internal/repository"
)

// GoalInput is the body of POST and PUT /goals.
type GoalInput struct {
	Recording *int64  `json:"recording"`
	Category  *int64  `json:"category"`
	Goal      *string `json:"goal"`
	Action    *string `json:"action"`
}

func (in GoalInput) toModel(id int64) (*model.Goal, error) {
	recording, err := requireRef("recording", in.Recording)
	if err != nil {
		return nil, err
	}
	category, err := requireRef("category", in.Category)
	if err != nil {
		return nil, err
	}
	goal, err := requireText("goal", in.Goal)
	if err != nil {
		return nil, err
	}
	action, err := requireText("action", in.Action)
	if err != nil {
		return nil, err
	}
	return &model.Goal{ID: id, RecordingID: recording, CategoryID: category, Goal: goal, Action: action}, nil
}

type GoalService struct {
	repo   repository.GoalRepository
	views  ViewSource
	logger *slog.Logger
}

func NewGoalService(repo repository.GoalRepository, views ViewSource, logger *slog.Logger) *GoalService {
	return &GoalService{repo: repo, views: views, logger: logger}
}

func (s *GoalService) Create(ctx context.Context, caller int64, in GoalInput) (*GoalView, error) {
	goal, err := in.toModel(0)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateGoal(ctx, goal); err != nil {
		logUnexpected(ctx, s.logger, "failed to create goal", err)
		return nil, fmt.Errorf("creating goal: %w", err)
	}

	s.logger.Info("goal created",
		slog.Int64("id", goal.ID),
		slog.Int64("recording", *goal.RecordingID),
		slog.Int64("category", *goal.CategoryID),
	)
	return newAssembler(s.views, caller).goalView(ctx, goal)
}

func (s *GoalService) Get(ctx context.Context, caller, id int64) (*GoalView, error) {
	goal, err := s.repo.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	return newAssembler(s.views, caller).goalView(ctx, goal)
}

func (s *GoalService) List(ctx context.Context, caller int64, recordingID *int64) ([]GoalView, error) {
	goals, err := s.repo.ListGoals(ctx, repository.GoalFilter{RecordingID: recordingID})
	if err != nil {
		logUnexpected(ctx, s.logger, "failed to list goals", err)
		return nil, fmt.Errorf("listing goals: %w", err)
	}

	a := newAssembler(s.views, caller)
	views := make([]GoalView, 0, len(goals))
	for i := range goals {
		v, err := a.goalView(ctx, &goals[i])
		if err != nil {
			return nil, fmt.Errorf("building goal view: %w", err)
		}
		views = append(views, *v)
	}
	return views, nil
}

func (s *GoalService) Update(ctx context.Context, id int64, in GoalInput) error {
	goal, err := in.toModel(id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateGoal(ctx, goal); err != nil {
		logUnexpected(ctx, s.logger, "failed to update goal", err, slog.Int64("id", id))
		return fmt.Errorf("updating goal: %w", err)
	}
	return nil
}

func (s *GoalService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteGoal(ctx, id); err != nil {
		logUnexpected(ctx, s.logger, "failed to delete goal", err, slog.Int64("id", id))
		return fmt.Errorf("deleting goal: %w", err)
	}
	s.logger.Info("goal deleted", slog.Int64("id", id))
	return nil
}
