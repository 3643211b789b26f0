package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/listen-api/internal/model"
	"github.com/sakif/listen-api/internal/repository"
)

// CommentInput is the body of POST and PUT /comments. There is no author
// field: the author is always the caller. Date defaults to today.
type CommentInput struct {
	Recording *int64      `json:"recording"`
	Date      *model.Date `json:"date"`
	Content   *string     `json:"content"`
}

func (in CommentInput) toModel(id, author int64) (*model.Comment, error) {
	recording, err := requireRef("recording", in.Recording)
	if err != nil {
		return nil, err
	}
	content, err := requireText("content", in.Content)
	if err != nil {
		return nil, err
	}
	return &model.Comment{
		ID:          id,
		AuthorID:    &author,
		RecordingID: recording,
		Date:        dateOrToday(in.Date),
		Content:     content,
	}, nil
}

type CommentService struct {
	repo   repository.CommentRepository
	views  ViewSource
	logger *slog.Logger
}

func NewCommentService(repo repository.CommentRepository, views ViewSource, logger *slog.Logger) *CommentService {
	return &CommentService{repo: repo, views: views, logger: logger}
}

func (s *CommentService) Create(ctx context.Context, caller int64, in CommentInput) (*CommentView, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	comment, err := in.toModel(0, caller)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateComment(ctx, comment); err != nil {
		logUnexpected(ctx, s.logger, "failed to create comment", err)
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment created",
		slog.Int64("id", comment.ID),
		slog.Int64("author", caller),
		slog.Int64("recording", *comment.RecordingID),
	)
	return newAssembler(s.views, caller).commentView(ctx, comment)
}

func (s *CommentService) Get(ctx context.Context, caller, id int64) (*CommentView, error) {
	comment, err := s.repo.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	return newAssembler(s.views, caller).commentView(ctx, comment)
}

func (s *CommentService) List(ctx context.Context, caller int64, recordingID *int64) ([]CommentView, error) {
	comments, err := s.repo.ListComments(ctx, repository.CommentFilter{RecordingID: recordingID})
	if err != nil {
		logUnexpected(ctx, s.logger, "failed to list comments", err)
		return nil, fmt.Errorf("listing comments: %w", err)
	}

	a := newAssembler(s.views, caller)
	views := make([]CommentView, 0, len(comments))
	for i := range comments {
		v, err := a.commentView(ctx, &comments[i])
		if err != nil {
			return nil, fmt.Errorf("building comment view: %w", err)
		}
		views = append(views, *v)
	}
	return views, nil
}

// Update overwrites the comment and re-attributes it to the caller.
func (s *CommentService) Update(ctx context.Context, caller, id int64, in CommentInput) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	comment, err := in.toModel(id, caller)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateComment(ctx, comment); err != nil {
		logUnexpected(ctx, s.logger, "failed to update comment", err, slog.Int64("id", id))
		return fmt.Errorf("updating comment: %w", err)
	}
	return nil
}

func (s *CommentService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteComment(ctx, id); err != nil {
		logUnexpected(ctx, s.logger, "failed to delete comment", err, slog.Int64("id", id))
		return fmt.Errorf("deleting comment: %w", err)
	}
	s.logger.Info("comment deleted", slog.Int64("id", id))
	return nil
}
