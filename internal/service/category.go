package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/listen-api/internal/model"
	"github.com/sakif/listen-api/internal/repository"
)

// CategoryInput is the body of POST and PUT /categories.
type CategoryInput struct {
	Label *string `json:"label"`
}

type CategoryService struct {
	repo   repository.CategoryRepository
	logger *slog.Logger
}

func NewCategoryService(repo repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger}
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*CategoryView, error) {
	label, err := requireText("label", in.Label)
	if err != nil {
		return nil, err
	}

	category := &model.Category{Label: label}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		logUnexpected(ctx, s.logger, "failed to create category", err)
		return nil, fmt.Errorf("creating category: %w", err)
	}

	s.logger.Info("category created", slog.Int64("id", category.ID), slog.String("label", label))
	return &CategoryView{ID: category.ID, Label: category.Label}, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (*CategoryView, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CategoryView{ID: c.ID, Label: c.Label}, nil
}

func (s *CategoryService) List(ctx context.Context) ([]CategoryView, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		logUnexpected(ctx, s.logger, "failed to list categories", err)
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	views := make([]CategoryView, len(categories))
	for i, c := range categories {
		views[i] = CategoryView{ID: c.ID, Label: c.Label}
	}
	return views, nil
}

func (s *CategoryService) Update(ctx context.Context, id int64, in CategoryInput) error {
	label, err := requireText("label", in.Label)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateCategory(ctx, &model.Category{ID: id, Label: label}); err != nil {
		logUnexpected(ctx, s.logger, "failed to update category", err, slog.Int64("id", id))
		return fmt.Errorf("updating category: %w", err)
	}
	return nil
}

// Delete leaves the category's goals in place with no category.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		logUnexpected(ctx, s.logger, "failed to delete category", err, slog.Int64("id", id))
		return fmt.Errorf("deleting category: %w", err)
	}
	s.logger.Info("category deleted", slog.Int64("id", id))
	return nil
}
