package repository

import (
	"context"

	"goblog/internal/domain"
)

// PostRepository defines persistence operations for Post entities.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) (int64, error)
	ListByAuthor(ctx context.Context, userID int64, limit, offset int) ([]domain.Post, error)
	CountByAuthor(ctx context.Context, userID int64) (int64, error)
}
