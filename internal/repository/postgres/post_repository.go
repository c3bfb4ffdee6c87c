package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"goblog/internal/domain"
	"goblog/internal/repository"
)

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

// Init is a no-op: the schema is managed by the embedded goose migrations.
func (r *PostRepository) Init(ctx context.Context) error {
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	if post.DatePosted.IsZero() {
		post.DatePosted = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, `
INSERT INTO posts (user_id, title, content, date_posted)
VALUES ($1, $2, $3, $4)
RETURNING id`,
		post.UserID,
		post.Title,
		post.Content,
		post.DatePosted,
	).Scan(&post.ID)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	return post.ID, nil
}

func (r *PostRepository) ListByAuthor(ctx context.Context, userID int64, limit, offset int) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, title, content, date_posted
FROM posts
WHERE user_id = $1
ORDER BY date_posted DESC, id DESC
LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.DatePosted); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func (r *PostRepository) CountByAuthor(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

var _ repository.PostRepository = (*PostRepository)(nil)
