package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"goblog/internal/domain"
	"goblog/internal/repository"
)

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	date_posted DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_user_date ON posts(user_id, date_posted DESC);
`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTable); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	if post.DatePosted.IsZero() {
		post.DatePosted = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO posts (user_id, title, content, date_posted)
VALUES (?, ?, ?, ?)`,
		post.UserID,
		post.Title,
		post.Content,
		post.DatePosted,
	)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post last insert id: %w", err)
	}
	post.ID = id
	return id, nil
}

func (r *PostRepository) ListByAuthor(ctx context.Context, userID int64, limit, offset int) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, title, content, date_posted
FROM posts
WHERE user_id = ?
ORDER BY date_posted DESC, id DESC
LIMIT ? OFFSET ?`,
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
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

var _ repository.PostRepository = (*PostRepository)(nil)
