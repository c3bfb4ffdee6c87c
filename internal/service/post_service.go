package service

import (
	"context"
	"errors"
	"strings"

	"goblog/internal/domain"
	"goblog/internal/repository"
)

// PostsPerPage is the fixed page size for post listings.
const PostsPerPage = 5

// PostPage is one page of a user's posts plus pagination metadata.
type PostPage struct {
	Posts   []domain.Post
	Page    int
	PerPage int
	Total   int64
	Pages   int
	HasNext bool
	HasPrev bool
}

// PostService describes post operations.
type PostService interface {
	Create(ctx context.Context, userID int64, title, content string) (*domain.Post, error)
	ListByUser(ctx context.Context, username string, page int) (*domain.User, *PostPage, error)
}

type postService struct {
	users repository.UserRepository
	posts repository.PostRepository
}

func NewPostService(users repository.UserRepository, posts repository.PostRepository) PostService {
	return &postService{users: users, posts: posts}
}

func (s *postService) Create(ctx context.Context, userID int64, title, content string) (*domain.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	if content == "" {
		return nil, errors.New("content is required")
	}

	post := &domain.Post{
		UserID:  userID,
		Title:   title,
		Content: content,
	}
	if _, err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// ListByUser resolves the author and returns the requested page of their posts,
// newest first. Pages below 1 are clamped to the first page.
func (s *postService) ListByUser(ctx context.Context, username string, page int) (*domain.User, *PostPage, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, nil, err
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * PostsPerPage

	posts, err := s.posts.ListByAuthor(ctx, user.ID, PostsPerPage, offset)
	if err != nil {
		return nil, nil, err
	}
	total, err := s.posts.CountByAuthor(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	pages := int((total + PostsPerPage - 1) / PostsPerPage)

	return user, &PostPage{
		Posts:   posts,
		Page:    page,
		PerPage: PostsPerPage,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}, nil
}
