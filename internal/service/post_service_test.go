package service

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goblog/internal/domain"
	"goblog/internal/repository"
)

type fakePostRepo struct {
	nextID int64
	posts  []domain.Post
}

func (f *fakePostRepo) Init(ctx context.Context) error { return nil }

func (f *fakePostRepo) Create(ctx context.Context, post *domain.Post) (int64, error) {
	f.nextID++
	post.ID = f.nextID
	if post.DatePosted.IsZero() {
		post.DatePosted = time.Now().UTC()
	}
	f.posts = append(f.posts, *post)
	return post.ID, nil
}

func (f *fakePostRepo) ListByAuthor(ctx context.Context, userID int64, limit, offset int) ([]domain.Post, error) {
	var matched []domain.Post
	for _, p := range f.posts {
		if p.UserID == userID {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].DatePosted.Equal(matched[j].DatePosted) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].DatePosted.After(matched[j].DatePosted)
	})
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (f *fakePostRepo) CountByAuthor(ctx context.Context, userID int64) (int64, error) {
	var count int64
	for _, p := range f.posts {
		if p.UserID == userID {
			count++
		}
	}
	return count, nil
}

func newPostService(t *testing.T) (PostService, *fakeUserRepo, *fakePostRepo) {
	t.Helper()
	users := newFakeUserRepo()
	posts := &fakePostRepo{}
	return NewPostService(users, posts), users, posts
}

func seedUser(t *testing.T, users *fakeUserRepo, username string) *domain.User {
	t.Helper()
	user := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	_, err := users.Create(context.Background(), user)
	require.NoError(t, err)
	return user
}

func TestListByUserPagination(t *testing.T) {
	svc, users, posts := newPostService(t)
	author := seedUser(t, users, "corey")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 12; i++ {
		_, err := posts.Create(context.Background(), &domain.Post{
			UserID:     author.ID,
			Title:      fmt.Sprintf("post %d", i),
			Content:    "content",
			DatePosted: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	user, page, err := svc.ListByUser(context.Background(), "corey", 2)
	require.NoError(t, err)
	assert.Equal(t, author.ID, user.ID)

	// descending order: page 2 of 12 posts holds posts 6..10 of that ordering,
	// i.e. creation numbers 7 down to 3
	require.Len(t, page.Posts, 5)
	for i, want := range []string{"post 7", "post 6", "post 5", "post 4", "post 3"} {
		assert.Equal(t, want, page.Posts[i].Title)
	}

	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 5, page.PerPage)
	assert.Equal(t, int64(12), page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.True(t, page.HasNext)
	assert.True(t, page.HasPrev)
}

func TestListByUserOrdering(t *testing.T) {
	svc, users, posts := newPostService(t)
	author := seedUser(t, users, "corey")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		_, err := posts.Create(context.Background(), &domain.Post{
			UserID:     author.ID,
			Title:      fmt.Sprintf("post %d", i),
			DatePosted: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	_, page, err := svc.ListByUser(context.Background(), "corey", 1)
	require.NoError(t, err)
	require.Len(t, page.Posts, 3)
	assert.Equal(t, "post 3", page.Posts[0].Title, "newest post first")
	assert.False(t, page.HasNext)
	assert.False(t, page.HasPrev)
}

func TestListByUserUnknownUser(t *testing.T) {
	svc, _, _ := newPostService(t)

	_, _, err := svc.ListByUser(context.Background(), "nobody", 1)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestListByUserClampsPage(t *testing.T) {
	svc, users, posts := newPostService(t)
	author := seedUser(t, users, "corey")
	_, err := posts.Create(context.Background(), &domain.Post{UserID: author.ID, Title: "only"})
	require.NoError(t, err)

	_, page, err := svc.ListByUser(context.Background(), "corey", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Posts, 1)
}

func TestCreatePostValidation(t *testing.T) {
	svc, users, _ := newPostService(t)
	author := seedUser(t, users, "corey")

	_, err := svc.Create(context.Background(), author.ID, "", "content")
	assert.Error(t, err)
	_, err = svc.Create(context.Background(), author.ID, "title", "")
	assert.Error(t, err)

	post, err := svc.Create(context.Background(), author.ID, "title", "content")
	require.NoError(t, err)
	assert.NotZero(t, post.ID)
	assert.False(t, post.DatePosted.IsZero())
}
