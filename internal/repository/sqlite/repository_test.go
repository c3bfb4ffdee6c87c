package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goblog/internal/domain"
	"goblog/internal/repository"
)

func newTestDB(t *testing.T) (repository.UserRepository, repository.PostRepository) {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	require.NoError(t, users.Init(context.Background()))
	require.NoError(t, posts.Init(context.Background()))
	return users, posts
}

func TestUserCreateAndGet(t *testing.T) {
	users, _ := newTestDB(t)
	ctx := context.Background()

	user := &domain.User{
		Username:     "corey",
		Email:        "corey@example.com",
		PasswordHash: "hash",
	}
	id, err := users.Create(ctx, user)
	require.NoError(t, err)
	require.NotZero(t, id)

	byEmail, err := users.GetByEmail(ctx, "corey@example.com")
	require.NoError(t, err)
	assert.Equal(t, "corey", byEmail.Username)

	byUsername, err := users.GetByUsername(ctx, "corey")
	require.NoError(t, err)
	assert.Equal(t, id, byUsername.ID)

	_, err = users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserUniqueConstraints(t *testing.T) {
	users, _ := newTestDB(t)
	ctx := context.Background()

	_, err := users.Create(ctx, &domain.User{Username: "corey", Email: "corey@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = users.Create(ctx, &domain.User{Username: "corey", Email: "other@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrDuplicateUser)

	_, err = users.Create(ctx, &domain.User{Username: "other", Email: "corey@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, repository.ErrDuplicateUser)
}

func TestUserUpdate(t *testing.T) {
	users, _ := newTestDB(t)
	ctx := context.Background()

	user := &domain.User{Username: "corey", Email: "corey@example.com", PasswordHash: "h"}
	_, err := users.Create(ctx, user)
	require.NoError(t, err)

	user.Username = "newname"
	user.ImageURL = "https://cdn.example/pic.png"
	require.NoError(t, users.Update(ctx, user))

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "newname", stored.Username)
	assert.Equal(t, "https://cdn.example/pic.png", stored.ImageURL)

	assert.ErrorIs(t, users.Update(ctx, &domain.User{ID: 999, Username: "x", Email: "x@example.com"}), repository.ErrUserNotFound)
}

func TestUserUpdatePassword(t *testing.T) {
	users, _ := newTestDB(t)
	ctx := context.Background()

	user := &domain.User{Username: "corey", Email: "corey@example.com", PasswordHash: "old"}
	_, err := users.Create(ctx, user)
	require.NoError(t, err)

	require.NoError(t, users.UpdatePassword(ctx, user.ID, "new"))

	stored, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", stored.PasswordHash)

	assert.ErrorIs(t, users.UpdatePassword(ctx, 999, "x"), repository.ErrUserNotFound)
}

func TestPostListPagination(t *testing.T) {
	users, posts := newTestDB(t)
	ctx := context.Background()

	author := &domain.User{Username: "corey", Email: "corey@example.com", PasswordHash: "h"}
	_, err := users.Create(ctx, author)
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 12; i++ {
		_, err := posts.Create(ctx, &domain.Post{
			UserID:     author.ID,
			Title:      fmt.Sprintf("post %d", i),
			Content:    "content",
			DatePosted: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	count, err := posts.CountByAuthor(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)

	// page 2 with page size 5: posts 6..10 of the descending ordering
	page, err := posts.ListByAuthor(ctx, author.ID, 5, 5)
	require.NoError(t, err)
	require.Len(t, page, 5)
	for i, want := range []string{"post 7", "post 6", "post 5", "post 4", "post 3"} {
		assert.Equal(t, want, page[i].Title)
	}

	// beyond the last page
	empty, err := posts.ListByAuthor(ctx, author.ID, 5, 15)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostListOnlyAuthor(t *testing.T) {
	users, posts := newTestDB(t)
	ctx := context.Background()

	a := &domain.User{Username: "a", Email: "a@example.com", PasswordHash: "h"}
	b := &domain.User{Username: "b", Email: "b@example.com", PasswordHash: "h"}
	_, err := users.Create(ctx, a)
	require.NoError(t, err)
	_, err = users.Create(ctx, b)
	require.NoError(t, err)

	_, err = posts.Create(ctx, &domain.Post{UserID: a.ID, Title: "a post", Content: "c"})
	require.NoError(t, err)
	_, err = posts.Create(ctx, &domain.Post{UserID: b.ID, Title: "b post", Content: "c"})
	require.NoError(t, err)

	list, err := posts.ListByAuthor(ctx, a.ID, 5, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a post", list[0].Title)
}
