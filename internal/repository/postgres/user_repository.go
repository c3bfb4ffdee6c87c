package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"goblog/internal/domain"
	"goblog/internal/repository"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

// Init is a no-op: the schema is managed by the embedded goose migrations.
func (r *UserRepository) Init(ctx context.Context) error {
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, `
INSERT INTO users (username, email, password_hash, image_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.ImageURL,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert user: %w", repository.ErrDuplicateUser)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return user.ID, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`WHERE username = $1`, username)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
UPDATE users SET username = $1, email = $2, image_url = $3, updated_at = $4
WHERE id = $5`,
		user.Username,
		user.Email,
		user.ImageURL,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user: %w", repository.ErrDuplicateUser)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return checkAffected(res)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE users SET password_hash = $1, updated_at = $2
WHERE id = $3`,
		passwordHash,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return checkAffected(res)
}

const selectUser = `
SELECT id, username, email, password_hash, image_url, created_at, updated_at
FROM users
`

// 23505 is the Postgres unique_violation code.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.ImageURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
