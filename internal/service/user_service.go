package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"goblog/internal/domain"
	"goblog/internal/repository"
	"goblog/internal/token"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	// It covers both unknown emails and wrong passwords so callers cannot tell
	// the two cases apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when registering with a taken username or email.
	ErrUserAlreadyExists = errors.New("username or email already taken")
	// ErrInvalidResetToken is returned for reset tokens that fail verification.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	// ErrMailNotConfigured is returned when a reset is requested but no mail
	// transport was configured at startup.
	ErrMailNotConfigured = errors.New("mail transport is not configured")
)

// ResetMailer delivers password-reset links.
type ResetMailer interface {
	SendPasswordReset(to, link string) error
}

// UserService describes account lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateAccount(ctx context.Context, id int64, username, email, imageURL string) (*domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyResetToken(ctx context.Context, tokenStr string) (*domain.User, error)
	ResetPassword(ctx context.Context, tokenStr, newPassword string) error
}

type userService struct {
	users    repository.UserRepository
	tokens   *token.Manager
	mailer   ResetMailer
	baseURL  string
	resetTTL time.Duration
}

func NewUserService(users repository.UserRepository, tokens *token.Manager, mailer ResetMailer, baseURL string, resetTTL time.Duration) UserService {
	return &userService{
		users:    users,
		tokens:   tokens,
		mailer:   mailer,
		baseURL:  strings.TrimRight(baseURL, "/"),
		resetTTL: resetTTL,
	}
}

func (s *userService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateAccount overwrites username and email, and the image URL when a new one
// is supplied. An empty imageURL keeps the existing picture.
func (s *userService) UpdateAccount(ctx context.Context, id int64, username, email, imageURL string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Username = username
	user.Email = email
	if imageURL != "" {
		user.ImageURL = imageURL
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return user, nil
}

// RequestPasswordReset issues a signed reset token and emails it as a link.
// Unknown emails surface repository.ErrUserNotFound and no token is issued.
func (s *userService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}

	if s.mailer == nil {
		return ErrMailNotConfigured
	}

	resetToken, err := s.tokens.GenerateReset(user.ID, s.resetTTL)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset_password/%s", s.baseURL, resetToken)
	if err := s.mailer.SendPasswordReset(user.Email, link); err != nil {
		return err
	}
	return nil
}

func (s *userService) VerifyResetToken(ctx context.Context, tokenStr string) (*domain.User, error) {
	userID, err := s.tokens.VerifyReset(tokenStr)
	if err != nil {
		return nil, ErrInvalidResetToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	user, err := s.VerifyResetToken(ctx, tokenStr)
	if err != nil {
		return err
	}

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.users.UpdatePassword(ctx, user.ID, string(hash))
}

func validateUsername(username string) error {
	if username == "" {
		return errors.New("username is required")
	}
	if len(username) < 2 || len(username) > 20 {
		return errors.New("username must be between 2 and 20 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("email is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
