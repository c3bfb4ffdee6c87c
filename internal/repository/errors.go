package repository

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrPostNotFound is returned when no post matches the lookup key.
	ErrPostNotFound = errors.New("post not found")
	// ErrDuplicateUser is returned when a unique constraint on username or email fails.
	ErrDuplicateUser = errors.New("username or email already taken")
)
