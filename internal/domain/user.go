package domain

import "time"

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	ImageURL     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
