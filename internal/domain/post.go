package domain

import "time"

// Post is a blog entry authored by exactly one user.
type Post struct {
	ID         int64
	UserID     int64
	Title      string
	Content    string
	DatePosted time.Time
}
