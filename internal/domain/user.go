package domain

import "time"

// User is an account that can sign in: technicians and administrators.
// Non-admin usernames double as the assignee values on tickets.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	IsAdmin      bool
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
