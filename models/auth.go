package models

import (
	"time"
)

// User is the auth-subsystem row. Profile data lives separately so the admin
// listing can join the two and degrade when the email side is unavailable.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionUser is what auth endpoints hand back to the client.
type SessionUser struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	ApprovalStatus string `json:"approval_status"`
	Role           string `json:"role"`
	IsTestUser     bool   `json:"is_test_user"`
}
