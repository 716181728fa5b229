package entities

import "time"

// User mirrors the accounts schema's user row: a stable numeric id, unique
// login name and email, an adaptive password hash, and the counters the
// login flow mutates on every attempt.
type User struct {
	ID                int64      `db:"id" json:"id"`
	Username          string     `db:"username" json:"username"`
	Email             string     `db:"email" json:"email"`
	PasswordHash      string     `db:"password_hash" json:"-"`
	DisplayName       string     `db:"display_name" json:"displayName"`
	Active            bool       `db:"active" json:"active"`
	Locked            bool       `db:"locked" json:"locked"`
	FailedAttempts    int        `db:"failed_attempts" json:"-"`
	LastLoginAt       *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
}
