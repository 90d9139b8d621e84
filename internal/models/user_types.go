package models

import "time"

// User is the model for the 'users' table.
// ID is the subject claim from the identity provider (opaque string),
// so there is no auto-increment key here.
type User struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"` // same value as ID, kept for API compatibility
	Email     string    `json:"email" db:"email"`
	Credits   int64     `json:"credits" db:"credits"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Version is the optimistic-concurrency token: every credits replace
	// must name the version it read, and bumps it on success.
	Version int64 `json:"-" db:"version"`
}
