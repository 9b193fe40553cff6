package models

import "time"

// User is the platform account the guard protects. The wider application
// owns registration, roles and profile data; the guard only reads the
// credential and rewrites it on a verified password change.
type User struct {
	ID                int64
	Username          string
	Email             string
	PasswordHash      string
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
	PasswordChangedAt *time.Time
}
