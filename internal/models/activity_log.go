package models

import "time"

// UserActivityLog mirrors AuditLog in a separate table. Audit rows are the
// operator-facing security trail; activity rows back the user-facing
// "my activity" view and carry general actions (logins, page views, password
// changes) alongside security events.
type UserActivityLog struct {
	ID        int64
	UserID    *int64
	Username  *string
	Action    string
	IPAddress *string
	UserAgent *string
	Success   bool
	Details   Details
	Timestamp time.Time
}

// ActivityPage is one page of a user's activity trail, newest first.
type ActivityPage struct {
	Activities []*UserActivityLog `json:"activities"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}
