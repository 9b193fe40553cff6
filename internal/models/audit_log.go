package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Security audit actions
const (
	AuditActionAccountLocked   = "account_locked"
	AuditActionAccountUnlocked = "account_unlocked_manually"
	AuditActionPasswordChanged = "password_changed"
	AuditActionPasswordFailed  = "password_change_failed"
	AuditActionLoginSuccess    = "login_success"
	AuditActionLoginFailed     = "login_failed"
)

// AuditLog is an append-only record of a security-relevant event. UserID and
// Username are both optional: the actor may be anonymous, or the account may
// have been deleted since.
type AuditLog struct {
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

// Details is the free-form JSON payload attached to audit and activity rows.
// The shape varies per action, so it stays a loose map rather than a schema.
type Details map[string]interface{}

// Scan implements sql.Scanner for JSONB columns
func (d *Details) Scan(value interface{}) error {
	if value == nil {
		*d = make(Details)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*d = Details(m)
	return nil
}

// Value implements driver.Valuer for JSONB columns
func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// MarshalJSON implements json.Marshaler
func (d Details) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(d))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Details) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*d = Details(m)
	return nil
}
