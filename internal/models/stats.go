package models

// SecurityStats aggregates login activity over a trailing window for the
// operator dashboard.
type SecurityStats struct {
	TotalLogins      int64   `json:"total_logins"`
	SuccessfulLogins int64   `json:"successful_logins"`
	FailedLogins     int64   `json:"failed_logins"`
	SuccessRate      float64 `json:"success_rate"`
	ActiveLockouts   int64   `json:"active_lockouts"`
	ActiveUsers      int64   `json:"active_users"`
}
