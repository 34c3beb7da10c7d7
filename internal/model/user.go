// Package model defines the data structures used throughout the application.
package model

import "time"

// DefaultDailyLimit is the number of completion requests a new account may
// make per 24-hour usage window.
const DefaultDailyLimit = 100

// User represents a registered account.
//
// PasswordHash is the bcrypt output (salt embedded) and is never serialized
// to JSON — the `json:"-"` tag excludes it from every API response. Handlers
// additionally build an explicit response payload rather than encoding the
// model directly, so a future tag mistake can't leak it either.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"` // stored lowercased, unique
	PasswordHash string    `json:"-"         db:"password_hash"`
	Usage        APIUsage  `json:"apiUsage"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// APIUsage is the per-account fixed-window usage counter.
//
// The window is lazy: WindowStart only advances when the account is next
// touched and 24 hours or more have elapsed. RequestCount never goes
// negative; admission is checked before every increment.
type APIUsage struct {
	RequestCount int       `json:"requestCount" db:"request_count"`
	WindowStart  time.Time `json:"windowStart"  db:"window_start"`
	DailyLimit   int       `json:"dailyLimit"   db:"daily_limit"`
}

// Remaining returns the unused portion of the daily limit, clamped at zero.
func (u APIUsage) Remaining() int {
	if r := u.DailyLimit - u.RequestCount; r > 0 {
		return r
	}
	return 0
}
