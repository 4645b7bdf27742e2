package entity

import (
	"time"
)

// User is the aggregate root for user domain
// Passwords are stored as bcrypt hashes in Password field
//
// The quota fields mirror the users row; LastRequestDate holds a calendar
// date as midnight UTC, nil until the first metered request.
type User struct {
	ID               string
	Email            string
	Password         string
	Name             string
	AvatarURL        string
	IsEmailConfirmed bool

	DailyLimit      int
	RequestsToday   int
	LastRequestDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuotaState is the subset of User the quota ledger reads and writes.
type QuotaState struct {
	DailyLimit      int
	RequestsToday   int
	LastRequestDate *time.Time
}

func (u *User) Quota() QuotaState {
	return QuotaState{DailyLimit: u.DailyLimit, RequestsToday: u.RequestsToday, LastRequestDate: u.LastRequestDate}
}

// IsToday reports whether the stored date equals today.
func (q QuotaState) IsToday(today time.Time) bool {
	return q.LastRequestDate != nil && q.LastRequestDate.Equal(today)
}
