package entity

import "time"

// VerificationCode is a single-use, time-boxed email ownership proof.
// Rows are never deleted; IsUsed flips once, either on redemption or when a
// newer code supersedes it.
type VerificationCode struct {
	ID        string
	UserID    string
	Code      string
	ExpiresAt time.Time
	IsUsed    bool
	CreatedAt time.Time
}

// Active reports whether the code can still be redeemed at now.
func (v *VerificationCode) Active(now time.Time) bool {
	return !v.IsUsed && now.Before(v.ExpiresAt)
}
