package entity

import "time"

// QuotaReservation holds one unit of a user's daily quota while the metered
// action is running. It is deleted when usage is recorded or released and
// stops counting once ExpiresAt passes.
type QuotaReservation struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
