package repository

import (
	"context"
	"time"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
)

// QuotaRepository persists in-flight quota reservations.
type QuotaRepository interface {
	CreateReservation(ctx context.Context, r *entity.QuotaReservation) error
	// CountActiveReservations counts reservations of the user with expires_at > now.
	CountActiveReservations(ctx context.Context, userID string, now time.Time) (int, error)
	// DeleteExpiredReservations drops reservations of the user with expires_at <= now.
	DeleteExpiredReservations(ctx context.Context, userID string, now time.Time) (int64, error)
	// DeleteReservation removes the reservation and reports whether it existed.
	DeleteReservation(ctx context.Context, userID, id string) (bool, error)
}
