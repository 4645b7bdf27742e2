package postgres

import (
	"context"
	"time"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	"github.com/oksasatya/fluxo-backend/internal/domain/repository"
)

type QuotaRepository struct {
	db DBTX
}

func NewQuotaRepository(db DBTX) *QuotaRepository {
	return &QuotaRepository{db: db}
}

func (r *QuotaRepository) CreateReservation(ctx context.Context, res *entity.QuotaReservation) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO quota_reservations (user_id, expires_at, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, res.UserID, res.ExpiresAt, res.CreatedAt)
	return wrap("create reservation", row.Scan(&res.ID))
}

func (r *QuotaRepository) CountActiveReservations(ctx context.Context, userID string, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM quota_reservations
		WHERE user_id = $1 AND expires_at > $2
	`, userID, now).Scan(&n)
	return n, wrap("count reservations", err)
}

func (r *QuotaRepository) DeleteExpiredReservations(ctx context.Context, userID string, now time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, `DELETE FROM quota_reservations WHERE user_id = $1 AND expires_at <= $2`, userID, now)
	if err != nil {
		return 0, wrap("purge reservations", err)
	}
	return res.RowsAffected(), nil
}

func (r *QuotaRepository) DeleteReservation(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.Exec(ctx, `DELETE FROM quota_reservations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, wrap("delete reservation", err)
	}
	return res.RowsAffected() > 0, nil
}

var _ repository.QuotaRepository = (*QuotaRepository)(nil)
