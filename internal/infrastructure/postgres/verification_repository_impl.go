package postgres

import (
	"context"
	"time"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	"github.com/oksasatya/fluxo-backend/internal/domain/repository"
)

type VerificationRepository struct {
	db DBTX
}

func NewVerificationRepository(db DBTX) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) Create(ctx context.Context, c *entity.VerificationCode) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO email_verification_codes (user_id, code, expires_at, is_used, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id
	`, c.UserID, c.Code, c.ExpiresAt, c.CreatedAt)
	return wrap("create verification code", row.Scan(&c.ID))
}

func (r *VerificationRepository) CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM email_verification_codes
		WHERE user_id = $1 AND created_at >= $2
	`, userID, since).Scan(&n)
	return n, wrap("count verification codes", err)
}

func (r *VerificationRepository) SupersedeUnused(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.Exec(ctx, `
		UPDATE email_verification_codes SET is_used = TRUE
		WHERE user_id = $1 AND is_used = FALSE
	`, userID)
	if err != nil {
		return 0, wrap("supersede verification codes", err)
	}
	return res.RowsAffected(), nil
}

func (r *VerificationRepository) FindActive(ctx context.Context, userID, code string, now time.Time) (*entity.VerificationCode, error) {
	v := &entity.VerificationCode{}
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, code, expires_at, is_used, created_at
		FROM email_verification_codes
		WHERE user_id = $1 AND code = $2 AND is_used = FALSE AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, code, now).Scan(&v.ID, &v.UserID, &v.Code, &v.ExpiresAt, &v.IsUsed, &v.CreatedAt)
	if err != nil {
		return nil, wrap("find verification code", err)
	}
	return v, nil
}

func (r *VerificationRepository) MarkUsed(ctx context.Context, id string) error {
	res, err := r.db.Exec(ctx, `
		UPDATE email_verification_codes SET is_used = TRUE
		WHERE id = $1 AND is_used = FALSE
	`, id)
	if err != nil {
		return wrap("mark verification code used", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.VerificationRepository = (*VerificationRepository)(nil)
