package repository

import (
	"context"
	"time"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
)

// VerificationRepository persists email verification codes.
type VerificationRepository interface {
	Create(ctx context.Context, c *entity.VerificationCode) error
	// CountCreatedSince counts codes of the user with created_at >= since.
	CountCreatedSince(ctx context.Context, userID string, since time.Time) (int, error)
	// SupersedeUnused marks every unused code of the user as used and returns how many changed.
	SupersedeUnused(ctx context.Context, userID string) (int64, error)
	// FindActive returns the newest unused code matching code with expires_at > now.
	FindActive(ctx context.Context, userID, code string, now time.Time) (*entity.VerificationCode, error)
	MarkUsed(ctx context.Context, id string) error
}
