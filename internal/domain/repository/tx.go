package repository

import (
	"context"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
)

// UnitOfWork exposes repositories bound to one transaction.
type UnitOfWork interface {
	Users() UserRepository
	Verifications() VerificationRepository
	Quotas() QuotaRepository
}

// TxManager runs work that must be atomic with respect to a single user row.
type TxManager interface {
	// WithUserLock starts a transaction, locks the user row and hands the
	// locked snapshot to fn. The transaction commits when fn returns nil and
	// rolls back otherwise. Returns ErrNotFound if the user does not exist.
	WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context, u *entity.User, uow UnitOfWork) error) error
}
