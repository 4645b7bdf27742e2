package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	"github.com/oksasatya/fluxo-backend/internal/domain/repository"
)

// DBTX is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store wires the pgx repositories and implements repository.TxManager.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Users() repository.UserRepository { return NewUserRepository(s.pool) }
func (s *Store) Verifications() repository.VerificationRepository {
	return NewVerificationRepository(s.pool)
}
func (s *Store) Quotas() repository.QuotaRepository   { return NewQuotaRepository(s.pool) }
func (s *Store) Prompts() repository.PromptRepository { return NewPromptRepository(s.pool) }

type txUnit struct{ tx pgx.Tx }

func (u txUnit) Users() repository.UserRepository { return NewUserRepository(u.tx) }
func (u txUnit) Verifications() repository.VerificationRepository {
	return NewVerificationRepository(u.tx)
}
func (u txUnit) Quotas() repository.QuotaRepository { return NewQuotaRepository(u.tx) }

// WithUserLock runs fn inside a transaction holding SELECT ... FOR UPDATE on the user row.
// Concurrent callers for the same user serialize on the row lock; other users never contend.
func (s *Store) WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context, u *entity.User, uow repository.UnitOfWork) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		u, err := scanUser(tx.QueryRow(ctx, selectUser+` WHERE id = $1 FOR UPDATE`, userID))
		if err != nil {
			return err
		}
		return fn(ctx, u, txUnit{tx: tx})
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

var (
	_ repository.TxManager  = (*Store)(nil)
	_ repository.UnitOfWork = txUnit{}
	_ repository.UnitOfWork = (*Store)(nil)
)
