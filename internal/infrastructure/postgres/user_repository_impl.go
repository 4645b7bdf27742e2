package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	"github.com/oksasatya/fluxo-backend/internal/domain/repository"
)

const selectUser = `
		SELECT id, email, password_hash, name, avatar_url, is_email_confirmed,
		       daily_limit, requests_today, last_request_date, created_at, updated_at
		FROM users`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.AvatarURL, &u.IsEmailConfirmed,
		&u.DailyLimit, &u.RequestsToday, &u.LastRequestDate, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, wrap("scan user", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, avatar_url, daily_limit)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Password, u.Name, u.AvatarURL, u.DailyLimit)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEmail
		}
		return wrap("create user", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+` WHERE email = $1`, email))
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now()

	res, err := r.db.Exec(ctx, `
		UPDATE users
		SET email = $1, name = $2, avatar_url = $3, updated_at = $4
		WHERE id = $5
	`, u.Email, u.Name, u.AvatarURL, u.UpdatedAt, u.ID)
	if err != nil {
		return wrap("update user", err)
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.exec(ctx, "update password", `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
}

func (r *UserRepository) SetEmailConfirmed(ctx context.Context, id string) error {
	return r.exec(ctx, "confirm email", `UPDATE users SET is_email_confirmed = TRUE, updated_at = now() WHERE id = $1`, id)
}

func (r *UserRepository) SaveQuota(ctx context.Context, id string, requestsToday int, lastRequestDate *time.Time) error {
	return r.exec(ctx, "save quota", `
		UPDATE users SET requests_today = $2, last_request_date = $3, updated_at = now()
		WHERE id = $1
	`, id, requestsToday, lastRequestDate)
}

func (r *UserRepository) exec(ctx context.Context, op, sql string, args ...any) error {
	res, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return wrap(op, err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
