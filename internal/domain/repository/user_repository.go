package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
)

// ErrNotFound is returned by repositories when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned by UserRepository.Create when the email is taken.
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetEmailConfirmed(ctx context.Context, id string) error
	// SaveQuota persists requests_today and last_request_date.
	SaveQuota(ctx context.Context, id string, requestsToday int, lastRequestDate *time.Time) error
}
