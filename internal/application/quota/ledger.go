// Package quota meters the daily generation allowance of each user.
//
// Admission is split from consumption: CheckAndReserve holds one unit for
// ReservationTTL without touching the counter, RecordUsage converts the held
// unit into a counted request, Release gives it back. A reservation that is
// neither recorded nor released stops counting once it expires.
package quota

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	repo "github.com/oksasatya/fluxo-backend/internal/domain/repository"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
)

var (
	ErrDailyLimitExceeded  = errors.New("daily request limit exceeded")
	ErrReservationNotFound = errors.New("quota reservation not found")
	ErrUserNotFound        = errors.New("user not found")
)

// LimitError is returned when the user has no units left today.
type LimitError struct {
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("daily request limit of %d exceeded", e.Limit)
}

func (e *LimitError) Is(target error) bool { return target == ErrDailyLimitExceeded }

var (
	admittedTotal = expvar.NewInt("quota_admitted_total")
	deniedTotal   = expvar.NewInt("quota_denied_total")
	recordedTotal = expvar.NewInt("quota_recorded_total")
	releasedTotal = expvar.NewInt("quota_released_total")
	lapsedTotal   = expvar.NewInt("quota_lapsed_recorded_total")
)

type Config struct {
	ReservationTTL time.Duration
}

// Reservation is the handle returned on admission.
type Reservation struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

type Status struct {
	DailyLimit        int        `json:"daily_limit"`
	RequestsToday     int        `json:"requests_today"`
	RemainingRequests int        `json:"remaining_requests"`
	LastRequestDate   *time.Time `json:"last_request_date"`
}

type Ledger struct {
	tx     repo.TxManager
	clock  helpers.Clock
	cfg    Config
	Logger *logrus.Logger
}

func NewLedger(tx repo.TxManager, clock helpers.Clock, cfg Config, logger *logrus.Logger) *Ledger {
	if cfg.ReservationTTL <= 0 {
		cfg.ReservationTTL = 2 * time.Minute
	}
	return &Ledger{tx: tx, clock: clock, cfg: cfg, Logger: logger}
}

// reconcile zeroes the counter when the stored date is not today and
// persists the reset. It reports the state to use for decisions.
func (l *Ledger) reconcile(ctx context.Context, u *entity.User, users repo.UserRepository) (entity.QuotaState, error) {
	q := u.Quota()
	today := l.clock.Today()
	if q.IsToday(today) {
		return q, nil
	}
	if err := users.SaveQuota(ctx, u.ID, 0, &today); err != nil {
		return q, err
	}
	q.RequestsToday = 0
	q.LastRequestDate = &today
	return q, nil
}

// CheckAndReserve admits the metered action when the user has a unit left
// today. A denial is returned as *LimitError.
func (l *Ledger) CheckAndReserve(ctx context.Context, userID string) (Reservation, error) {
	var (
		res    Reservation
		denied *LimitError
	)
	err := l.tx.WithUserLock(ctx, userID, func(ctx context.Context, u *entity.User, uow repo.UnitOfWork) error {
		q, err := l.reconcile(ctx, u, uow.Users())
		if err != nil {
			return err
		}
		now := l.clock.Now()
		if _, err := uow.Quotas().DeleteExpiredReservations(ctx, u.ID, now); err != nil {
			return err
		}
		held, err := uow.Quotas().CountActiveReservations(ctx, u.ID, now)
		if err != nil {
			return err
		}
		if q.RequestsToday+held >= q.DailyLimit {
			// commit the reset; the denial itself is reported after the transaction
			denied = &LimitError{Limit: q.DailyLimit}
			return nil
		}
		r := &entity.QuotaReservation{UserID: u.ID, ExpiresAt: now.Add(l.cfg.ReservationTTL), CreatedAt: now}
		if err := uow.Quotas().CreateReservation(ctx, r); err != nil {
			return err
		}
		res = Reservation{ID: r.ID, UserID: u.ID, ExpiresAt: r.ExpiresAt}
		return nil
	})
	if err != nil {
		return Reservation{}, l.mapErr(err)
	}
	if denied != nil {
		deniedTotal.Add(1)
		if l.Logger != nil {
			l.Logger.WithFields(logrus.Fields{"user_id": userID, "limit": denied.Limit}).Debug("quota denied")
		}
		return Reservation{}, denied
	}
	admittedTotal.Add(1)
	return res, nil
}

// RecordUsage consumes the reserved unit: the reservation is removed and
// requests_today grows by one, atomically.
//
// A reservation that already lapsed has been purged by a later admission,
// yet its action completed, so it is still counted. A missing reservation
// that has not lapsed was recorded or released before and fails with
// ErrReservationNotFound.
func (l *Ledger) RecordUsage(ctx context.Context, r Reservation) error {
	var lapsed bool
	err := l.tx.WithUserLock(ctx, r.UserID, func(ctx context.Context, u *entity.User, uow repo.UnitOfWork) error {
		ok, err := uow.Quotas().DeleteReservation(ctx, u.ID, r.ID)
		if err != nil {
			return err
		}
		if !ok {
			if l.clock.Now().Before(r.ExpiresAt) {
				return ErrReservationNotFound
			}
			lapsed = true
		}
		q, err := l.reconcile(ctx, u, uow.Users())
		if err != nil {
			return err
		}
		return uow.Users().SaveQuota(ctx, u.ID, q.RequestsToday+1, q.LastRequestDate)
	})
	if err != nil {
		return l.mapErr(err)
	}
	recordedTotal.Add(1)
	if lapsed {
		lapsedTotal.Add(1)
		if l.Logger != nil {
			l.Logger.WithFields(logrus.Fields{"user_id": r.UserID, "reservation_id": r.ID}).
				Warn("usage recorded after reservation expired")
		}
	}
	return nil
}

// Release returns the reserved unit without counting it. Releasing an
// unknown or already consumed reservation is a no-op.
func (l *Ledger) Release(ctx context.Context, r Reservation) error {
	var released bool
	err := l.tx.WithUserLock(ctx, r.UserID, func(ctx context.Context, u *entity.User, uow repo.UnitOfWork) error {
		var err error
		released, err = uow.Quotas().DeleteReservation(ctx, u.ID, r.ID)
		return err
	})
	if err != nil {
		return l.mapErr(err)
	}
	if released {
		releasedTotal.Add(1)
	}
	return nil
}

// GetStatus reports today's usage, resetting a stale counter first.
func (l *Ledger) GetStatus(ctx context.Context, userID string) (Status, error) {
	var st Status
	err := l.tx.WithUserLock(ctx, userID, func(ctx context.Context, u *entity.User, uow repo.UnitOfWork) error {
		q, err := l.reconcile(ctx, u, uow.Users())
		if err != nil {
			return err
		}
		remaining := q.DailyLimit - q.RequestsToday
		if remaining < 0 {
			remaining = 0
		}
		st = Status{
			DailyLimit:        q.DailyLimit,
			RequestsToday:     q.RequestsToday,
			RemainingRequests: remaining,
			LastRequestDate:   q.LastRequestDate,
		}
		return nil
	})
	if err != nil {
		return Status{}, l.mapErr(err)
	}
	return st, nil
}

func (l *Ledger) mapErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
