// Package verification issues and redeems single-use email confirmation codes.
//
// A code is Active until it is redeemed, superseded by a newer code, or its
// expiry passes. Redeemed and superseded codes keep is_used=true forever;
// nothing is deleted.
package verification

import (
	"context"
	"errors"
	"expvar"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	repo "github.com/oksasatya/fluxo-backend/internal/domain/repository"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
	"github.com/oksasatya/fluxo-backend/pkg/mailer"
)

var (
	ErrRateLimited        = errors.New("too many verification codes requested, try again later")
	ErrUserNotFound       = errors.New("user not found")
	ErrAlreadyConfirmed   = errors.New("email already confirmed")
	ErrInvalidOrExpired   = errors.New("invalid or expired verification code")
	ErrNotificationFailed = errors.New("verification email could not be sent")
)

var (
	issuedTotal       = expvar.NewInt("verification_issued_total")
	rateLimitedTotal  = expvar.NewInt("verification_rate_limited_total")
	redeemedTotal     = expvar.NewInt("verification_redeemed_total")
	deliveryFailTotal = expvar.NewInt("verification_delivery_failed_total")
	welcomeFailTotal  = expvar.NewInt("verification_welcome_failed_total")
)

// Notifier is the email side of the ledger. Implementations bound their own
// latency by ctx and report delivery as a bool.
type Notifier interface {
	SendVerification(ctx context.Context, r mailer.Recipient, code string, expiresAt time.Time) bool
	SendWelcome(ctx context.Context, r mailer.Recipient) bool
}

type Config struct {
	CodeTTL       time.Duration
	ResendWindow  time.Duration
	ResendMax     int
	NotifyTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.CodeTTL <= 0 {
		c.CodeTTL = 15 * time.Minute
	}
	if c.ResendWindow <= 0 {
		c.ResendWindow = time.Hour
	}
	if c.ResendMax <= 0 {
		c.ResendMax = 3
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 10 * time.Second
	}
	return c
}

// Issued is the result of IssueCode. Delivered is the notifier's answer.
type Issued struct {
	Code      string
	ExpiresAt time.Time
	Delivered bool
}

type Ledger struct {
	tx       repo.TxManager
	users    repo.UserRepository
	clock    helpers.Clock
	codes    helpers.CodeGenerator
	notifier Notifier
	cfg      Config
	Logger   *logrus.Logger

	// OnWelcome, when set, observes every welcome email attempt.
	OnWelcome func(userID string, delivered bool)

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewLedger(tx repo.TxManager, users repo.UserRepository, clock helpers.Clock, codes helpers.CodeGenerator, notifier Notifier, cfg Config, logger *logrus.Logger) *Ledger {
	return &Ledger{
		tx:       tx,
		users:    users,
		clock:    clock,
		codes:    codes,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
		Logger:   logger,
	}
}

// IssueCode rate-limits, supersedes every unused code of the user, stores a
// fresh one and emails it once the state is committed.
func (l *Ledger) IssueCode(ctx context.Context, u *entity.User) (Issued, error) {
	var out Issued
	err := l.tx.WithUserLock(ctx, u.ID, func(ctx context.Context, locked *entity.User, uow repo.UnitOfWork) error {
		now := l.clock.Now()
		recent, err := uow.Verifications().CountCreatedSince(ctx, locked.ID, now.Add(-l.cfg.ResendWindow))
		if err != nil {
			return err
		}
		if recent >= l.cfg.ResendMax {
			return ErrRateLimited
		}
		if _, err := uow.Verifications().SupersedeUnused(ctx, locked.ID); err != nil {
			return err
		}
		code, err := l.codes.Generate()
		if err != nil {
			return err
		}
		vc := &entity.VerificationCode{
			UserID:    locked.ID,
			Code:      code,
			ExpiresAt: now.Add(l.cfg.CodeTTL),
			CreatedAt: now,
		}
		if err := uow.Verifications().Create(ctx, vc); err != nil {
			return err
		}
		out = Issued{Code: code, ExpiresAt: vc.ExpiresAt}
		return nil
	})
	switch {
	case errors.Is(err, ErrRateLimited):
		rateLimitedTotal.Add(1)
		return Issued{}, err
	case errors.Is(err, repo.ErrNotFound):
		return Issued{}, ErrUserNotFound
	case err != nil:
		return Issued{}, err
	}
	issuedTotal.Add(1)

	nctx, cancel := context.WithTimeout(ctx, l.cfg.NotifyTimeout)
	defer cancel()
	out.Delivered = l.notifier.SendVerification(nctx, recipientOf(u), out.Code, out.ExpiresAt)
	if !out.Delivered {
		deliveryFailTotal.Add(1)
	}
	return out, nil
}

// RedeemCode confirms the email of the user owning email when code is one of
// their active codes. Wrong, superseded and expired codes are reported the
// same way.
func (l *Ledger) RedeemCode(ctx context.Context, email, code string) error {
	u, err := l.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	err = l.tx.WithUserLock(ctx, u.ID, func(ctx context.Context, locked *entity.User, uow repo.UnitOfWork) error {
		if locked.IsEmailConfirmed {
			return ErrAlreadyConfirmed
		}
		vc, err := uow.Verifications().FindActive(ctx, locked.ID, code, l.clock.Now())
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrInvalidOrExpired
			}
			return err
		}
		if err := uow.Verifications().MarkUsed(ctx, vc.ID); err != nil {
			return err
		}
		return uow.Users().SetEmailConfirmed(ctx, locked.ID)
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	redeemedTotal.Add(1)
	l.welcome(ctx, recipientOf(u))
	return nil
}

// welcome sends the welcome email in the background. The request context
// only contributes its values; the send gets its own deadline.
func (l *Ledger) welcome(ctx context.Context, r mailer.Recipient) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		welcomeFailTotal.Add(1)
		if l.Logger != nil {
			l.Logger.WithField("user_id", r.UserID).Warn("welcome email skipped, ledger closed")
		}
		if l.OnWelcome != nil {
			l.OnWelcome(r.UserID, false)
		}
		return
	}
	l.wg.Add(1)
	l.mu.Unlock()

	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.NotifyTimeout)
	go func() {
		defer l.wg.Done()
		defer cancel()
		delivered := l.notifier.SendWelcome(bg, r)
		if !delivered {
			welcomeFailTotal.Add(1)
		}
		if l.Logger != nil {
			entry := l.Logger.WithFields(logrus.Fields{"user_id": r.UserID, "delivered": delivered})
			if delivered {
				entry.Info("welcome email sent")
			} else {
				entry.Warn("welcome email not delivered")
			}
		}
		if l.OnWelcome != nil {
			l.OnWelcome(r.UserID, delivered)
		}
	}()
}

// Wait blocks until background welcome emails finish.
func (l *Ledger) Wait() { l.wg.Wait() }

// Close stops starting welcome emails and waits for the ones in flight.
// Redemptions after Close still confirm; their welcome is reported as not
// delivered.
func (l *Ledger) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.wg.Wait()
}

func recipientOf(u *entity.User) mailer.Recipient {
	return mailer.Recipient{UserID: u.ID, Email: u.Email, Name: u.Name}
}
