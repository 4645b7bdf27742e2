package application

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fluxo-backend/internal/application/verification"
	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	repo "github.com/oksasatya/fluxo-backend/internal/domain/repository"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
	"github.com/oksasatya/fluxo-backend/pkg/mailer"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSamePassword       = errors.New("new password must differ from the current one")
	ErrStorageUnavailable = errors.New("avatar storage not configured")
)

// PasswordNotifier is told about completed password changes.
type PasswordNotifier interface {
	SendPasswordChanged(ctx context.Context, r mailer.Recipient, at time.Time) bool
}

type Service struct {
	Repo         repo.UserRepository
	Verification *verification.Ledger
	Notifier     PasswordNotifier
	JWT          *helpers.JWTManager
	GCS          *storage.Client
	GCSBucket    string
	Redis        *redis.Client
	Logger       *logrus.Logger

	DefaultDailyLimit int
	SessionTTL        time.Duration
	NotifyTimeout     time.Duration
}

type Token struct {
	AccessToken string
	ExpiresAt   time.Time
	SessionID   string
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type UpdateProfileInput struct {
	Name string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Register creates an unconfirmed account and emails its first code.
// Issuance and delivery problems are logged only; the user can resend.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Email:      NormalizeEmail(in.Email),
		Password:   hash,
		Name:       strings.TrimSpace(in.Name),
		DailyLimit: s.DefaultDailyLimit,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if s.Verification != nil {
		issued, iErr := s.Verification.IssueCode(ctx, u)
		switch {
		case iErr != nil:
			s.warn(iErr, u.ID, "issue verification code at registration failed")
		case !issued.Delivered:
			s.warn(nil, u.ID, "verification email not delivered at registration")
		}
	}
	return u, nil
}

// ResendConfirmation issues a new code for an unconfirmed account. A code
// that was stored but not delivered is reported as ErrNotificationFailed.
func (s *Service) ResendConfirmation(ctx context.Context, email string) error {
	u, err := s.Repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if u.IsEmailConfirmed {
		return verification.ErrAlreadyConfirmed
	}
	issued, err := s.Verification.IssueCode(ctx, u)
	if err != nil {
		return err
	}
	if !issued.Delivered {
		return verification.ErrNotificationFailed
	}
	return nil
}

func (s *Service) ConfirmEmail(ctx context.Context, email, code string) error {
	return s.Verification.RedeemCode(ctx, NormalizeEmail(email), code)
}

// Authenticate validates email/password and returns the user without issuing tokens.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !helpers.CheckPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueTokens generates an access token and records its session in Redis.
func (s *Service) IssueTokens(ctx context.Context, u *entity.User) (Token, error) {
	sid := uuid.NewString()
	access, exp, err := s.JWT.GenerateAccessToken(u.ID, u.Email, sid)
	if err != nil {
		s.warn(err, u.ID, "generate access token failed")
		return Token{}, err
	}

	if s.Redis != nil {
		key := helpers.SessionKey(u.ID, sid)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, map[string]any{
			"user_id":    u.ID,
			"email":      u.Email,
			"name":       u.Name,
			"sid":        sid,
			"created_at": nowRFC3339(),
		})
		pipe.Expire(ctx, key, s.sessionTTL())
		if _, rErr := pipe.Exec(ctx); rErr != nil {
			if s.Logger != nil {
				s.Logger.WithError(rErr).WithField("key", key).Error("redis session write failed")
			}
			return Token{}, rErr
		}
	}
	return Token{AccessToken: access, ExpiresAt: exp, SessionID: sid}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, Token, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, Token{}, err
	}
	tok, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, Token{}, err
	}
	return u, tok, nil
}

func (s *Service) Logout(ctx context.Context, userID, sid string) error {
	if s.Redis == nil {
		return nil
	}
	return helpers.RedisDel(ctx, s.Redis, helpers.SessionKey(userID, sid))
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = name
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword replaces the password after checking the current one and
// sends a best-effort notice.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !helpers.CheckPassword(u.Password, current) {
		return ErrWrongPassword
	}
	if current == next {
		return ErrSamePassword
	}
	hash, err := helpers.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	if s.Notifier != nil {
		nctx, cancel := context.WithTimeout(ctx, s.notifyTimeout())
		defer cancel()
		if !s.Notifier.SendPasswordChanged(nctx, mailer.Recipient{UserID: u.ID, Email: u.Email, Name: u.Name}, time.Now()) {
			s.warn(nil, u.ID, "password changed email not delivered")
		}
	}
	return nil
}

// UploadAvatar uploads an avatar to GCS from a reader and updates the profile
func (s *Service) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	if s.GCS == nil || s.GCSBucket == "" {
		return "", ErrStorageUnavailable
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", userID, uuid.NewString()+ext))
	url, err := helpers.UploadImageToGCS(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", err
	}
	u.AvatarURL = url
	if err := s.Repo.Update(ctx, u); err != nil {
		return "", err
	}
	return url, nil
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 24 * time.Hour
}

func (s *Service) notifyTimeout() time.Duration {
	if s.NotifyTimeout > 0 {
		return s.NotifyTimeout
	}
	return 10 * time.Second
}

func (s *Service) warn(err error, userID, msg string) {
	if s.Logger == nil {
		return
	}
	entry := s.Logger.WithField("user_id", userID)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn(msg)
}
