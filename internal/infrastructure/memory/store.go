// Package memory is an in-process implementation of the repository
// interfaces. It backs the application tests and the STORE_DRIVER=memory
// development mode; per-user locking matches the row-lock semantics of the
// Postgres store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	"github.com/oksasatya/fluxo-backend/internal/domain/repository"
)

type Store struct {
	mu sync.RWMutex

	users   map[string]*entity.User
	byEmail map[string]string

	codes        map[string]*entity.VerificationCode
	reservations map[string]*entity.QuotaReservation

	prompts []promptRow
	styles  map[int]entity.PromptStyle

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

type promptRow struct {
	seq int
	p   entity.PromptRequest
}

func New() *Store {
	return &Store{
		users:        make(map[string]*entity.User),
		byEmail:      make(map[string]string),
		codes:        make(map[string]*entity.VerificationCode),
		reservations: make(map[string]*entity.QuotaReservation),
		styles:       make(map[int]entity.PromptStyle),
		locks:        make(map[string]*sync.Mutex),
	}
}

func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Verifications() repository.VerificationRepository { return verificationRepo{s} }
func (s *Store) Quotas() repository.QuotaRepository               { return quotaRepo{s} }
func (s *Store) Prompts() repository.PromptRepository             { return promptRepo{s} }

// SeedStyles replaces the style catalogue.
func (s *Store) SeedStyles(styles ...entity.PromptStyle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range styles {
		s.styles[st.ID] = st
	}
}

func (s *Store) userLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

type snapshot struct {
	user         entity.User
	codes        []entity.VerificationCode
	reservations []entity.QuotaReservation
}

func (s *Store) takeSnapshot(userID string) (snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return snapshot{}, false
	}
	snap := snapshot{user: *u}
	for _, c := range s.codes {
		if c.UserID == userID {
			snap.codes = append(snap.codes, *c)
		}
	}
	for _, r := range s.reservations {
		if r.UserID == userID {
			snap.reservations = append(snap.reservations, *r)
		}
	}
	return snap, true
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := snap.user.ID
	u := snap.user
	s.users[userID] = &u
	for id, c := range s.codes {
		if c.UserID == userID {
			delete(s.codes, id)
		}
	}
	for i := range snap.codes {
		c := snap.codes[i]
		s.codes[c.ID] = &c
	}
	for id, r := range s.reservations {
		if r.UserID == userID {
			delete(s.reservations, id)
		}
	}
	for i := range snap.reservations {
		r := snap.reservations[i]
		s.reservations[r.ID] = &r
	}
}

// WithUserLock serializes work per user and restores the user's rows when fn fails.
func (s *Store) WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context, u *entity.User, uow repository.UnitOfWork) error) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snap, ok := s.takeSnapshot(userID)
	if !ok {
		return repository.ErrNotFound
	}
	locked := snap.user
	if err := fn(ctx, &locked, s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, exists := r.s.byEmail[key]; exists {
		return repository.ErrDuplicateEmail
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	r.s.users[u.ID] = &cp
	r.s.byEmail[key] = u.ID
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.byEmail[strings.ToLower(email)]
	r.s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r userRepo) mutate(id string, fn func(u *entity.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (r userRepo) Update(_ context.Context, u *entity.User) error {
	return r.mutate(u.ID, func(cur *entity.User) {
		cur.Name = u.Name
		cur.AvatarURL = u.AvatarURL
	})
}

func (r userRepo) UpdatePassword(_ context.Context, id, hash string) error {
	return r.mutate(id, func(u *entity.User) { u.Password = hash })
}

func (r userRepo) SetEmailConfirmed(_ context.Context, id string) error {
	return r.mutate(id, func(u *entity.User) { u.IsEmailConfirmed = true })
}

func (r userRepo) SaveQuota(_ context.Context, id string, requestsToday int, lastRequestDate *time.Time) error {
	return r.mutate(id, func(u *entity.User) {
		u.RequestsToday = requestsToday
		if lastRequestDate == nil {
			u.LastRequestDate = nil
			return
		}
		d := *lastRequestDate
		u.LastRequestDate = &d
	})
}

type verificationRepo struct{ s *Store }

func (r verificationRepo) Create(_ context.Context, c *entity.VerificationCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	cp := *c
	r.s.codes[c.ID] = &cp
	return nil
}

func (r verificationRepo) CountCreatedSince(_ context.Context, userID string, since time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, c := range r.s.codes {
		if c.UserID == userID && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r verificationRepo) SupersedeUnused(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, c := range r.s.codes {
		if c.UserID == userID && !c.IsUsed {
			c.IsUsed = true
			n++
		}
	}
	return n, nil
}

func (r verificationRepo) FindActive(_ context.Context, userID, code string, now time.Time) (*entity.VerificationCode, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var best *entity.VerificationCode
	for _, c := range r.s.codes {
		if c.UserID != userID || c.Code != code || !c.Active(now) {
			continue
		}
		if best == nil || c.CreatedAt.After(best.CreatedAt) {
			best = c
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (r verificationRepo) MarkUsed(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.codes[id]
	if !ok || c.IsUsed {
		return repository.ErrNotFound
	}
	c.IsUsed = true
	return nil
}

type quotaRepo struct{ s *Store }

func (r quotaRepo) CreateReservation(_ context.Context, res *entity.QuotaReservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	cp := *res
	r.s.reservations[res.ID] = &cp
	return nil
}

func (r quotaRepo) CountActiveReservations(_ context.Context, userID string, now time.Time) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, res := range r.s.reservations {
		if res.UserID == userID && res.ExpiresAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (r quotaRepo) DeleteExpiredReservations(_ context.Context, userID string, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, res := range r.s.reservations {
		if res.UserID == userID && !res.ExpiresAt.After(now) {
			delete(r.s.reservations, id)
			n++
		}
	}
	return n, nil
}

func (r quotaRepo) DeleteReservation(_ context.Context, userID, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.reservations[id]
	if !ok || res.UserID != userID {
		return false, nil
	}
	delete(r.s.reservations, id)
	return true, nil
}

type promptRepo struct{ s *Store }

func (r promptRepo) Create(_ context.Context, p *entity.PromptRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	r.s.prompts = append(r.s.prompts, promptRow{seq: len(r.s.prompts), p: *p})
	return nil
}

func (r promptRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]entity.PromptRequest, error) {
	r.s.mu.RLock()
	rows := make([]promptRow, 0)
	for _, row := range r.s.prompts {
		if row.p.UserID == userID {
			rows = append(rows, row)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].p.CreatedAt.Equal(rows[j].p.CreatedAt) {
			return rows[i].p.CreatedAt.After(rows[j].p.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})

	out := make([]entity.PromptRequest, 0, limit)
	for i := offset; i < len(rows) && len(out) < limit; i++ {
		out = append(out, rows[i].p)
	}
	return out, nil
}

func (r promptRepo) ListStyles(_ context.Context) ([]entity.PromptStyle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entity.PromptStyle, 0, len(r.s.styles))
	for _, st := range r.s.styles {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r promptRepo) GetStyle(_ context.Context, id int) (*entity.PromptStyle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st, ok := r.s.styles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

var (
	_ repository.TxManager  = (*Store)(nil)
	_ repository.UnitOfWork = (*Store)(nil)
)
