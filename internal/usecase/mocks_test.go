//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"discount-code-engine/internal/domain"
	"discount-code-engine/internal/domain/model"
	"discount-code-engine/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memCodeRepo is a small in-memory implementation used by unit tests. Its
// transition methods mimic the store's compare-and-set semantics.
type memCodeRepo struct {
	mu   sync.Mutex
	byID map[string]*model.RedemptionCode

	// createRejects makes the next N Create calls report a uniqueness
	// collision, to exercise the retry loop.
	createRejects int
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{byID: make(map[string]*model.RedemptionCode)}
}

func (m *memCodeRepo) Create(ctx context.Context, tx repository.Tx, code *model.RedemptionCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createRejects > 0 {
		m.createRejects--
		return domain.ErrAlreadyExists
	}
	for _, c := range m.byID {
		if c.Code == code.Code {
			return domain.ErrAlreadyExists
		}
	}
	cp := *code
	m.byID[code.ID] = &cp
	return nil
}

func (m *memCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCodeRepo) FindLive(ctx context.Context, tx repository.Tx, venueID string, issuerID *string) ([]*model.RedemptionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.RedemptionCode
	for _, c := range m.byID {
		if c.Status != model.CodeStatusLive || c.VenueID != venueID {
			continue
		}
		if issuerID != nil && (c.IssuerID == nil || *c.IssuerID != *issuerID) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memCodeRepo) Confirm(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	return m.cas(id, model.CodeStatusConfirmed, &at), nil
}

func (m *memCodeRepo) Cancel(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	return m.cas(id, model.CodeStatusCancelled, &at), nil
}

func (m *memCodeRepo) Expire(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	return m.cas(id, model.CodeStatusExpired, nil), nil
}

func (m *memCodeRepo) ExpireAllBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.byID {
		if c.Status == model.CodeStatusLive && c.ExpiresAt.Before(cutoff) {
			c.Status = model.CodeStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memCodeRepo) AcquireContextLock(ctx context.Context, tx repository.Tx, key int64) error {
	return nil
}

func (m *memCodeRepo) cas(id string, to model.CodeStatus, at *time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.Status != model.CodeStatusLive {
		return false
	}
	c.Status = to
	if at != nil {
		c.ConfirmedAt = at
	}
	return true
}

// get returns the stored record without copy protection; test-only peeking.
func (m *memCodeRepo) get(id string) *model.RedemptionCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

type memVenueRepo struct {
	mu     sync.Mutex
	venues map[string]*model.Venue
}

func newMemVenueRepo() *memVenueRepo {
	return &memVenueRepo{venues: make(map[string]*model.Venue)}
}

func (m *memVenueRepo) add(v *model.Venue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.venues[v.ID] = v
}

func (m *memVenueRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.venues[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// mockTxManager runs the callback without a real transaction; the mem repo
// has no transactional state to protect.
type mockTxManager struct{}

func (mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, struct{ memTx bool }{true})
}

type mockLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (m *mockLimiter) Allow(ctx context.Context, key string) (bool, error) {
	m.keys = append(m.keys, key)
	return m.allow, m.err
}

func allowAll() *mockLimiter { return &mockLimiter{allow: true} }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func strPtr(s string) *string { return &s }
