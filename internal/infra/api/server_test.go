//go:build !integration

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"discount-code-engine/internal/domain"
	"discount-code-engine/internal/domain/model"
	"discount-code-engine/internal/domain/ports/repository"
	"discount-code-engine/internal/infra/api"
	"discount-code-engine/internal/usecase"
)

//
// ---------------- in-memory infra mocks (repos/tx/limiter) ----------------
//

type memStore struct {
	mu     sync.Mutex
	codes  map[string]*model.RedemptionCode
	venues map[string]*model.Venue
}

func newMemStore() *memStore {
	return &memStore{
		codes:  map[string]*model.RedemptionCode{},
		venues: map[string]*model.Venue{},
	}
}

func (m *memStore) Create(ctx context.Context, tx repository.Tx, code *model.RedemptionCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.Code == code.Code {
			return domain.ErrAlreadyExists
		}
	}
	cp := *code
	m.codes[code.ID] = &cp
	return nil
}

func (m *memStore) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) FindLive(ctx context.Context, tx repository.Tx, venueID string, issuerID *string) ([]*model.RedemptionCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.RedemptionCode
	for _, c := range m.codes {
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

func (m *memStore) Confirm(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	return m.cas(id, model.CodeStatusConfirmed, &at), nil
}

func (m *memStore) Cancel(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	return m.cas(id, model.CodeStatusCancelled, &at), nil
}

func (m *memStore) Expire(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	return m.cas(id, model.CodeStatusExpired, nil), nil
}

func (m *memStore) ExpireAllBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.codes {
		if c.Status == model.CodeStatusLive && c.ExpiresAt.Before(cutoff) {
			c.Status = model.CodeStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memStore) AcquireContextLock(ctx context.Context, tx repository.Tx, key int64) error {
	return nil
}

func (m *memStore) cas(id string, to model.CodeStatus, at *time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id]
	if !ok || c.Status != model.CodeStatusLive {
		return false
	}
	c.Status = to
	if at != nil {
		c.ConfirmedAt = at
	}
	return true
}

func (m *memStore) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.venues[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

type passTxManager struct{}

func (passTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, struct{ memTx bool }{true})
}

type scriptedLimiter struct{ allow bool }

func (l *scriptedLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.allow, nil
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

//
// ---------------- harness ----------------
//

func newTestServer(t *testing.T, limiter *scriptedLimiter) (http.Handler, *memStore, *testClock) {
	t.Helper()
	store := newMemStore()
	v, err := model.NewVenue("venue-42", "Campus Cafe")
	if err != nil {
		t.Fatalf("failed to build venue: %v", err)
	}
	store.venues[v.ID] = v

	logger := zerolog.Nop()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	issueUC := usecase.NewIssueUseCase(store, store, passTxManager{}, limiter, clock, &logger)
	confirmUC := usecase.NewConfirmUseCase(store, limiter, clock, &logger)
	statusUC := usecase.NewStatusUseCase(store, clock, &logger)
	sweepUC := usecase.NewSweepUseCase(store, &logger)

	return api.NewServer(issueUC, confirmUC, statusUC, sweepUC, clock, &logger).Routes(), store, clock
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_CodeEndpoints(t *testing.T) {
	t.Run("issue, poll, confirm, re-confirm", func(t *testing.T) {
		h, _, _ := newTestServer(t, &scriptedLimiter{allow: true})

		rec := doJSON(t, h, http.MethodPost, "/api/v1/codes", map[string]interface{}{
			"venueId":  "venue-42",
			"issuerId": "student-7",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var issued struct {
			Code      string    `json:"code"`
			Slug      string    `json:"slug"`
			ExpiresAt time.Time `json:"expiresAt"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &issued); err != nil {
			t.Fatalf("failed to decode issue response: %v", err)
		}
		if issued.Code == "" || issued.Slug == "" || issued.ExpiresAt.IsZero() {
			t.Fatalf("incomplete issue response: %+v", issued)
		}

		rec = doJSON(t, h, http.MethodGet, "/api/v1/codes/"+issued.Code, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 from status, got %d", rec.Code)
		}
		var st struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
			t.Fatalf("failed to decode status response: %v", err)
		}
		if st.Status != "LIVE" {
			t.Errorf("expected LIVE, got %s", st.Status)
		}

		rec = doJSON(t, h, http.MethodPost, "/api/v1/codes/confirm", map[string]string{
			"code":    issued.Code,
			"venueId": "venue-42",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 from confirm, got %d: %s", rec.Code, rec.Body.String())
		}

		rec = doJSON(t, h, http.MethodPost, "/api/v1/codes/confirm", map[string]string{
			"code":    issued.Code,
			"venueId": "venue-42",
		})
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409 on re-confirmation, got %d", rec.Code)
		}
		var rej struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &rej); err != nil {
			t.Fatalf("failed to decode rejection: %v", err)
		}
		if rej.Reason != "ALREADY_USED" {
			t.Errorf("expected ALREADY_USED, got %s", rej.Reason)
		}
	})

	t.Run("maps rejections to status codes and reasons", func(t *testing.T) {
		h, _, _ := newTestServer(t, &scriptedLimiter{allow: true})

		rec := doJSON(t, h, http.MethodGet, "/api/v1/codes/ZZZZZZ", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for unknown code, got %d", rec.Code)
		}

		rec = doJSON(t, h, http.MethodPost, "/api/v1/codes", map[string]string{"venueId": "nowhere"})
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 for unknown venue, got %d", rec.Code)
		}

		rec = doJSON(t, h, http.MethodPost, "/api/v1/codes", map[string]string{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for missing venue id, got %d", rec.Code)
		}
	})

	t.Run("wrong venue confirmation is forbidden and leaves the code live", func(t *testing.T) {
		h, _, _ := newTestServer(t, &scriptedLimiter{allow: true})

		rec := doJSON(t, h, http.MethodPost, "/api/v1/codes", map[string]interface{}{
			"venueId":  "venue-42",
			"issuerId": "student-7",
		})
		var issued struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &issued); err != nil {
			t.Fatalf("failed to decode issue response: %v", err)
		}

		rec = doJSON(t, h, http.MethodPost, "/api/v1/codes/confirm", map[string]string{
			"code":    issued.Code,
			"venueId": "venue-99",
		})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for wrong venue, got %d", rec.Code)
		}

		rec = doJSON(t, h, http.MethodGet, "/api/v1/codes/"+issued.Code, nil)
		var st struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
			t.Fatalf("failed to decode status response: %v", err)
		}
		if st.Status != "LIVE" {
			t.Errorf("expected the code to stay LIVE, got %s", st.Status)
		}
	})

	t.Run("limiter denial returns 429", func(t *testing.T) {
		h, _, _ := newTestServer(t, &scriptedLimiter{allow: false})

		rec := doJSON(t, h, http.MethodPost, "/api/v1/codes", map[string]string{"venueId": "venue-42"})
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429, got %d", rec.Code)
		}
	})

	t.Run("sweep transitions overdue codes and reports the count", func(t *testing.T) {
		h, store, clock := newTestServer(t, &scriptedLimiter{allow: true})

		rec := doJSON(t, h, http.MethodPost, "/api/v1/codes", map[string]string{"venueId": "venue-42"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		var issued struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &issued); err != nil {
			t.Fatalf("failed to decode issue response: %v", err)
		}

		clock.now = clock.now.Add(10 * time.Minute)
		rec = doJSON(t, h, http.MethodPost, "/api/v1/sweep", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 from sweep, got %d: %s", rec.Code, rec.Body.String())
		}
		var swept struct {
			TransitionedCount int `json:"transitionedCount"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &swept); err != nil {
			t.Fatalf("failed to decode sweep response: %v", err)
		}
		if swept.TransitionedCount != 1 {
			t.Errorf("expected one transitioned code, got %d", swept.TransitionedCount)
		}

		rc, err := store.FindByCode(context.Background(), nil, issued.Code)
		if err != nil {
			t.Fatalf("failed to read swept code: %v", err)
		}
		if rc.Status != model.CodeStatusExpired {
			t.Errorf("expected EXPIRED after sweep, got %s", rc.Status)
		}
	})

	t.Run("health endpoint responds", func(t *testing.T) {
		h, _, _ := newTestServer(t, &scriptedLimiter{allow: true})
		rec := doJSON(t, h, http.MethodGet, "/health", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 from /health, got %d", rec.Code)
		}
	})
}
