package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/subhub/telecom-subscriptions/internal/plans"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	pkgAuth "github.com/subhub/telecom-subscriptions/pkg/auth"
	"github.com/subhub/telecom-subscriptions/pkg/auth/session"
	"github.com/subhub/telecom-subscriptions/pkg/config"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	counts map[string]int64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) IdempotencyKey(scope, id string) string { return "idem:" + scope + ":" + id }

func (f *fakeRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func (f *fakeRedis) Ping(context.Context) error { return nil }

type stubPlans struct{ plans.Service }

func (stubPlans) List(context.Context, plans.ListFilter) ([]plans.PlanDTO, error) {
	return []plans.PlanDTO{{Slug: "basic-mobile-plan"}}, nil
}

func (stubPlans) Create(_ context.Context, input plans.CreatePlanInput) (*plans.PlanDTO, error) {
	return &plans.PlanDTO{ID: uuid.New(), Name: input.Name}, nil
}

type stubSubscriptions struct {
	subscriptions.Service
	subscribeCalls int
}

func (s *stubSubscriptions) Subscribe(_ context.Context, input subscriptions.SubscribeInput) (*subscriptions.CommandResult, error) {
	s.subscribeCalls++
	return &subscriptions.CommandResult{UserPlan: &subscriptions.UserPlanDTO{ID: uuid.New(), PlanID: input.PlanID}}, nil
}

func (s *stubSubscriptions) ListUserPlans(context.Context, uuid.UUID) ([]subscriptions.UserPlanDTO, error) {
	return []subscriptions.UserPlanDTO{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", CORSAllowedOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "subhub", ExpirationMinutes: 60},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:        time.Minute,
			LoginIPLimit:       2,
			LoginIdentityLimit: 2,
		},
	}
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		Username: "john.doe",
		Role:     role,
		JTI:      session.NewAccessID(),
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func newTestRouter(redis RedisBackend, subs *stubSubscriptions) (*config.Config, http.Handler) {
	cfg := testConfig()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	return cfg, NewRouter(cfg, nil, stubPinger{}, redis, stubSessions{}, Services{
		Plans:         stubPlans{},
		Subscriptions: subs,
	}, metrics)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	_, router := newTestRouter(newFakeRedis(), &stubSubscriptions{})

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestReadyReportsDependencyFailure(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(cfg, nil, stubPinger{err: fmt.Errorf("db down")}, nil, stubSessions{}, Services{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPublicCatalogNeedsNoToken(t *testing.T) {
	_, router := newTestRouter(newFakeRedis(), &stubSubscriptions{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "basic-mobile-plan")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments/methods", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, router := newTestRouter(newFakeRedis(), &stubSubscriptions{})

	for _, path := range []string{
		"/api/v1/subscriptions",
		"/api/v1/payments/history",
		"/api/v1/users/dashboard",
		"/api/v1/auth/profile",
		"/api/v1/plans/recommendations",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAuthenticatedListReachesService(t *testing.T) {
	cfg, router := newTestRouter(newFakeRedis(), &stubSubscriptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	subs := &stubSubscriptions{}
	cfg, router := newTestRouter(newFakeRedis(), subs)
	token := bearer(t, cfg, enums.UserRoleCustomer)
	body := `{"plan_id":"` + uuid.NewString() + `","payment_method":"upi"}`

	missing := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", strings.NewReader(body))
	missing.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, missing)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", strings.NewReader(body))
		req.Header.Set("Authorization", token)
		req.Header.Set("Idempotency-Key", "subscribe-1")
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	require.Equal(t, 1, subs.subscribeCalls)
	require.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	cfg, router := newTestRouter(newFakeRedis(), &stubSubscriptions{})
	body := `{"name":"Family Bundle","category":"bundle","price":"999"}`

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/plans", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleCustomer))
	req.Header.Set("Idempotency-Key", "plan-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/v1/plans", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleAdmin))
	req.Header.Set("Idempotency-Key", "plan-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	_, router := newTestRouter(newFakeRedis(), &stubSubscriptions{})

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"john.doe","password":"wrong"}`))
		req.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}

func TestCORSPreflight(t *testing.T) {
	_, router := newTestRouter(nil, &stubSubscriptions{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/plans", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
