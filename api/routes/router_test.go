package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/fieldops-backend/internal/quotas"
	pkgAuth "github.com/angelmondragon/fieldops-backend/pkg/auth"
	"github.com/angelmondragon/fieldops-backend/pkg/config"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
	"github.com/angelmondragon/fieldops-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memoryRedis struct {
	stubPinger
	data map[string]string
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key], _ = value.(string)
	return nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

type stubQuotaService struct {
	quotas.Service
}

func (stubQuotaService) SystemStats(context.Context) (*quotas.SystemStats, error) {
	return &quotas.SystemStats{}, nil
}

func (stubQuotaService) List(context.Context, quotas.ListParams) (*quotas.ListResult, error) {
	return &quotas.ListResult{Items: []quotas.QuotaView{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:         config.AppConfig{Env: "test", Port: "0"},
		JWT:         config.JWTConfig{Secret: "secret", Issuer: "fieldops-test", ExpirationMinutes: 60},
		Idempotency: config.IdempotencyConfig{TTL: time.Hour},
		CORS:        config.CORSConfig{AllowedOrigins: []string{"https://admin.example.com"}},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	metrics.NewQuotaMetrics(reg).IncAdjustment("users", "increment")
	router := NewRouter(cfg, nil, stubPinger{}, &memoryRedis{data: map[string]string{}}, reg, stubQuotaService{})
	return router, cfg
}

func bearer(t *testing.T, cfg *config.Config, tenantID uuid.UUID, roles ...enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		TenantID: tenantID,
		Roles:    roles,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "quota_usage_adjustments_total") {
		t.Fatalf("expected quota metrics in exposition")
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/quotas", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAdminRoutesEnforcePermissions(t *testing.T) {
	router, cfg := newTestRouter(t)
	tenantID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/quotas/bulk-limit", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearer(t, cfg, tenantID, enums.RoleDispatcher))
	req.Header.Set("Idempotency-Key", "k1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/quotas/stats", nil)
	req.Header.Set("Authorization", bearer(t, cfg, tenantID, enums.RoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for stats as admin got %d", rec.Code)
	}
}

func TestStatsRouteResolvesBeforeQuotaID(t *testing.T) {
	router, cfg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/quotas/stats", nil)
	req.Header.Set("Authorization", bearer(t, cfg, uuid.Nil, enums.RoleSuperAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUsageRouteRequiresIdempotencyKey(t *testing.T) {
	router, cfg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/quotas/"+uuid.NewString()+"/usage", strings.NewReader(`{"amount":1,"mode":"increment"}`))
	req.Header.Set("Authorization", bearer(t, cfg, uuid.New(), enums.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/admin/v1/quotas", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}
