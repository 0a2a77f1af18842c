package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fieldops-backend/api/middleware"
	"github.com/angelmondragon/fieldops-backend/internal/quotas"
	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fieldops-backend/pkg/errors"
)

type stubQuotaService struct {
	quotas.Service

	entry      *models.TenantQuota
	getErr     error
	setInput   *quotas.SetLimitInput
	listParams *quotas.ListParams
	bulkIDs    []uuid.UUID
	adjusted   int64
	adjustMode enums.UsageMode
}

func (s *stubQuotaService) Get(_ context.Context, id uuid.UUID) (*models.TenantQuota, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.entry == nil || s.entry.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quota not found")
	}
	copied := *s.entry
	return &copied, nil
}

func (s *stubQuotaService) SetLimit(_ context.Context, input quotas.SetLimitInput) (*models.TenantQuota, error) {
	s.setInput = &input
	return &models.TenantQuota{
		ID:         uuid.New(),
		TenantID:   input.TenantID,
		QuotaType:  input.QuotaType,
		QuotaLimit: input.Limit,
		Status:     enums.QuotaStatusActive,
		ResetDate:  input.ResetDate,
	}, nil
}

func (s *stubQuotaService) AdjustUsage(_ context.Context, id uuid.UUID, amount int64, mode enums.UsageMode) (*models.TenantQuota, error) {
	s.adjusted = amount
	s.adjustMode = mode
	updated := *s.entry
	updated.CurrentUsage = amount
	return &updated, nil
}

func (s *stubQuotaService) List(_ context.Context, params quotas.ListParams) (*quotas.ListResult, error) {
	s.listParams = &params
	return &quotas.ListResult{Items: []quotas.QuotaView{}}, nil
}

func (s *stubQuotaService) BulkSetLimit(_ context.Context, ids []uuid.UUID, _ enums.QuotaType, _ int64) (int, error) {
	s.bulkIDs = ids
	return len(ids), nil
}

func (s *stubQuotaService) SystemStats(context.Context) (*quotas.SystemStats, error) {
	return &quotas.SystemStats{Total: 4, Exceeded: 1}, nil
}

func (s *stubQuotaService) RecommendAll(context.Context, uuid.UUID) ([]quotas.Recommendation, error) {
	return nil, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func actorRequest(method, target string, body []byte, tenantID uuid.UUID, roles ...enums.Role) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := middleware.WithRoles(req.Context(), roles)
	if tenantID != uuid.Nil {
		ctx = middleware.WithTenantID(ctx, tenantID.String())
	}
	return req.WithContext(ctx)
}

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func sampleEntry(tenantID uuid.UUID) *models.TenantQuota {
	return &models.TenantQuota{
		ID:           uuid.New(),
		TenantID:     tenantID,
		QuotaType:    enums.QuotaTypeUsers,
		QuotaLimit:   10,
		CurrentUsage: 9,
		Status:       enums.QuotaStatusWarning,
	}
}

func TestQuotaGetOwnTenant(t *testing.T) {
	tenantID := uuid.New()
	svc := &stubQuotaService{entry: sampleEntry(tenantID)}

	req := actorRequest(http.MethodGet, "/api/admin/v1/quotas/x", nil, tenantID, enums.RoleDispatcher)
	req = withURLParams(req, map[string]string{"quotaId": svc.entry.ID.String()})
	rec := httptest.NewRecorder()
	QuotaGet(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var view quotas.QuotaView
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &view))
	assert.Equal(t, svc.entry.ID, view.ID)
	assert.Equal(t, 90.0, view.UsagePercentage)
	require.NotNil(t, view.Recommendation)
	assert.Equal(t, enums.RecommendationIncrease, view.Recommendation.Type)
}

func TestQuotaGetOtherTenantForbidden(t *testing.T) {
	svc := &stubQuotaService{entry: sampleEntry(uuid.New())}

	req := actorRequest(http.MethodGet, "/api/admin/v1/quotas/x", nil, uuid.New(), enums.RoleAdmin)
	req = withURLParams(req, map[string]string{"quotaId": svc.entry.ID.String()})
	rec := httptest.NewRecorder()
	QuotaGet(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeForbidden), decodeEnvelope(t, rec).Error.Code)
}

func TestQuotaGetNotFound(t *testing.T) {
	svc := &stubQuotaService{}

	req := actorRequest(http.MethodGet, "/api/admin/v1/quotas/x", nil, uuid.Nil, enums.RoleSuperAdmin)
	req = withURLParams(req, map[string]string{"quotaId": uuid.NewString()})
	rec := httptest.NewRecorder()
	QuotaGet(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuotaGetInvalidID(t *testing.T) {
	req := actorRequest(http.MethodGet, "/api/admin/v1/quotas/x", nil, uuid.Nil, enums.RoleSuperAdmin)
	req = withURLParams(req, map[string]string{"quotaId": "not-a-uuid"})
	rec := httptest.NewRecorder()
	QuotaGet(&stubQuotaService{}, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuotaAdjustUsage(t *testing.T) {
	tenantID := uuid.New()
	svc := &stubQuotaService{entry: sampleEntry(tenantID)}

	body := []byte(`{"amount":3,"mode":"increment"}`)
	req := actorRequest(http.MethodPost, "/api/admin/v1/quotas/x/usage", body, tenantID, enums.RoleAdmin)
	req = withURLParams(req, map[string]string{"quotaId": svc.entry.ID.String()})
	rec := httptest.NewRecorder()
	QuotaAdjustUsage(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), svc.adjusted)
	assert.Equal(t, enums.UsageModeIncrement, svc.adjustMode)
}

func TestQuotaAdjustUsageRejectsBadMode(t *testing.T) {
	tenantID := uuid.New()
	svc := &stubQuotaService{entry: sampleEntry(tenantID)}

	body := []byte(`{"amount":3,"mode":"multiply"}`)
	req := actorRequest(http.MethodPost, "/api/admin/v1/quotas/x/usage", body, tenantID, enums.RoleAdmin)
	req = withURLParams(req, map[string]string{"quotaId": svc.entry.ID.String()})
	rec := httptest.NewRecorder()
	QuotaAdjustUsage(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.adjustMode)
}

func TestQuotaAdjustUsageManagerForbidden(t *testing.T) {
	tenantID := uuid.New()
	svc := &stubQuotaService{entry: sampleEntry(tenantID)}

	body := []byte(`{"amount":3,"mode":"set"}`)
	req := actorRequest(http.MethodPost, "/api/admin/v1/quotas/x/usage", body, tenantID, enums.RoleManager)
	req = withURLParams(req, map[string]string{"quotaId": svc.entry.ID.String()})
	rec := httptest.NewRecorder()
	QuotaAdjustUsage(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, svc.adjustMode)
}

func TestTenantQuotaSetLimit(t *testing.T) {
	tenantID := uuid.New()
	svc := &stubQuotaService{}

	body := []byte(`{"quota_limit":50,"is_unlimited":false,"reset_date":"2026-11-30","status":"warning","metadata":{"plan":"pro"}}`)
	req := actorRequest(http.MethodPut, "/api/admin/v1/tenants/x/quotas/jobs", body, tenantID, enums.RoleAdmin)
	req = withURLParams(req, map[string]string{"tenantId": tenantID.String(), "quotaType": "jobs"})
	rec := httptest.NewRecorder()
	TenantQuotaSetLimit(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.setInput)
	assert.Equal(t, tenantID, svc.setInput.TenantID)
	assert.Equal(t, enums.QuotaTypeJobs, svc.setInput.QuotaType)
	assert.Equal(t, int64(50), svc.setInput.Limit)
	require.NotNil(t, svc.setInput.StatusOverride)
	assert.Equal(t, enums.QuotaStatusWarning, *svc.setInput.StatusOverride)
	require.NotNil(t, svc.setInput.ResetDate)
	assert.True(t, svc.setInput.ResetDate.Equal(time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "pro", svc.setInput.Metadata["plan"])

	var view quotas.QuotaView
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &view))
	require.NotNil(t, view.ResetDate)
	assert.Equal(t, "2026-11-30", *view.ResetDate)
}

func TestTenantQuotaSetLimitValidation(t *testing.T) {
	tenantID := uuid.New()
	cases := map[string]struct {
		quotaType string
		body      string
	}{
		"unknown type":   {"seats", `{"quota_limit":5}`},
		"missing limit":  {"users", `{"is_unlimited":true}`},
		"bad date":       {"users", `{"quota_limit":5,"reset_date":"30/11/2026"}`},
		"bad status":     {"users", `{"quota_limit":5,"status":"paused"}`},
		"unknown field":  {"users", `{"quota_limit":5,"colour":"red"}`},
		"malformed json": {"users", `{"quota_limit":`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubQuotaService{}
			req := actorRequest(http.MethodPut, "/api/admin/v1/tenants/x/quotas/y", []byte(tc.body), tenantID, enums.RoleAdmin)
			req = withURLParams(req, map[string]string{"tenantId": tenantID.String(), "quotaType": tc.quotaType})
			rec := httptest.NewRecorder()
			TenantQuotaSetLimit(svc, nil).ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, svc.setInput)
		})
	}
}

func TestQuotaListConfinesTenantRoles(t *testing.T) {
	tenantID := uuid.New()
	svc := &stubQuotaService{}

	req := actorRequest(http.MethodGet, "/api/admin/v1/quotas?status=exceeded&limit=10", nil, tenantID, enums.RoleManager)
	rec := httptest.NewRecorder()
	QuotaList(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listParams)
	require.NotNil(t, svc.listParams.TenantID)
	assert.Equal(t, tenantID, *svc.listParams.TenantID)
	require.NotNil(t, svc.listParams.Status)
	assert.Equal(t, enums.QuotaStatusExceeded, *svc.listParams.Status)
	assert.Equal(t, 10, svc.listParams.Limit)

	other := actorRequest(http.MethodGet, "/api/admin/v1/quotas?tenant_id="+uuid.NewString(), nil, tenantID, enums.RoleManager)
	rec = httptest.NewRecorder()
	QuotaList(svc, nil).ServeHTTP(rec, other)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestQuotaListSuperAdminUnfiltered(t *testing.T) {
	svc := &stubQuotaService{}

	req := actorRequest(http.MethodGet, "/api/admin/v1/quotas", nil, uuid.Nil, enums.RoleSuperAdmin)
	rec := httptest.NewRecorder()
	QuotaList(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.listParams.TenantID)
}

func TestQuotaListRejectsBadFilters(t *testing.T) {
	for _, query := range []string{"quota_type=seats", "status=paused", "limit=0", "tenant_id=nope"} {
		req := actorRequest(http.MethodGet, "/api/admin/v1/quotas?"+query, nil, uuid.Nil, enums.RoleSuperAdmin)
		rec := httptest.NewRecorder()
		QuotaList(&stubQuotaService{}, nil).ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestQuotaBulkLimit(t *testing.T) {
	own := uuid.New()
	foreign := uuid.New()

	t.Run("admin limited to own tenant", func(t *testing.T) {
		svc := &stubQuotaService{}
		body := []byte(`{"tenant_ids":["` + own.String() + `","` + foreign.String() + `"],"quota_type":"users","new_limit":20}`)
		req := actorRequest(http.MethodPost, "/api/admin/v1/quotas/bulk-limit", body, own, enums.RoleAdmin)
		rec := httptest.NewRecorder()
		QuotaBulkLimit(svc, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Nil(t, svc.bulkIDs)
	})

	t.Run("super admin any tenant", func(t *testing.T) {
		svc := &stubQuotaService{}
		body := []byte(`{"tenant_ids":["` + own.String() + `","` + foreign.String() + `"],"quota_type":"users","new_limit":20}`)
		req := actorRequest(http.MethodPost, "/api/admin/v1/quotas/bulk-limit", body, uuid.Nil, enums.RoleSuperAdmin)
		rec := httptest.NewRecorder()
		QuotaBulkLimit(svc, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, svc.bulkIDs, 2)
		var out map[string]int
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &out))
		assert.Equal(t, 2, out["updated"])
	})

	t.Run("invalid tenant id", func(t *testing.T) {
		svc := &stubQuotaService{}
		body := []byte(`{"tenant_ids":["nope"],"quota_type":"users","new_limit":20}`)
		req := actorRequest(http.MethodPost, "/api/admin/v1/quotas/bulk-limit", body, uuid.Nil, enums.RoleSuperAdmin)
		rec := httptest.NewRecorder()
		QuotaBulkLimit(svc, nil).ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestQuotaStatsRequiresCrossTenantRole(t *testing.T) {
	req := actorRequest(http.MethodGet, "/api/admin/v1/quotas/stats", nil, uuid.New(), enums.RoleAdmin)
	rec := httptest.NewRecorder()
	QuotaStats(&stubQuotaService{}, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = actorRequest(http.MethodGet, "/api/admin/v1/quotas/stats", nil, uuid.Nil, enums.RoleSuperAdmin)
	rec = httptest.NewRecorder()
	QuotaStats(&stubQuotaService{}, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats quotas.SystemStats
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &stats))
	assert.Equal(t, int64(4), stats.Total)
}

func TestTenantQuotaRecommendationsEmptyList(t *testing.T) {
	tenantID := uuid.New()
	req := actorRequest(http.MethodGet, "/api/admin/v1/tenants/x/quotas/recommendations", nil, tenantID, enums.RoleDispatcher)
	req = withURLParams(req, map[string]string{"tenantId": tenantID.String()})
	rec := httptest.NewRecorder()
	TenantQuotaRecommendations(&stubQuotaService{}, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, string(decodeEnvelope(t, rec).Data))
}
