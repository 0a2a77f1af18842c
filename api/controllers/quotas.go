package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/fieldops-backend/api/middleware"
	"github.com/angelmondragon/fieldops-backend/api/responses"
	"github.com/angelmondragon/fieldops-backend/api/validators"
	"github.com/angelmondragon/fieldops-backend/internal/quotas"
	"github.com/angelmondragon/fieldops-backend/pkg/authz"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fieldops-backend/pkg/errors"
	"github.com/angelmondragon/fieldops-backend/pkg/logger"
	"github.com/angelmondragon/fieldops-backend/pkg/pagination"
)

// QuotaList pages through entries. Tenant-confined roles only ever see their own tenant.
func QuotaList(svc quotas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quota service unavailable"))
			return
		}

		tenantID, err := validators.ParseQueryUUID(r, "tenant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quotaType, err := validators.ParseQueryEnum(r, "quota_type", enums.ParseQuotaType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryEnum(r, "status", enums.ParseQuotaStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roles := middleware.RolesFromContext(r.Context())
		if !authz.IsCrossTenant(roles, authz.QuotasView) {
			own := actorTenant(r)
			if own == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "tenant context missing"))
				return
			}
			if tenantID != nil && *tenantID != own {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not permitted for tenant"))
				return
			}
			tenantID = &own
		}

		result, err := svc.List(r.Context(), quotas.ListParams{
			TenantID:  tenantID,
			QuotaType: quotaType,
			Status:    status,
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func QuotaStats(svc quotas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quota service unavailable"))
			return
		}
		if !authz.IsCrossTenant(middleware.RolesFromContext(r.Context()), authz.QuotasStats) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "permission required"))
			return
		}
		stats, err := svc.SystemStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

type bulkLimitRequest struct {
	TenantIDs []string `json:"tenant_ids" validate:"required,min=1"`
	QuotaType string   `json:"quota_type" validate:"required"`
	NewLimit  *int64   `json:"new_limit" validate:"required"`
}

// QuotaBulkLimit applies one limit to many tenants in a single transaction.
func QuotaBulkLimit(svc quotas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quota service unavailable"))
			return
		}

		var req bulkLimitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quotaType, err := enums.ParseQuotaType(req.QuotaType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quota_type"))
			return
		}
		ids := make([]uuid.UUID, 0, len(req.TenantIDs))
		for _, raw := range req.TenantIDs {
			id, err := validators.ParseUUID(raw, "tenant_ids")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ids = append(ids, id)
		}

		roles := middleware.RolesFromContext(r.Context())
		if !authz.IsCrossTenant(roles, authz.QuotasManage) {
			own := actorTenant(r)
			for _, id := range ids {
				if !authz.Can(roles, own, &id, authz.QuotasManage) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not permitted for tenant").
						WithDetails(map[string]any{"tenant_id": id}))
					return
				}
			}
		}

		updated, err := svc.BulkSetLimit(r.Context(), ids, quotaType, *req.NewLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"updated": updated})
	}
}

func QuotaGet(svc quotas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quota service unavailable"))
			return
		}
		writeAuthorizedEntry(w, r, svc, logg, authz.QuotasView)
	}
}

type adjustUsageRequest struct {
	Amount *int64 `json:"amount" validate:"required"`
	Mode   string `json:"mode" validate:"required"`
}

// QuotaAdjustUsage applies a set, increment or decrement to an entry.
func QuotaAdjustUsage(svc quotas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quota service unavailable"))
			return
		}

		quotaID, err := validators.ParseUUID(chi.URLParam(r, "quotaId"), "quotaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req adjustUsageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mode, err := enums.ParseUsageMode(req.Mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mode"))
			return
		}

		entry, err := svc.Get(r.Context(), quotaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorize(r, entry.TenantID, authz.QuotasManage); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.AdjustUsage(r.Context(), quotaID, *req.Amount, mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quotas.ToView(*updated))
	}
}

func QuotaReset(svc quotas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quota service unavailable"))
			return
		}

		quotaID, err := validators.ParseUUID(chi.URLParam(r, "quotaId"), "quotaId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.Get(r.Context(), quotaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorize(r, entry.TenantID, authz.QuotasManage); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.ResetUsage(r.Context(), quotaID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quotas.ToView(*updated))
	}
}

type setLimitRequest struct {
	QuotaLimit     *int64         `json:"quota_limit" validate:"required"`
	IsUnlimited    bool           `json:"is_unlimited"`
	Status         *string        `json:"status,omitempty"`
	ResetDate      *string        `json:"reset_date,omitempty"`
	ClearResetDate bool           `json:"clear_reset_date,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func (req setLimitRequest) toInput(tenantID uuid.UUID, quotaType enums.QuotaType) (quotas.SetLimitInput, error) {
	input := quotas.SetLimitInput{
		TenantID:       tenantID,
		QuotaType:      quotaType,
		Limit:          *req.QuotaLimit,
		IsUnlimited:    req.IsUnlimited,
		ClearResetDate: req.ClearResetDate,
		Metadata:       req.Metadata,
	}
	if req.Status != nil {
		status, err := enums.ParseQuotaStatus(strings.TrimSpace(*req.Status))
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"})
		}
		input.StatusOverride = &status
	}
	if req.ResetDate != nil {
		date, err := time.Parse(quotas.DateLayout, strings.TrimSpace(*req.ResetDate))
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reset_date").WithDetails(map[string]any{"field": "reset_date", "format": quotas.DateLayout})
		}
		input.ResetDate = &date
	}
	return input, nil
}

// TenantQuotaSetLimit creates or reconfigures the entry for a tenant and quota type.
func TenantQuotaSetLimit(svc quotas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quota service unavailable"))
			return
		}

		tenantID, quotaType, err := tenantQuotaParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorize(r, tenantID, authz.QuotasManage); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setLimitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := req.toInput(tenantID, quotaType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.SetLimit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quotas.ToView(*entry))
	}
}

// TenantQuotaSync overwrites stored usage with the live resource count.
func TenantQuotaSync(svc quotas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quota service unavailable"))
			return
		}

		tenantID, quotaType, err := tenantQuotaParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authorize(r, tenantID, authz.QuotasSync); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.SyncUsage(r.Context(), tenantID, quotaType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quotas.ToView(*entry))
	}
}

func TenantQuotaList(svc quotas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quota service unavailable"))
			return
		}
		tenantID, ok := authorizedTenant(w, r, logg, authz.QuotasView)
		if !ok {
			return
		}

		rows, err := svc.ListForTenant(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := make([]quotas.QuotaView, 0, len(rows))
		for _, row := range rows {
			items = append(items, quotas.ToView(row))
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// TenantQuotaSummary reports every quota type for a tenant next to its live count.
func TenantQuotaSummary(svc quotas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quota service unavailable"))
			return
		}
		tenantID, ok := authorizedTenant(w, r, logg, authz.QuotasView)
		if !ok {
			return
		}

		summary, err := svc.TenantSummary(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func TenantQuotaRecommendations(svc quotas.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quota service unavailable"))
			return
		}
		tenantID, ok := authorizedTenant(w, r, logg, authz.QuotasView)
		if !ok {
			return
		}

		recs, err := svc.RecommendAll(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if recs == nil {
			recs = []quotas.Recommendation{}
		}
		responses.WriteSuccess(w, map[string]any{"items": recs})
	}
}

// writeAuthorizedEntry responds with the entry named by the quotaId path
// parameter once action is allowed on its tenant.
func writeAuthorizedEntry(w http.ResponseWriter, r *http.Request, svc quotas.Service, logg *logger.Logger, action authz.Action) {
	quotaID, err := validators.ParseUUID(chi.URLParam(r, "quotaId"), "quotaId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	entry, err := svc.Get(r.Context(), quotaID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	if err := authorize(r, entry.TenantID, action); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, quotas.ToView(*entry))
}

func authorizedTenant(w http.ResponseWriter, r *http.Request, logg *logger.Logger, action authz.Action) (uuid.UUID, bool) {
	tenantID, err := validators.ParseUUID(chi.URLParam(r, "tenantId"), "tenantId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	if err := authorize(r, tenantID, action); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	return tenantID, true
}

func tenantQuotaParams(r *http.Request) (uuid.UUID, enums.QuotaType, error) {
	tenantID, err := validators.ParseUUID(chi.URLParam(r, "tenantId"), "tenantId")
	if err != nil {
		return uuid.Nil, "", err
	}
	quotaType, err := enums.ParseQuotaType(chi.URLParam(r, "quotaType"))
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quota type").WithDetails(map[string]any{"field": "quotaType"})
	}
	return tenantID, quotaType, nil
}

func authorize(r *http.Request, tenantID uuid.UUID, action authz.Action) error {
	roles := middleware.RolesFromContext(r.Context())
	if !authz.Can(roles, actorTenant(r), &tenantID, action) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not permitted for tenant").
			WithDetails(map[string]any{"permission": action})
	}
	return nil
}

func actorTenant(r *http.Request) uuid.UUID {
	id, err := uuid.Parse(middleware.TenantIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil
	}
	return id
}
