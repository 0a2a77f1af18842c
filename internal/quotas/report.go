package quotas

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fieldops-backend/pkg/errors"
	"github.com/angelmondragon/fieldops-backend/pkg/pagination"
)

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.QuotaType != nil && !params.QuotaType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown quota_type %q", *params.QuotaType)
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown status %q", *params.Status)
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listQuery{
		tenantID:  params.TenantID,
		quotaType: params.QuotaType,
		status:    params.Status,
		limit:     pagination.LimitWithBuffer(params.Limit),
		cursor:    cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotas")
	}

	page, more := pagination.Trim(rows, params.Limit)
	result := &ListResult{Items: make([]QuotaView, 0, len(page))}
	for _, row := range page {
		result.Items = append(result.Items, ToView(row))
	}
	if more && len(page) > 0 {
		last := page[len(page)-1]
		result.Cursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

// TenantSummary reports every quota type for a tenant next to the live
// ground-truth count. Types without a counter report nil actual usage.
func (s *service) TenantSummary(ctx context.Context, tenantID uuid.UUID) (*TenantSummary, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant_id is required")
	}
	found, err := s.repo.ExistingTenantIDs(ctx, []uuid.UUID{tenantID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tenant")
	}
	if len(found) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}

	rows, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tenant quotas")
	}
	byType := make(map[enums.QuotaType]models.TenantQuota, len(rows))
	for _, row := range rows {
		byType[row.QuotaType] = row
	}

	summary := &TenantSummary{TenantID: tenantID, GeneratedAt: s.now()}
	for _, qt := range enums.QuotaTypes() {
		item := SummaryItem{QuotaType: qt}
		entry, configured := byType[qt]
		if configured {
			item.Configured = true
			item.QuotaID = &entry.ID
			item.QuotaLimit = &entry.QuotaLimit
			item.CurrentUsage = &entry.CurrentUsage
			item.Status = &entry.Status
			pct := EntryPercentage(entry)
			item.UsagePercentage = &pct
		}
		if HasGroundTruth(qt) {
			actual, err := s.groundTruth(ctx, tenantID, qt)
			if err != nil {
				return nil, err
			}
			item.ActualUsage = &actual
			if configured {
				actualPct := UsagePercentage(entry.QuotaLimit, actual)
				drift := actual - entry.CurrentUsage
				item.ActualPercentage = &actualPct
				item.Drift = &drift
			}
		}
		summary.Items = append(summary.Items, item)
	}
	return summary, nil
}

type countResult struct {
	value int64
	err   error
}

// groundTruth asks the counter for the live value, bounded by the counter timeout.
func (s *service) groundTruth(ctx context.Context, tenantID uuid.UUID, quotaType enums.QuotaType) (int64, error) {
	countCtx, cancel := context.WithTimeout(ctx, s.counterTimeout)
	defer cancel()

	done := make(chan countResult, 1)
	go func() {
		value, err := countFor(countCtx, s.counter, tenantID, quotaType)
		done <- countResult{value: value, err: err}
	}()

	details := map[string]any{"quota_type": quotaType, "tenant_id": tenantID}
	select {
	case <-countCtx.Done():
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, countCtx.Err(), fmt.Sprintf("count %s timed out", quotaType)).
			WithDetails(details)
	case res := <-done:
		if res.err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.err, fmt.Sprintf("count %s", quotaType)).
				WithDetails(details)
		}
		if res.value < 0 {
			return 0, pkgerrors.Newf(pkgerrors.CodeDependency, "count %s returned negative value", quotaType).
				WithDetails(details)
		}
		return res.value, nil
	}
}
