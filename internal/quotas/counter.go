package quotas

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/fieldops-backend/pkg/enums"
)

// UsageCounter supplies ground-truth counts owned by the tenant resource subsystems.
type UsageCounter interface {
	CountActiveUsers(ctx context.Context, tenantID uuid.UUID) (int64, error)
	CountActiveWorkers(ctx context.Context, tenantID uuid.UUID) (int64, error)
	CountActiveJobs(ctx context.Context, tenantID uuid.UUID) (int64, error)
	CountActiveAssets(ctx context.Context, tenantID uuid.UUID) (int64, error)
	CountActiveForms(ctx context.Context, tenantID uuid.UUID) (int64, error)
	StorageUsageBytes(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// HasGroundTruth reports whether a counter exists for quotaType.
func HasGroundTruth(quotaType enums.QuotaType) bool {
	return quotaType.IsValid() && quotaType != enums.QuotaTypeAPICalls
}

func countFor(ctx context.Context, counter UsageCounter, tenantID uuid.UUID, quotaType enums.QuotaType) (int64, error) {
	switch quotaType {
	case enums.QuotaTypeUsers:
		return counter.CountActiveUsers(ctx, tenantID)
	case enums.QuotaTypeWorkers:
		return counter.CountActiveWorkers(ctx, tenantID)
	case enums.QuotaTypeJobs:
		return counter.CountActiveJobs(ctx, tenantID)
	case enums.QuotaTypeAssets:
		return counter.CountActiveAssets(ctx, tenantID)
	case enums.QuotaTypeForms:
		return counter.CountActiveForms(ctx, tenantID)
	case enums.QuotaTypeStorage:
		return counter.StorageUsageBytes(ctx, tenantID)
	default:
		return 0, fmt.Errorf("no ground-truth counter for %s", quotaType)
	}
}
