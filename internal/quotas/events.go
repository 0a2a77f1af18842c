package quotas

import (
	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/outbox/payloads"
)

func outboxStatusChanged(before, after models.TenantQuota, trigger string) payloads.QuotaStatusChangedEvent {
	return payloads.QuotaStatusChangedEvent{
		QuotaID:        after.ID,
		TenantID:       after.TenantID,
		QuotaType:      after.QuotaType,
		PreviousStatus: before.Status,
		Status:         after.Status,
		QuotaLimit:     after.QuotaLimit,
		CurrentUsage:   after.CurrentUsage,
		Trigger:        trigger,
	}
}

func outboxLimitChanged(before, after models.TenantQuota) payloads.QuotaLimitChangedEvent {
	return payloads.QuotaLimitChangedEvent{
		QuotaID:       after.ID,
		TenantID:      after.TenantID,
		QuotaType:     after.QuotaType,
		PreviousLimit: before.QuotaLimit,
		QuotaLimit:    after.QuotaLimit,
	}
}

func outboxUsageReset(before models.TenantQuota) payloads.QuotaUsageResetEvent {
	return payloads.QuotaUsageResetEvent{
		QuotaID:       before.ID,
		TenantID:      before.TenantID,
		QuotaType:     before.QuotaType,
		PreviousUsage: before.CurrentUsage,
	}
}
