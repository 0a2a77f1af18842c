package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/fieldops-backend/pkg/enums"
)

// QuotaStatusChangedEvent is emitted whenever a ledger mutation moves an entry to a new status.
type QuotaStatusChangedEvent struct {
	QuotaID        uuid.UUID         `json:"quotaId"`
	TenantID       uuid.UUID         `json:"tenantId"`
	QuotaType      enums.QuotaType   `json:"quotaType"`
	PreviousStatus enums.QuotaStatus `json:"previousStatus"`
	Status         enums.QuotaStatus `json:"status"`
	QuotaLimit     int64             `json:"quotaLimit"`
	CurrentUsage   int64             `json:"currentUsage"`
	Trigger        string            `json:"trigger"`
}

// QuotaLimitChangedEvent records an administrative limit change.
type QuotaLimitChangedEvent struct {
	QuotaID       uuid.UUID       `json:"quotaId"`
	TenantID      uuid.UUID       `json:"tenantId"`
	QuotaType     enums.QuotaType `json:"quotaType"`
	PreviousLimit int64           `json:"previousLimit"`
	QuotaLimit    int64           `json:"quotaLimit"`
}

// QuotaUsageResetEvent records a usage reset.
type QuotaUsageResetEvent struct {
	QuotaID       uuid.UUID       `json:"quotaId"`
	TenantID      uuid.UUID       `json:"tenantId"`
	QuotaType     enums.QuotaType `json:"quotaType"`
	PreviousUsage int64           `json:"previousUsage"`
}
