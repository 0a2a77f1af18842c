package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/angelmondragon/fieldops-backend/pkg/enums"
)

// UnlimitedQuota is the quota_limit sentinel for "no ceiling".
const UnlimitedQuota int64 = -1

// TenantQuota is one ledger entry per (tenant, quota type).
type TenantQuota struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	TenantID     uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_tenant_quotas_tenant_type,priority:1"`
	QuotaType    enums.QuotaType   `gorm:"column:quota_type;type:text;not null;uniqueIndex:ux_tenant_quotas_tenant_type,priority:2"`
	QuotaLimit   int64             `gorm:"column:quota_limit;not null"`
	CurrentUsage int64             `gorm:"column:current_usage;not null"`
	Status       enums.QuotaStatus `gorm:"column:status;type:text;not null"`
	ResetDate    *time.Time        `gorm:"column:reset_date;type:date"`
	Metadata     datatypes.JSONMap `gorm:"column:metadata;type:jsonb"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (TenantQuota) TableName() string { return "tenant_quotas" }

// IsUnlimited reports whether the entry carries the unlimited sentinel.
func (q TenantQuota) IsUnlimited() bool {
	return q.QuotaLimit == UnlimitedQuota
}

// ResetCursor is the (reset_date, id) position of the last entry a reset sweep has seen.
type ResetCursor struct {
	ResetDate time.Time
	ID        uuid.UUID
}

// ResetCursorOf positions a cursor on q. Entries without a reset date yield nil.
func ResetCursorOf(q TenantQuota) *ResetCursor {
	if q.ResetDate == nil {
		return nil
	}
	return &ResetCursor{ResetDate: *q.ResetDate, ID: q.ID}
}
