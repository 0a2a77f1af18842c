package quotas

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
	pkgpagination "github.com/angelmondragon/fieldops-backend/pkg/pagination"
)

// SetLimitInput configures one (tenant, quota type) entry.
type SetLimitInput struct {
	TenantID    uuid.UUID
	QuotaType   enums.QuotaType
	Limit       int64
	IsUnlimited bool
	// StatusOverride replaces the computed status when set.
	StatusOverride *enums.QuotaStatus
	// ResetDate replaces the stored reset date when set; ClearResetDate removes it.
	ResetDate      *time.Time
	ClearResetDate bool
	// Metadata replaces the stored metadata when non-nil.
	Metadata map[string]any
}

type ListParams struct {
	TenantID  *uuid.UUID
	QuotaType *enums.QuotaType
	Status    *enums.QuotaStatus
	pkgpagination.Params
}

type ListResult struct {
	Items  []QuotaView `json:"items"`
	Cursor string      `json:"cursor"`
}

// QuotaView is an entry plus its derived numbers.
type QuotaView struct {
	ID              uuid.UUID         `json:"id"`
	TenantID        uuid.UUID         `json:"tenant_id"`
	QuotaType       enums.QuotaType   `json:"quota_type"`
	QuotaLimit      int64             `json:"quota_limit"`
	IsUnlimited     bool              `json:"is_unlimited"`
	CurrentUsage    int64             `json:"current_usage"`
	Status          enums.QuotaStatus `json:"status"`
	UsagePercentage float64           `json:"usage_percentage"`
	ResetDate       *string           `json:"reset_date"`
	Metadata        map[string]any    `json:"metadata"`
	Recommendation  *Recommendation   `json:"recommendation,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ToView renders an entry with its percentage and recommendation.
func ToView(m models.TenantQuota) QuotaView {
	view := QuotaView{
		ID:              m.ID,
		TenantID:        m.TenantID,
		QuotaType:       m.QuotaType,
		QuotaLimit:      m.QuotaLimit,
		IsUnlimited:     m.IsUnlimited(),
		CurrentUsage:    m.CurrentUsage,
		Status:          m.Status,
		UsagePercentage: EntryPercentage(m),
		Metadata:        map[string]any(m.Metadata),
		Recommendation:  Recommend(m),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if view.Metadata == nil {
		view.Metadata = map[string]any{}
	}
	if m.ResetDate != nil {
		d := m.ResetDate.UTC().Format(DateLayout)
		view.ResetDate = &d
	}
	return view
}

// DateLayout is the wire format of reset dates.
const DateLayout = "2006-01-02"

// SystemStats are counts across every tenant.
type SystemStats struct {
	Total     int64 `json:"total"`
	Exceeded  int64 `json:"exceeded"`
	Warning   int64 `json:"warning"`
	Unlimited int64 `json:"unlimited"`
}

// SummaryItem pairs a stored entry with the live ground-truth count.
type SummaryItem struct {
	QuotaType        enums.QuotaType    `json:"quota_type"`
	Configured       bool               `json:"configured"`
	QuotaID          *uuid.UUID         `json:"quota_id"`
	QuotaLimit       *int64             `json:"quota_limit"`
	CurrentUsage     *int64             `json:"current_usage"`
	Status           *enums.QuotaStatus `json:"status"`
	UsagePercentage  *float64           `json:"usage_percentage"`
	ActualUsage      *int64             `json:"actual_usage"`
	ActualPercentage *float64           `json:"actual_percentage"`
	Drift            *int64             `json:"drift"`
}

type TenantSummary struct {
	TenantID    uuid.UUID     `json:"tenant_id"`
	Items       []SummaryItem `json:"items"`
	GeneratedAt time.Time     `json:"generated_at"`
}
