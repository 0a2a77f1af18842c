package enums

import "fmt"

// OutboxAggregateType is stored in outbox_events.aggregate_type, a text column with a CHECK constraint.
type OutboxAggregateType string

const (
	AggregateTenantQuota OutboxAggregateType = "tenant_quota"
	AggregateTenant      OutboxAggregateType = "tenant"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateTenantQuota,
	AggregateTenant,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType is stored as free text in outbox_events.event_type.
type OutboxEventType string

const (
	EventQuotaStatusChanged OutboxEventType = "quota_status_changed"
	EventQuotaLimitChanged  OutboxEventType = "quota_limit_changed"
	EventQuotaUsageReset    OutboxEventType = "quota_usage_reset"
)

var validOutboxEventTypes = []OutboxEventType{
	EventQuotaStatusChanged,
	EventQuotaLimitChanged,
	EventQuotaUsageReset,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
