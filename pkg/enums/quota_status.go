package enums

import "fmt"

// QuotaStatus is stored in tenant_quotas.status, a text column with a CHECK constraint.
type QuotaStatus string

const (
	QuotaStatusActive   QuotaStatus = "active"
	QuotaStatusWarning  QuotaStatus = "warning"
	QuotaStatusExceeded QuotaStatus = "exceeded"
)

var validQuotaStatuses = []QuotaStatus{
	QuotaStatusActive,
	QuotaStatusWarning,
	QuotaStatusExceeded,
}

// String implements fmt.Stringer.
func (s QuotaStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical quota status enum.
func (s QuotaStatus) IsValid() bool {
	for _, candidate := range validQuotaStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseQuotaStatus converts raw input into QuotaStatus.
func ParseQuotaStatus(value string) (QuotaStatus, error) {
	for _, candidate := range validQuotaStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quota status %q", value)
}
