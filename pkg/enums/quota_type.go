package enums

import "fmt"

// QuotaType is stored in tenant_quotas.quota_type, a text column with a CHECK constraint.
type QuotaType string

const (
	QuotaTypeUsers    QuotaType = "users"
	QuotaTypeWorkers  QuotaType = "workers"
	QuotaTypeJobs     QuotaType = "jobs"
	QuotaTypeAssets   QuotaType = "assets"
	QuotaTypeForms    QuotaType = "forms"
	QuotaTypeStorage  QuotaType = "storage"
	QuotaTypeAPICalls QuotaType = "api_calls"
)

// validQuotaTypes is also the canonical presentation order.
var validQuotaTypes = []QuotaType{
	QuotaTypeUsers,
	QuotaTypeWorkers,
	QuotaTypeJobs,
	QuotaTypeAssets,
	QuotaTypeForms,
	QuotaTypeStorage,
	QuotaTypeAPICalls,
}

// String implements fmt.Stringer.
func (q QuotaType) String() string {
	return string(q)
}

// IsValid reports whether the value matches the canonical quota type enum.
func (q QuotaType) IsValid() bool {
	for _, candidate := range validQuotaTypes {
		if candidate == q {
			return true
		}
	}
	return false
}

// Order returns the position of the type in the canonical ordering, or -1.
func (q QuotaType) Order() int {
	for i, candidate := range validQuotaTypes {
		if candidate == q {
			return i
		}
	}
	return -1
}

// QuotaTypes returns every quota type in canonical order.
func QuotaTypes() []QuotaType {
	out := make([]QuotaType, len(validQuotaTypes))
	copy(out, validQuotaTypes)
	return out
}

// ParseQuotaType converts raw input into QuotaType.
func ParseQuotaType(value string) (QuotaType, error) {
	for _, candidate := range validQuotaTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quota type %q", value)
}
