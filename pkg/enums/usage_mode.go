package enums

import "fmt"

// UsageMode selects how an usage adjustment is applied to a quota entry.
type UsageMode string

const (
	UsageModeSet       UsageMode = "set"
	UsageModeIncrement UsageMode = "increment"
	UsageModeDecrement UsageMode = "decrement"
)

var validUsageModes = []UsageMode{
	UsageModeSet,
	UsageModeIncrement,
	UsageModeDecrement,
}

// IsValid reports whether the value is a known UsageMode.
func (m UsageMode) IsValid() bool {
	for _, candidate := range validUsageModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseUsageMode converts raw input into UsageMode.
func ParseUsageMode(value string) (UsageMode, error) {
	for _, candidate := range validUsageModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid usage mode %q", value)
}
