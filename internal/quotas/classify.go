package quotas

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
)

// WarningThreshold is the usage percentage at which an entry turns to warning.
const WarningThreshold = 80

var (
	hundred          = decimal.NewFromInt(100)
	warningThreshold = decimal.NewFromInt(WarningThreshold)
)

// Classify derives the status of a (limit, usage) pair.
func Classify(limit, usage int64) enums.QuotaStatus {
	switch {
	case limit == models.UnlimitedQuota:
		return enums.QuotaStatusActive
	case limit <= 0:
		if usage > 0 {
			return enums.QuotaStatusExceeded
		}
		return enums.QuotaStatusActive
	case usage >= limit:
		return enums.QuotaStatusExceeded
	case percentage(limit, usage).GreaterThanOrEqual(warningThreshold):
		return enums.QuotaStatusWarning
	default:
		return enums.QuotaStatusActive
	}
}

// ClassifyEntry classifies a stored entry from its current numbers.
func ClassifyEntry(entry models.TenantQuota) enums.QuotaStatus {
	return Classify(entry.QuotaLimit, entry.CurrentUsage)
}

// UsagePercentage is usage/limit*100 rounded half away from zero to two
// places. Non-positive limits, including unlimited, report 0.
func UsagePercentage(limit, usage int64) float64 {
	return percentage(limit, usage).InexactFloat64()
}

// EntryPercentage is UsagePercentage for a stored entry.
func EntryPercentage(entry models.TenantQuota) float64 {
	return UsagePercentage(entry.QuotaLimit, entry.CurrentUsage)
}

func percentage(limit, usage int64) decimal.Decimal {
	if limit <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(usage).
		Mul(hundred).
		DivRound(decimal.NewFromInt(limit), 8).
		Round(2)
}
