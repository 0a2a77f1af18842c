package quotas

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
)

// Recommendation policy constants.
const (
	decreaseThreshold = 25
	decreaseMinLimit  = 10
	decreaseFloor     = 10
)

var (
	exceededUsageFactor  = decimal.RequireFromString("1.5")
	exceededLimitFactor  = decimal.NewFromInt(2)
	warningLimitFactor   = decimal.RequireFromString("1.5")
	decreaseUsageFactor  = decimal.NewFromInt(2)
	decreaseThresholdPct = decimal.NewFromInt(decreaseThreshold)
	maxSuggestedLimit    = decimal.NewFromInt(math.MaxInt64)
)

// Recommendation is an advisory limit change for one entry.
type Recommendation struct {
	QuotaID         uuid.UUID                    `json:"quota_id"`
	TenantID        uuid.UUID                    `json:"tenant_id"`
	QuotaType       enums.QuotaType              `json:"quota_type"`
	Type            enums.RecommendationType     `json:"type"`
	Severity        enums.RecommendationSeverity `json:"severity"`
	Priority        enums.RecommendationPriority `json:"priority"`
	CurrentLimit    int64                        `json:"current_limit"`
	CurrentUsage    int64                        `json:"current_usage"`
	UsagePercentage float64                      `json:"usage_percentage"`
	SuggestedLimit  int64                        `json:"suggested_limit"`
	Message         string                       `json:"message"`
}

// Recommend evaluates the ladder in order and returns the first match, or nil.
// Unlimited entries never produce a recommendation.
func Recommend(entry models.TenantQuota) *Recommendation {
	if entry.IsUnlimited() {
		return nil
	}

	limit, usage := entry.QuotaLimit, entry.CurrentUsage
	pct := percentage(limit, usage)

	rec := &Recommendation{
		QuotaID:         entry.ID,
		TenantID:        entry.TenantID,
		QuotaType:       entry.QuotaType,
		CurrentLimit:    limit,
		CurrentUsage:    usage,
		UsagePercentage: pct.InexactFloat64(),
	}

	switch {
	case Classify(limit, usage) == enums.QuotaStatusExceeded:
		rec.Type = enums.RecommendationIncrease
		rec.Severity = enums.SeverityError
		rec.Priority = enums.PriorityHigh
		rec.SuggestedLimit = max(scaleCeil(usage, exceededUsageFactor), scaleCeil(limit, exceededLimitFactor))
		rec.Message = fmt.Sprintf("%s quota exceeded (%d of %d); raise the limit to keep the tenant unblocked", entry.QuotaType, usage, limit)
	case pct.GreaterThanOrEqual(warningThreshold):
		rec.Type = enums.RecommendationIncrease
		rec.Severity = enums.SeverityWarning
		rec.Priority = enums.PriorityMedium
		rec.SuggestedLimit = scaleCeil(limit, warningLimitFactor)
		rec.Message = fmt.Sprintf("%s quota at %s%% of its limit", entry.QuotaType, pct.StringFixed(2))
	case pct.LessThan(decreaseThresholdPct) && limit > decreaseMinLimit:
		rec.Type = enums.RecommendationDecrease
		rec.Severity = enums.SeverityInfo
		rec.Priority = enums.PriorityLow
		rec.SuggestedLimit = max(scaleCeil(usage, decreaseUsageFactor), decreaseFloor)
		rec.Message = fmt.Sprintf("%s quota only %s%% used; the limit can be lowered", entry.QuotaType, pct.StringFixed(2))
	default:
		return nil
	}
	return rec
}

// RecommendEntries runs Recommend over entries in canonical quota type order.
func RecommendEntries(entries []models.TenantQuota) []Recommendation {
	sorted := sortByQuotaType(entries)
	out := make([]Recommendation, 0, len(sorted))
	for _, entry := range sorted {
		if rec := Recommend(entry); rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

// scaleCeil returns ceil(v * factor), saturated at math.MaxInt64.
func scaleCeil(v int64, factor decimal.Decimal) int64 {
	scaled := decimal.NewFromInt(v).Mul(factor).Ceil()
	if scaled.GreaterThan(maxSuggestedLimit) {
		return math.MaxInt64
	}
	return scaled.IntPart()
}
