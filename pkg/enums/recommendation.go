package enums

// RecommendationType tells whether a limit should grow or shrink.
type RecommendationType string

const (
	RecommendationIncrease RecommendationType = "increase"
	RecommendationDecrease RecommendationType = "decrease"
)

// RecommendationSeverity mirrors the UI badge level for a recommendation.
type RecommendationSeverity string

const (
	SeverityError   RecommendationSeverity = "error"
	SeverityWarning RecommendationSeverity = "warning"
	SeverityInfo    RecommendationSeverity = "info"
)

// RecommendationPriority orders recommendations for admins.
type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)
