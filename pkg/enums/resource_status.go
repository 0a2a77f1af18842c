package enums

// WorkerStatus mirrors the CHECK constraint on workers.status.
type WorkerStatus string

const (
	WorkerStatusActive   WorkerStatus = "active"
	WorkerStatusInactive WorkerStatus = "inactive"
	WorkerStatusOnLeave  WorkerStatus = "on_leave"
)

// AssetStatus mirrors the CHECK constraint on assets.status.
type AssetStatus string

const (
	AssetStatusActive      AssetStatus = "active"
	AssetStatusMaintenance AssetStatus = "maintenance"
	AssetStatusRetired     AssetStatus = "retired"
)
