package enums

// JobStatus mirrors the CHECK constraint on jobs.status.
type JobStatus string

const (
	JobStatusDraft      JobStatus = "draft"
	JobStatusPending    JobStatus = "pending"
	JobStatusAssigned   JobStatus = "assigned"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// QuotaCountedJobStatuses lists the job statuses that consume the jobs quota.
var QuotaCountedJobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusAssigned,
	JobStatusInProgress,
}
