package quotas

import (
	"sort"

	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
)

// sortByQuotaType returns a copy ordered users, workers, jobs, assets, forms,
// storage, api_calls.
func sortByQuotaType(entries []models.TenantQuota) []models.TenantQuota {
	out := make([]models.TenantQuota, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QuotaType.Order() < out[j].QuotaType.Order()
	})
	return out
}
