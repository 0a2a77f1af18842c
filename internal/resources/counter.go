// Package resources counts the tenant-owned rows that back each quota type.
package resources

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
)

// Counter reads ground-truth usage straight from the resource tables.
type Counter struct {
	db *gorm.DB
}

func NewCounter(db *gorm.DB) *Counter {
	return &Counter{db: db}
}

func (c *Counter) CountActiveUsers(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return c.count(ctx, &models.User{}, "tenant_id = ? AND is_active = ?", tenantID, true)
}

func (c *Counter) CountActiveWorkers(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return c.count(ctx, &models.Worker{}, "tenant_id = ? AND status = ?", tenantID, enums.WorkerStatusActive)
}

// CountActiveJobs counts jobs that still hold capacity: pending, assigned or in progress.
func (c *Counter) CountActiveJobs(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return c.count(ctx, &models.Job{}, "tenant_id = ? AND status IN ?", tenantID, enums.QuotaCountedJobStatuses)
}

func (c *Counter) CountActiveAssets(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return c.count(ctx, &models.Asset{}, "tenant_id = ? AND status = ?", tenantID, enums.AssetStatusActive)
}

func (c *Counter) CountActiveForms(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return c.count(ctx, &models.Form{}, "tenant_id = ? AND is_active = ?", tenantID, true)
}

// StorageUsageBytes sums the size of every media object the tenant owns.
func (c *Counter) StorageUsageBytes(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var total int64
	err := c.db.WithContext(ctx).
		Model(&models.Media{}).
		Select("COALESCE(SUM(size_bytes), 0)").
		Where("tenant_id = ?", tenantID).
		Scan(&total).Error
	return total, err
}

func (c *Counter) count(ctx context.Context, model any, where string, args ...any) (int64, error) {
	var n int64
	err := c.db.WithContext(ctx).Model(model).Where(where, args...).Count(&n).Error
	return n, err
}
