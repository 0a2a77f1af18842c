package quotas

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
	"github.com/angelmondragon/fieldops-backend/pkg/pagination"
)

// Repository defines persistence operations for the tenant_quotas table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertIfAbsent(ctx context.Context, entry *models.TenantQuota) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.TenantQuota, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.TenantQuota, error)
	FindByTenantAndType(ctx context.Context, tenantID uuid.UUID, quotaType enums.QuotaType) (*models.TenantQuota, error)
	FindByTenantAndTypeForUpdate(ctx context.Context, tenantID uuid.UUID, quotaType enums.QuotaType) (*models.TenantQuota, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.TenantQuota, error)
	List(ctx context.Context, query listQuery) ([]models.TenantQuota, error)
	ListDueForReset(ctx context.Context, cutoff time.Time, after *models.ResetCursor, limit int) ([]models.TenantQuota, error)
	ListSyncable(ctx context.Context, after uuid.UUID, limit int) ([]models.TenantQuota, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Stats(ctx context.Context) (*SystemStats, error)
	ExistingTenantIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type listQuery struct {
	tenantID  *uuid.UUID
	quotaType *enums.QuotaType
	status    *enums.QuotaStatus
	limit     int
	cursor    *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a quota repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// InsertIfAbsent inserts entry unless (tenant_id, quota_type) already exists.
// It reports whether a row was created.
func (r *repository) InsertIfAbsent(ctx context.Context, entry *models.TenantQuota) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "quota_type"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TenantQuota, error) {
	var row models.TenantQuota
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.TenantQuota, error) {
	var row models.TenantQuota
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByTenantAndType(ctx context.Context, tenantID uuid.UUID, quotaType enums.QuotaType) (*models.TenantQuota, error) {
	var row models.TenantQuota
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND quota_type = ?", tenantID, quotaType).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByTenantAndTypeForUpdate(ctx context.Context, tenantID uuid.UUID, quotaType enums.QuotaType) (*models.TenantQuota, error) {
	var row models.TenantQuota
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND quota_type = ?", tenantID, quotaType).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByTenant returns every entry of a tenant in canonical quota type order.
func (r *repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.TenantQuota, error) {
	var rows []models.TenantQuota
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return sortByQuotaType(rows), nil
}

// List returns entries newest first using cursor pagination.
func (r *repository) List(ctx context.Context, q listQuery) ([]models.TenantQuota, error) {
	query := r.db.WithContext(ctx).Model(&models.TenantQuota{})
	if q.tenantID != nil {
		query = query.Where("tenant_id = ?", *q.tenantID)
	}
	if q.quotaType != nil {
		query = query.Where("quota_type = ?", *q.quotaType)
	}
	if q.status != nil {
		query = query.Where("status = ?", *q.status)
	}
	if q.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", q.cursor.CreatedAt, q.cursor.CreatedAt, q.cursor.ID)
	}

	var rows []models.TenantQuota
	err := query.Order("created_at DESC").Order("id DESC").Limit(q.limit).Find(&rows).Error
	return rows, err
}

// ListDueForReset returns entries whose reset_date is on or before cutoff,
// ordered by (reset_date, id) and strictly after the cursor when one is given.
func (r *repository) ListDueForReset(ctx context.Context, cutoff time.Time, after *models.ResetCursor, limit int) ([]models.TenantQuota, error) {
	var rows []models.TenantQuota
	query := r.db.WithContext(ctx).
		Where("reset_date IS NOT NULL AND reset_date <= ?", cutoff)
	if after != nil {
		query = query.Where("(reset_date > ?) OR (reset_date = ? AND id > ?)", after.ResetDate, after.ResetDate, after.ID)
	}
	err := query.
		Order("reset_date ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListSyncable pages through entries that have a ground-truth counter, keyed by id.
func (r *repository) ListSyncable(ctx context.Context, after uuid.UUID, limit int) ([]models.TenantQuota, error) {
	var rows []models.TenantQuota
	err := r.db.WithContext(ctx).
		Where("quota_type <> ?", enums.QuotaTypeAPICalls).
		Where("id > ?", after).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.TenantQuota{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Stats computes the system-wide counters in one grouped query.
func (r *repository) Stats(ctx context.Context) (*SystemStats, error) {
	var stats SystemStats
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS exceeded,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS warning,
			COALESCE(SUM(CASE WHEN quota_limit = ? THEN 1 ELSE 0 END), 0) AS unlimited
		FROM tenant_quotas`,
		enums.QuotaStatusExceeded, enums.QuotaStatusWarning, models.UnlimitedQuota,
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ExistingTenantIDs returns the subset of ids present in the tenants table.
func (r *repository) ExistingTenantIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error
	return found, err
}
