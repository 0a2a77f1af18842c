package quotas

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/fieldops-backend/pkg/db"
	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fieldops-backend/pkg/errors"
	"github.com/angelmondragon/fieldops-backend/pkg/logger"
	"github.com/angelmondragon/fieldops-backend/pkg/metrics"
	"github.com/angelmondragon/fieldops-backend/pkg/outbox"
)

const defaultCounterTimeout = 5 * time.Second

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the tenant quota ledger.
type Service interface {
	SetLimit(ctx context.Context, input SetLimitInput) (*models.TenantQuota, error)
	AdjustUsage(ctx context.Context, quotaID uuid.UUID, amount int64, mode enums.UsageMode) (*models.TenantQuota, error)
	SyncUsage(ctx context.Context, tenantID uuid.UUID, quotaType enums.QuotaType) (*models.TenantQuota, error)
	ResetUsage(ctx context.Context, quotaID uuid.UUID) (*models.TenantQuota, error)
	BulkSetLimit(ctx context.Context, tenantIDs []uuid.UUID, quotaType enums.QuotaType, newLimit int64) (int, error)

	Get(ctx context.Context, quotaID uuid.UUID) (*models.TenantQuota, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]models.TenantQuota, error)
	RecommendAll(ctx context.Context, tenantID uuid.UUID) ([]Recommendation, error)
	TenantSummary(ctx context.Context, tenantID uuid.UUID) (*TenantSummary, error)
	SystemStats(ctx context.Context) (*SystemStats, error)

	ListDueForReset(ctx context.Context, now time.Time, after *models.ResetCursor, limit int) ([]models.TenantQuota, error)
	ResetDue(ctx context.Context, quotaID uuid.UUID, now time.Time) (*models.TenantQuota, bool, error)
	ListSyncable(ctx context.Context, after uuid.UUID, limit int) ([]models.TenantQuota, error)
}

// ServiceParams wires the ledger's collaborators.
type ServiceParams struct {
	Repo           Repository
	Tx             txRunner
	Counter        UsageCounter
	Outbox         outboxPublisher
	Metrics        *metrics.QuotaMetrics
	Logger         *logger.Logger
	CounterTimeout time.Duration
	Now            func() time.Time
}

type service struct {
	repo           Repository
	tx             txRunner
	counter        UsageCounter
	outbox         outboxPublisher
	metrics        *metrics.QuotaMetrics
	logg           *logger.Logger
	counterTimeout time.Duration
	now            func() time.Time
}

// transition records a committed status change for metrics.
type transition struct {
	quotaType enums.QuotaType
	from      enums.QuotaStatus
	to        enums.QuotaStatus
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("quota repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Counter == nil {
		return nil, fmt.Errorf("usage counter required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := params.CounterTimeout
	if timeout <= 0 {
		timeout = defaultCounterTimeout
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:           params.Repo,
		tx:             params.Tx,
		counter:        params.Counter,
		outbox:         params.Outbox,
		metrics:        params.Metrics,
		logg:           params.Logger,
		counterTimeout: timeout,
		now:            func() time.Time { return now().UTC() },
	}, nil
}

func (s *service) SetLimit(ctx context.Context, input SetLimitInput) (*models.TenantQuota, error) {
	if err := validateSetLimit(input); err != nil {
		return nil, err
	}

	var (
		result  *models.TenantQuota
		changed *transition
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.ExistingTenantIDs(ctx, []uuid.UUID{input.TenantID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup tenant")
		}
		if len(found) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown tenant").
				WithDetails(map[string]any{"tenant_id": input.TenantID})
		}

		entry, created, err := s.upsertLocked(ctx, repo, input.TenantID, input.QuotaType)
		if err != nil {
			return err
		}
		before := *entry
		applySetLimit(entry, input, s.now())

		changed, err = s.persist(ctx, tx, repo, before, entry, "set_limit")
		if err != nil {
			return err
		}
		if created || before.QuotaLimit != entry.QuotaLimit {
			if err := s.emitLimitChanged(ctx, tx, before, *entry); err != nil {
				return err
			}
		}
		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(changed)
	s.logg.Info(s.entryLogContext(ctx, *result), "quota.limit_set")
	return result, nil
}

func validateSetLimit(input SetLimitInput) error {
	if input.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant_id is required")
	}
	if !input.QuotaType.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown quota_type %q", input.QuotaType)
	}
	if !input.IsUnlimited && input.Limit < models.UnlimitedQuota {
		return pkgerrors.New(pkgerrors.CodeValidation, "quota_limit must be -1 (unlimited) or >= 0").
			WithDetails(map[string]any{"quota_limit": input.Limit})
	}
	if input.StatusOverride != nil && !input.StatusOverride.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown status %q", *input.StatusOverride)
	}
	if input.ClearResetDate && input.ResetDate != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reset_date cannot be both set and cleared")
	}
	return nil
}

func applySetLimit(entry *models.TenantQuota, input SetLimitInput, now time.Time) {
	entry.QuotaLimit = input.Limit
	if input.IsUnlimited {
		entry.QuotaLimit = models.UnlimitedQuota
	}
	switch {
	case input.ClearResetDate:
		entry.ResetDate = nil
	case input.ResetDate != nil:
		d := truncateToDate(*input.ResetDate)
		entry.ResetDate = &d
	}
	if input.Metadata != nil {
		entry.Metadata = datatypes.JSONMap(input.Metadata)
	}
	if input.StatusOverride != nil {
		entry.Status = *input.StatusOverride
	} else {
		entry.Status = ClassifyEntry(*entry)
	}
	entry.UpdatedAt = now
}

func (s *service) AdjustUsage(ctx context.Context, quotaID uuid.UUID, amount int64, mode enums.UsageMode) (*models.TenantQuota, error) {
	if quotaID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quota id is required")
	}
	if !mode.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown mode %q", mode)
	}
	if amount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be >= 0").
			WithDetails(map[string]any{"amount": amount})
	}

	var (
		result  *models.TenantQuota
		changed *transition
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry, err := repo.FindByIDForUpdate(ctx, quotaID)
		if err != nil {
			return lookupError(err, "quota")
		}
		before := *entry

		switch mode {
		case enums.UsageModeSet:
			entry.CurrentUsage = amount
		case enums.UsageModeIncrement:
			if amount > math.MaxInt64-entry.CurrentUsage {
				return pkgerrors.New(pkgerrors.CodeValidation, "increment overflows current_usage")
			}
			entry.CurrentUsage += amount
		case enums.UsageModeDecrement:
			entry.CurrentUsage = max(entry.CurrentUsage-amount, 0)
		}
		entry.Status = ClassifyEntry(*entry)
		entry.UpdatedAt = s.now()

		changed, err = s.persist(ctx, tx, repo, before, entry, "adjust_usage")
		if err != nil {
			return err
		}
		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncAdjustment(string(result.QuotaType), string(mode))
	s.recordTransition(changed)
	logCtx := s.logg.WithFields(s.entryLogContext(ctx, *result), map[string]any{
		"mode":   mode,
		"amount": amount,
	})
	s.logg.Info(logCtx, "quota.usage_adjusted")
	return result, nil
}

func (s *service) SyncUsage(ctx context.Context, tenantID uuid.UUID, quotaType enums.QuotaType) (*models.TenantQuota, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant_id is required")
	}
	if !quotaType.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown quota_type %q", quotaType)
	}
	if !HasGroundTruth(quotaType) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s has no ground-truth counter to sync against", quotaType)
	}

	if _, err := s.repo.FindByTenantAndType(ctx, tenantID, quotaType); err != nil {
		return nil, lookupError(err, "quota")
	}

	// counted before the transaction so a slow counter never holds the row lock
	actual, err := s.groundTruth(ctx, tenantID, quotaType)
	if err != nil {
		return nil, err
	}

	var (
		result  *models.TenantQuota
		changed *transition
		drift   int64
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry, err := repo.FindByTenantAndTypeForUpdate(ctx, tenantID, quotaType)
		if err != nil {
			return lookupError(err, "quota")
		}
		before := *entry
		drift = actual - before.CurrentUsage

		entry.CurrentUsage = actual
		entry.Status = ClassifyEntry(*entry)
		entry.UpdatedAt = s.now()

		changed, err = s.persist(ctx, tx, repo, before, entry, "sync_usage")
		if err != nil {
			return err
		}
		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveSyncDrift(string(quotaType), drift)
	s.recordTransition(changed)
	s.logg.Info(s.logg.WithField(s.entryLogContext(ctx, *result), "drift", drift), "quota.usage_synced")
	return result, nil
}

func (s *service) ResetUsage(ctx context.Context, quotaID uuid.UUID) (*models.TenantQuota, error) {
	if quotaID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quota id is required")
	}
	entry, _, err := s.reset(ctx, quotaID, nil)
	return entry, err
}

// ResetDue resets an entry whose reset_date has arrived and moves reset_date
// forward month by month until it lies after now. An entry that is no longer
// due is returned unchanged with false.
func (s *service) ResetDue(ctx context.Context, quotaID uuid.UUID, now time.Time) (*models.TenantQuota, bool, error) {
	if quotaID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "quota id is required")
	}
	today := truncateToDate(now)
	return s.reset(ctx, quotaID, &today)
}

func (s *service) reset(ctx context.Context, quotaID uuid.UUID, dueBy *time.Time) (*models.TenantQuota, bool, error) {
	var (
		result  *models.TenantQuota
		changed *transition
		applied bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry, err := repo.FindByIDForUpdate(ctx, quotaID)
		if err != nil {
			return lookupError(err, "quota")
		}
		result = entry
		if dueBy != nil {
			if entry.ResetDate == nil || entry.ResetDate.After(*dueBy) {
				return nil
			}
			next := nextResetDate(*entry.ResetDate, *dueBy)
			entry.ResetDate = &next
		}
		before := *entry

		entry.CurrentUsage = 0
		entry.Status = ClassifyEntry(*entry)
		entry.UpdatedAt = s.now()

		changed, err = s.persist(ctx, tx, repo, before, entry, "reset_usage")
		if err != nil {
			return err
		}
		applied = true
		return s.emit(ctx, tx, enums.EventQuotaUsageReset, entry.ID, outboxUsageReset(before))
	})
	if err != nil {
		return nil, false, err
	}
	if applied {
		s.recordTransition(changed)
		s.logg.Info(s.entryLogContext(ctx, *result), "quota.usage_reset")
	}
	return result, applied, nil
}

func (s *service) BulkSetLimit(ctx context.Context, tenantIDs []uuid.UUID, quotaType enums.QuotaType, newLimit int64) (int, error) {
	unique, err := s.validateBulk(ctx, tenantIDs, quotaType, newLimit)
	if err != nil {
		return 0, err
	}

	var transitions []transition
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, tenantID := range unique {
			entry, created, err := s.upsertLocked(ctx, repo, tenantID, quotaType)
			if err != nil {
				return err
			}
			before := *entry
			entry.QuotaLimit = newLimit
			entry.Status = ClassifyEntry(*entry)
			entry.UpdatedAt = s.now()

			changed, err := s.persist(ctx, tx, repo, before, entry, "bulk_set_limit")
			if err != nil {
				return err
			}
			if changed != nil {
				transitions = append(transitions, *changed)
			}
			if created || before.QuotaLimit != entry.QuotaLimit {
				if err := s.emitLimitChanged(ctx, tx, before, *entry); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return 0, pkgerrors.Wrap(typed.Code(), err, "bulk limit update rolled back")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bulk limit update rolled back")
	}

	for i := range transitions {
		s.recordTransition(&transitions[i])
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"quota_type":   quotaType,
		"quota_limit":  newLimit,
		"tenant_count": len(unique),
	})
	s.logg.Info(logCtx, "quota.bulk_limit_set")
	return len(unique), nil
}

func (s *service) Get(ctx context.Context, quotaID uuid.UUID) (*models.TenantQuota, error) {
	if quotaID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quota id is required")
	}
	entry, err := s.repo.FindByID(ctx, quotaID)
	if err != nil {
		return nil, lookupError(err, "quota")
	}
	return entry, nil
}

func (s *service) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]models.TenantQuota, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant_id is required")
	}
	rows, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tenant quotas")
	}
	return rows, nil
}

func (s *service) RecommendAll(ctx context.Context, tenantID uuid.UUID) ([]Recommendation, error) {
	rows, err := s.ListForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return RecommendEntries(rows), nil
}

func (s *service) SystemStats(ctx context.Context) (*SystemStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute quota stats")
	}
	return stats, nil
}

func (s *service) ListDueForReset(ctx context.Context, now time.Time, after *models.ResetCursor, limit int) ([]models.TenantQuota, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.repo.ListDueForReset(ctx, truncateToDate(now), after, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotas due for reset")
	}
	return rows, nil
}

func (s *service) ListSyncable(ctx context.Context, after uuid.UUID, limit int) ([]models.TenantQuota, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.repo.ListSyncable(ctx, after, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list syncable quotas")
	}
	return rows, nil
}

// upsertLocked inserts a default entry when absent, then locks and returns the row.
func (s *service) upsertLocked(ctx context.Context, repo Repository, tenantID uuid.UUID, quotaType enums.QuotaType) (*models.TenantQuota, bool, error) {
	now := s.now()
	created, err := repo.InsertIfAbsent(ctx, &models.TenantQuota{
		ID:           uuid.New(),
		TenantID:     tenantID,
		QuotaType:    quotaType,
		QuotaLimit:   0,
		CurrentUsage: 0,
		Status:       enums.QuotaStatusActive,
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, false, writeError(err, "insert quota")
	}
	entry, err := repo.FindByTenantAndTypeForUpdate(ctx, tenantID, quotaType)
	if err != nil {
		return nil, false, lookupError(err, "quota")
	}
	return entry, created, nil
}

// persist writes the mutable columns of after and emits a status change event
// when the status moved.
func (s *service) persist(ctx context.Context, tx *gorm.DB, repo Repository, before models.TenantQuota, after *models.TenantQuota, trigger string) (*transition, error) {
	if after.Metadata == nil {
		after.Metadata = datatypes.JSONMap{}
	}
	err := repo.Update(ctx, after.ID, map[string]any{
		"quota_limit":   after.QuotaLimit,
		"current_usage": after.CurrentUsage,
		"status":        after.Status,
		"reset_date":    after.ResetDate,
		"metadata":      after.Metadata,
		"updated_at":    after.UpdatedAt,
	})
	if err != nil {
		return nil, writeError(err, "update quota")
	}
	if before.Status == after.Status {
		return nil, nil
	}
	if err := s.emit(ctx, tx, enums.EventQuotaStatusChanged, after.ID, outboxStatusChanged(before, *after, trigger)); err != nil {
		return nil, err
	}
	return &transition{quotaType: after.QuotaType, from: before.Status, to: after.Status}, nil
}

func (s *service) emitLimitChanged(ctx context.Context, tx *gorm.DB, before, after models.TenantQuota) error {
	return s.emit(ctx, tx, enums.EventQuotaLimitChanged, after.ID, outboxLimitChanged(before, after))
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, quotaID uuid.UUID, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateTenantQuota,
		AggregateID:   quotaID,
		Data:          data,
		OccurredAt:    s.now(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) recordTransition(t *transition) {
	if t == nil {
		return
	}
	s.metrics.IncTransition(string(t.quotaType), string(t.from), string(t.to))
}

func (s *service) entryLogContext(ctx context.Context, entry models.TenantQuota) context.Context {
	ctx = s.logg.WithTenantID(ctx, entry.TenantID.String())
	ctx = s.logg.WithQuota(ctx, entry.ID.String(), string(entry.QuotaType))
	return s.logg.WithFields(ctx, map[string]any{
		"quota_limit":   entry.QuotaLimit,
		"current_usage": entry.CurrentUsage,
		"status":        entry.Status,
	})
}

func lookupError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

func writeError(err error, action string) error {
	if dbpkg.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, action)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
