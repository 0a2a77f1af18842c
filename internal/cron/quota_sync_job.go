package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
	"github.com/angelmondragon/fieldops-backend/pkg/logger"
)

const quotaSyncBatchSize = 200

type QuotaSyncJobParams struct {
	Logger    *logger.Logger
	Ledger    quotaSyncer
	BatchSize int
}

type quotaSyncer interface {
	ListSyncable(ctx context.Context, after uuid.UUID, limit int) ([]models.TenantQuota, error)
	SyncUsage(ctx context.Context, tenantID uuid.UUID, quotaType enums.QuotaType) (*models.TenantQuota, error)
}

// NewQuotaSyncJob reconciles every entry that has a ground-truth counter.
func NewQuotaSyncJob(params QuotaSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("quota ledger required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = quotaSyncBatchSize
	}
	return &quotaSyncJob{logg: params.Logger, ledger: params.Ledger, batch: batch}, nil
}

type quotaSyncJob struct {
	logg   *logger.Logger
	ledger quotaSyncer
	batch  int
}

func (j *quotaSyncJob) Name() string { return "quota-sync" }

func (j *quotaSyncJob) Run(ctx context.Context) error {
	var (
		errs   error
		synced int
		failed int
		after  = uuid.Nil
	)
	for {
		page, err := j.ledger.ListSyncable(ctx, after, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list syncable quotas: %w", err))
		}
		for _, entry := range page {
			if ctx.Err() != nil {
				return multierr.Append(errs, ctx.Err())
			}
			if _, err := j.ledger.SyncUsage(ctx, entry.TenantID, entry.QuotaType); err != nil {
				failed++
				errs = multierr.Append(errs, fmt.Errorf("sync %s/%s: %w", entry.TenantID, entry.QuotaType, err))
				continue
			}
			synced++
		}
		if len(page) < j.batch {
			break
		}
		after = page[len(page)-1].ID
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"synced": synced,
		"failed": failed,
	})
	j.logg.Info(logCtx, "quota sync sweep complete")
	return errs
}
