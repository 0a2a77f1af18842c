package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/logger"
)

const (
	quotaResetBatchSize = 100
	quotaResetMaxPages  = 50
)

type QuotaResetJobParams struct {
	Logger    *logger.Logger
	Ledger    quotaResetter
	BatchSize int
}

type quotaResetter interface {
	ListDueForReset(ctx context.Context, now time.Time, after *models.ResetCursor, limit int) ([]models.TenantQuota, error)
	ResetDue(ctx context.Context, quotaID uuid.UUID, now time.Time) (*models.TenantQuota, bool, error)
}

// NewQuotaResetJob zeroes usage on entries whose reset_date has arrived.
func NewQuotaResetJob(params QuotaResetJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("quota ledger required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = quotaResetBatchSize
	}
	return &quotaResetJob{
		logg:   params.Logger,
		ledger: params.Ledger,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type quotaResetJob struct {
	logg   *logger.Logger
	ledger quotaResetter
	batch  int
	now    func() time.Time
}

func (j *quotaResetJob) Name() string { return "quota-reset" }

// Run walks the due entries by (reset_date, id) so a batch that keeps failing
// never hides the entries behind it.
func (j *quotaResetJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var (
		after  *models.ResetCursor
		errs   error
		reset  int
		failed int
	)

	for page := 0; page < quotaResetMaxPages; page++ {
		due, err := j.ledger.ListDueForReset(ctx, now, after, j.batch)
		if err != nil {
			return fmt.Errorf("list due quotas: %w", err)
		}
		if len(due) == 0 {
			break
		}

		for _, entry := range due {
			_, applied, err := j.ledger.ResetDue(ctx, entry.ID, now)
			if err != nil {
				failed++
				errs = multierr.Append(errs, fmt.Errorf("reset quota %s: %w", entry.ID, err))
				continue
			}
			if applied {
				reset++
			}
		}

		next := models.ResetCursorOf(due[len(due)-1])
		if next == nil || len(due) < j.batch {
			break
		}
		after = next
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"reset":  reset,
		"failed": failed,
	})
	j.logg.Info(logCtx, "quota reset sweep complete")
	return errs
}
