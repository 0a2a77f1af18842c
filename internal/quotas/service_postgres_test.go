//go:build integration

package quotas

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fieldops-backend/pkg/config"
	"github.com/angelmondragon/fieldops-backend/pkg/db"
	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/enums"
	"github.com/angelmondragon/fieldops-backend/pkg/logger"
	"github.com/angelmondragon/fieldops-backend/pkg/migrate"
	"github.com/angelmondragon/fieldops-backend/pkg/outbox"
)

const postgresDSNEnv = "FIELDOPS_TEST_POSTGRES_DSN"

// openPostgres connects to the database named by FIELDOPS_TEST_POSTGRES_DSN
// with a real connection pool, so row locks are contended across connections.
func openPostgres(t *testing.T) *db.Client {
	t.Helper()
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", postgresDSNEnv)
	}
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn, Driver: db.DriverPostgres, MaxOpenConns: 10}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, migrate.AutoMigrate(client))
	return client
}

func TestPostgresConcurrentIncrementsAreNotLost(t *testing.T) {
	client := openPostgres(t)
	ctx := context.Background()

	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(client.DB()),
		Tx:      client,
		Counter: &fakeCounter{counts: map[enums.QuotaType]int64{}},
		Outbox:  outbox.NewService(outbox.NewRepository(client.DB()), nil),
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:     time.Now,
	})
	require.NoError(t, err)

	tenantID := uuid.New()
	require.NoError(t, client.DB().Create(&models.Tenant{
		ID:       tenantID,
		Name:     "Tenant " + tenantID.String()[:8],
		Slug:     tenantID.String(),
		IsActive: true,
	}).Error)

	entry, err := svc.SetLimit(ctx, SetLimitInput{TenantID: tenantID, QuotaType: enums.QuotaTypeJobs, Limit: 1000})
	require.NoError(t, err)
	t.Cleanup(func() {
		client.DB().Where("aggregate_id = ?", entry.ID).Delete(&models.OutboxEvent{})
		client.DB().Where("tenant_id = ?", tenantID).Delete(&models.TenantQuota{})
		client.DB().Where("id = ?", tenantID).Delete(&models.Tenant{})
	})

	const workers = 40
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AdjustUsage(ctx, entry.ID, 1, enums.UsageModeIncrement)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, int64(workers), stored.CurrentUsage)
}
