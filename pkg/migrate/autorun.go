package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/fieldops-backend/pkg/config"
	"github.com/angelmondragon/fieldops-backend/pkg/db"
	"github.com/angelmondragon/fieldops-backend/pkg/db/models"
	"github.com/angelmondragon/fieldops-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. SQLite databases get the gorm schema instead of the
// Postgres SQL files.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.DB.Driver == db.DriverSQLite {
		ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})
		logg.Info(ctx, "running gorm auto-migrate (sqlite dev)")
		if err := AutoMigrate(client); err != nil {
			return err
		}
		logg.Info(ctx, "gorm auto-migrate completed")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrate creates the ledger tables from the gorm models.
func AutoMigrate(client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}
	err := client.DB().AutoMigrate(
		&models.Tenant{},
		&models.TenantQuota{},
		&models.User{},
		&models.Worker{},
		&models.Job{},
		&models.Asset{},
		&models.Form{},
		&models.Media{},
		&models.OutboxEvent{},
	)
	if err != nil {
		return fmt.Errorf("gorm auto-migrate: %w", err)
	}
	return nil
}
