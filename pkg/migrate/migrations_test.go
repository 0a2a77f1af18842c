package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fieldops-backend/pkg/config"
	"github.com/angelmondragon/fieldops-backend/pkg/db"
	"github.com/angelmondragon/fieldops-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s migration", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestTenantQuotasMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_tenant_quotas")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS tenant_quotas",
		"FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE",
		"CHECK (quota_limit >= -1)",
		"CHECK (current_usage >= 0)",
		"CHECK (status IN ('active', 'warning', 'exceeded'))",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_tenant_quotas_tenant_type ON tenant_quotas (tenant_id, quota_type)",
		"DROP TABLE IF EXISTS tenant_quotas",
	}
	for _, sub := range checks {
		assert.Contains(t, content, sub)
	}
}

func TestResourceMigrationCoversCountedTables(t *testing.T) {
	content := readMigration(t, "create_tenants_and_resources")

	for _, table := range []string{"tenants", "users", "workers", "jobs", "assets", "forms", "media"} {
		assert.Contains(t, content, "CREATE TABLE IF NOT EXISTS "+table+" (")
		assert.Contains(t, content, "DROP TABLE IF EXISTS "+table+";")
	}
	assert.Contains(t, content, "'in_progress'")
}

func TestMigrationDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "create_things.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	err := migrate.ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid migration filename")
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Quota Notes!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_quota_notes.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestAutoMigrateBuildsLedgerTables(t *testing.T) {
	client, err := db.New(t.Context(), config.DBConfig{DSN: "file:automigrate?mode=memory&cache=shared", Driver: db.DriverSQLite}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, migrate.AutoMigrate(client))

	conn := client.DB()
	for _, table := range []string{"tenants", "tenant_quotas", "jobs", "media", "outbox_events"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
	assert.True(t, conn.Migrator().HasIndex("tenant_quotas", "ux_tenant_quotas_tenant_type"))
}
