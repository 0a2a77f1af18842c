package config

// EnvPrefix is empty because every field carries its fully qualified FIELDOPS_* name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "FIELDOPS_APP_ENV"
	EnvPort     = "FIELDOPS_APP_PORT"
	EnvLogLevel = "FIELDOPS_LOG_LEVEL"

	EnvDBDSN  = "FIELDOPS_DB_DSN"
	EnvDBHost = "FIELDOPS_DB_HOST"
	EnvDBUser = "FIELDOPS_DB_USER"
	EnvDBName = "FIELDOPS_DB_NAME"

	EnvRedisURL = "FIELDOPS_REDIS_URL"

	EnvJWTSecret  = "FIELDOPS_JWT_SECRET"
	EnvJWTIssuer  = "FIELDOPS_JWT_ISSUER"
	EnvJWTExpMins = "FIELDOPS_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite = "FIELDOPS_USE_SQLITE"

	EnvQuotaCounterTimeout = "FIELDOPS_QUOTA_COUNTER_TIMEOUT"
	EnvCronInterval        = "FIELDOPS_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
