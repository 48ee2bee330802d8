package config

// EnvPrefix is the envconfig prefix shared by every variable.
const EnvPrefix = "SUBHUB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv     = "SUBHUB_APP_ENV"
	EnvPort       = "SUBHUB_APP_PORT"
	EnvLogLevel   = "SUBHUB_LOG_LEVEL"
	EnvDBDSN      = "SUBHUB_DB_DSN"
	EnvDBDriver   = "SUBHUB_DB_DRIVER"
	EnvDBHost     = "SUBHUB_DB_HOST"
	EnvDBUser     = "SUBHUB_DB_USER"
	EnvDBName     = "SUBHUB_DB_NAME"
	EnvRedisURL   = "SUBHUB_REDIS_URL"
	EnvJWTSecret  = "SUBHUB_JWT_SECRET"
	EnvJWTIssuer  = "SUBHUB_JWT_ISSUER"
	EnvJWTExpMins = "SUBHUB_JWT_EXPIRATION_MINUTES"

	EnvRefreshTokenTTLMinutes = "SUBHUB_REFRESH_TOKEN_TTL_MINUTES"
	EnvCatalogCacheBackend    = "SUBHUB_CATALOG_CACHE_BACKEND"
	EnvBillingCurrency        = "SUBHUB_BILLING_CURRENCY"
	EnvCronSchedule           = "SUBHUB_CRON_SCHEDULE"
	EnvCronLockTTL            = "SUBHUB_CRON_LOCK_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
