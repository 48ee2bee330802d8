package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Catalog       CatalogConfig
	Billing       BillingConfig
	Cron          CronConfig
}

// Load reads the SUBHUB_ environment and reports every invalid section at
// once.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	err := multierr.Combine(
		cfg.DB.resolveDSN(),
		cfg.JWT.validate(),
		cfg.Catalog.validate(),
		cfg.Billing.validate(),
		cfg.Cron.validate(),
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SUBHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"SUBHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SUBHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SUBHUB_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"SUBHUB_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SUBHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SUBHUB_DB_DSN"`
	Driver string `envconfig:"SUBHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SUBHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"SUBHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUBHUB_DB_USER"`
	LegacyPassword string `envconfig:"SUBHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUBHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUBHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUBHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUBHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUBHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUBHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQueryThreshold logs statements slower than this; 0 disables it.
	SlowQueryThreshold time.Duration `envconfig:"SUBHUB_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"SUBHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SUBHUB_REDIS_ADDR"`
	Password     string        `envconfig:"SUBHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUBHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUBHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUBHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUBHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUBHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUBHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SUBHUB_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SUBHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SUBHUB_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SUBHUB_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SUBHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SUBHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SUBHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SUBHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SUBHUB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow           time.Duration `envconfig:"SUBHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIdentityLimit    int           `envconfig:"SUBHUB_AUTH_RATE_LIMIT_LOGIN_IDENTITY_LIMIT" default:"5"`
	LoginIPLimit          int           `envconfig:"SUBHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow        time.Duration `envconfig:"SUBHUB_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIdentityLimit int           `envconfig:"SUBHUB_AUTH_RATE_LIMIT_REGISTER_IDENTITY_LIMIT" default:"3"`
	RegisterIPLimit       int           `envconfig:"SUBHUB_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SUBHUB_AUTO_MIGRATE" default:"false"`
	SeedOnStart bool `envconfig:"SUBHUB_SEED_ON_START" default:"false"`
}

// Cache backends accepted by SUBHUB_CATALOG_CACHE_BACKEND.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

type CatalogConfig struct {
	CacheBackend string        `envconfig:"SUBHUB_CATALOG_CACHE_BACKEND" default:"memory"`
	CacheTTL     time.Duration `envconfig:"SUBHUB_CATALOG_CACHE_TTL" default:"5m"`
	CacheSize    int           `envconfig:"SUBHUB_CATALOG_CACHE_SIZE" default:"256"`
	ListCap      int           `envconfig:"SUBHUB_CATALOG_LIST_CAP" default:"50"`
}

func (c CatalogConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.CacheBackend)) {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendNone:
		return nil
	}
	return fmt.Errorf("%s must be one of memory, redis, none (got %q)", EnvCatalogCacheBackend, c.CacheBackend)
}

type BillingConfig struct {
	Currency         string        `envconfig:"SUBHUB_BILLING_CURRENCY" default:"INR"`
	PeriodDays       int           `envconfig:"SUBHUB_BILLING_PERIOD_DAYS" default:"30"`
	ExpiringSoonDays int           `envconfig:"SUBHUB_BILLING_EXPIRING_SOON_DAYS" default:"7"`
	PendingTTL       time.Duration `envconfig:"SUBHUB_BILLING_PENDING_TTL" default:"15m"`
}

// Period returns the billing period length.
func (b BillingConfig) Period() time.Duration {
	if b.PeriodDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(b.PeriodDays) * 24 * time.Hour
}

// ExpiringSoonWindow returns how far ahead of renewal a plan counts as expiring.
func (b BillingConfig) ExpiringSoonWindow() time.Duration {
	if b.ExpiringSoonDays <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(b.ExpiringSoonDays) * 24 * time.Hour
}

type CronConfig struct {
	Schedule  string        `envconfig:"SUBHUB_CRON_SCHEDULE" default:"*/5 * * * *"`
	Interval  time.Duration `envconfig:"SUBHUB_CRON_INTERVAL"`
	LockTTL   time.Duration `envconfig:"SUBHUB_CRON_LOCK_TTL" default:"10m"`
	BatchSize int           `envconfig:"SUBHUB_CRON_BATCH_SIZE" default:"200"`
}

// resolveDSN assembles a postgres URL from the discrete SUBHUB_DB_* vars
// when SUBHUB_DB_DSN is unset.
func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}

	provided := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	var missing []string
	for _, name := range legacyDBEnvVars {
		if strings.TrimSpace(provided[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.User(db.LegacyUser),
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacyPassword != "" {
		dsn.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	if db.LegacySSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}

func (j JWTConfig) validate() error {
	access := time.Duration(j.ExpirationMinutes) * time.Minute
	switch {
	case j.ExpirationMinutes <= 0:
		return fmt.Errorf("%s must be positive", EnvJWTExpMins)
	case j.RefreshTokenTTL() <= access:
		return fmt.Errorf("%s must exceed the access token lifetime of %s", EnvRefreshTokenTTLMinutes, access)
	}
	return nil
}

func (b BillingConfig) validate() error {
	if len(strings.TrimSpace(b.Currency)) != 3 {
		return fmt.Errorf("%s must be a three letter code (got %q)", EnvBillingCurrency, b.Currency)
	}
	return nil
}

func (c CronConfig) validate() error {
	if c.LockTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvCronLockTTL)
	}
	return nil
}
