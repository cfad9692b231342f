package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Upstream     UpstreamConfig
	DB           DBConfig
	Redis        RedisConfig
	Session      SessionConfig
	Pricing      PricingConfig
	Catalog      CatalogConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FLORIST_APP_ENV" required:"true"`
	Port         string `envconfig:"FLORIST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FLORIST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FLORIST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// UpstreamConfig points at the florist REST API this service fronts.
type UpstreamConfig struct {
	BaseURL string        `envconfig:"FLORIST_UPSTREAM_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"FLORIST_UPSTREAM_TIMEOUT" default:"60s"`
}

type DBConfig struct {
	DSN    string `envconfig:"FLORIST_DB_DSN"`
	Driver string `envconfig:"FLORIST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FLORIST_DB_HOST"`
	LegacyPort     int    `envconfig:"FLORIST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FLORIST_DB_USER"`
	LegacyPassword string `envconfig:"FLORIST_DB_PASSWORD"`
	LegacyName     string `envconfig:"FLORIST_DB_NAME"`
	LegacySSLMode  string `envconfig:"FLORIST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FLORIST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FLORIST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FLORIST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FLORIST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FLORIST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FLORIST_REDIS_ADDR"`
	Password     string        `envconfig:"FLORIST_REDIS_PASSWORD"`
	DB           int           `envconfig:"FLORIST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FLORIST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FLORIST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FLORIST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FLORIST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FLORIST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig signs the shopper session tokens handed to the SPA.
type SessionConfig struct {
	Secret     string `envconfig:"FLORIST_SESSION_SECRET" required:"true"`
	Issuer     string `envconfig:"FLORIST_SESSION_ISSUER" required:"true"`
	TTLMinutes int    `envconfig:"FLORIST_SESSION_TTL_MINUTES" default:"10080"`
}

// TTL returns the session token lifetime configured in minutes.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

// PricingConfig carries the storefront pricing policy. The shipping fee is a
// flat policy amount, not derived from weight or distance.
type PricingConfig struct {
	ShippingFlatFee string `envconfig:"FLORIST_PRICING_SHIPPING_FLAT_FEE" default:"9.99"`
	TaxRate         string `envconfig:"FLORIST_PRICING_TAX_RATE" default:"0.08"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"FLORIST_CATALOG_CACHE_TTL" default:"5m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FLORIST_CORS_ALLOWED_ORIGINS" default:"*"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FLORIST_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FLORIST_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
