package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BAZAARKART_DB_DSN"
	EnvDBHost = "BAZAARKART_DB_HOST"
	EnvDBUser = "BAZAARKART_DB_USER"
	EnvDBName = "BAZAARKART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Gateway      GatewayConfig
	Shipping     ShippingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Refund       RefundConfig
	Reconcile    ReconcileConfig
	RateLimit    RateLimitConfig
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
	Env          string `envconfig:"BAZAARKART_APP_ENV" required:"true"`
	Port         string `envconfig:"BAZAARKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAZAARKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAZAARKART_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"BAZAARKART_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BAZAARKART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BAZAARKART_DB_DSN"`
	Driver string `envconfig:"BAZAARKART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAZAARKART_DB_HOST"`
	LegacyPort     int    `envconfig:"BAZAARKART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAZAARKART_DB_USER"`
	LegacyPassword string `envconfig:"BAZAARKART_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAZAARKART_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAZAARKART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZAARKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZAARKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZAARKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZAARKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZAARKART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAZAARKART_REDIS_ADDR"`
	Password     string        `envconfig:"BAZAARKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZAARKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZAARKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZAARKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZAARKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZAARKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZAARKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BAZAARKART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BAZAARKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BAZAARKART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BAZAARKART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BAZAARKART_AUTO_MIGRATE" default:"false"`
}

// GatewayConfig configures the Square-backed payment gateway adapter.
type GatewayConfig struct {
	AccessToken   string `envconfig:"BAZAARKART_GATEWAY_ACCESS_TOKEN"`
	Env           string `envconfig:"BAZAARKART_GATEWAY_ENV" default:"sandbox"`
	LocationID    string `envconfig:"BAZAARKART_GATEWAY_LOCATION_ID"`
	WebhookSecret string `envconfig:"BAZAARKART_GATEWAY_WEBHOOK_SECRET"`

	RefundTimeout time.Duration `envconfig:"BAZAARKART_GATEWAY_REFUND_TIMEOUT" default:"10s"`
}

// Environment returns the normalized gateway environment (sandbox/production).
func (g GatewayConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(g.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type ShippingConfig struct {
	BaseURL       string        `envconfig:"BAZAARKART_SHIPPING_BASE_URL"`
	APIKey        string        `envconfig:"BAZAARKART_SHIPPING_API_KEY"`
	CancelTimeout time.Duration `envconfig:"BAZAARKART_SHIPPING_CANCEL_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"BAZAARKART_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"BAZAARKART_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"BAZAARKART_PUBSUB_ORDERS_TOPIC" default:"bk-order-events"`
	OrdersSubscription string `envconfig:"BAZAARKART_PUBSUB_ORDERS_SUBSCRIPTION"`
	VendorTopic        string `envconfig:"BAZAARKART_PUBSUB_VENDOR_TOPIC" default:"bk-vendor-events"`
	VendorSubscription string `envconfig:"BAZAARKART_PUBSUB_VENDOR_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BAZAARKART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BAZAARKART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BAZAARKART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// RefundConfig controls refund policy knobs. Shipping charges are never
// refunded; the log retention window is the audit TTL for refund entries.
type RefundConfig struct {
	LogRetentionDays int `envconfig:"BAZAARKART_REFUND_LOG_RETENTION_DAYS" default:"45"`
}

func (r RefundConfig) LogRetention() time.Duration {
	days := r.LogRetentionDays
	if days <= 0 {
		days = 45
	}
	return time.Duration(days) * 24 * time.Hour
}

// RateLimitConfig throttles the write-heavy surfaces. A zero limit or window
// disables the corresponding limiter.
type RateLimitConfig struct {
	CheckoutLimit  int           `envconfig:"BAZAARKART_RATE_LIMIT_CHECKOUT" default:"30"`
	CheckoutWindow time.Duration `envconfig:"BAZAARKART_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	RefundLimit    int           `envconfig:"BAZAARKART_RATE_LIMIT_REFUND" default:"10"`
	RefundWindow   time.Duration `envconfig:"BAZAARKART_RATE_LIMIT_REFUND_WINDOW" default:"1m"`
}

type ReconcileConfig struct {
	Epsilon  string        `envconfig:"BAZAARKART_RECONCILE_EPSILON" default:"0.01"`
	Interval time.Duration `envconfig:"BAZAARKART_RECONCILE_INTERVAL" default:"1h"`
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
