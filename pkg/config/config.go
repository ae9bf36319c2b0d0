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

	EnvDBDSN  = "SWIFTBASKET_DB_DSN"
	EnvDBHost = "SWIFTBASKET_DB_HOST"
	EnvDBUser = "SWIFTBASKET_DB_USER"
	EnvDBName = "SWIFTBASKET_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Payment      PaymentConfig
	Shipping     ShippingConfig
	Outbox       OutboxConfig
	Support      SupportConfig
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
	Env          string `envconfig:"SWIFTBASKET_APP_ENV" required:"true"`
	Port         string `envconfig:"SWIFTBASKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SWIFTBASKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SWIFTBASKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SWIFTBASKET_DB_DSN"`
	Driver string `envconfig:"SWIFTBASKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SWIFTBASKET_DB_HOST"`
	LegacyPort     int    `envconfig:"SWIFTBASKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SWIFTBASKET_DB_USER"`
	LegacyPassword string `envconfig:"SWIFTBASKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"SWIFTBASKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"SWIFTBASKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SWIFTBASKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SWIFTBASKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SWIFTBASKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SWIFTBASKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SWIFTBASKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SWIFTBASKET_REDIS_ADDR"`
	Password     string        `envconfig:"SWIFTBASKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"SWIFTBASKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SWIFTBASKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SWIFTBASKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SWIFTBASKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SWIFTBASKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SWIFTBASKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SWIFTBASKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SWIFTBASKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SWIFTBASKET_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SWIFTBASKET_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig carries the flat billing rules applied to every cart summary.
type CheckoutConfig struct {
	FreeShippingThreshold int `envconfig:"SWIFTBASKET_FREE_SHIPPING_THRESHOLD" default:"500"`
	ShippingFee           int `envconfig:"SWIFTBASKET_SHIPPING_FEE" default:"50"`
	ReturnWindowDays      int `envconfig:"SWIFTBASKET_RETURN_WINDOW_DAYS" default:"7"`
}

type PaymentConfig struct {
	BaseURL       string        `envconfig:"SWIFTBASKET_PAYMENT_BASE_URL" required:"true"`
	AppID         string        `envconfig:"SWIFTBASKET_PAYMENT_APP_ID" required:"true"`
	SecretKey     string        `envconfig:"SWIFTBASKET_PAYMENT_SECRET_KEY" required:"true"`
	WebhookSecret string        `envconfig:"SWIFTBASKET_PAYMENT_WEBHOOK_SECRET" required:"true"`
	Timeout       time.Duration `envconfig:"SWIFTBASKET_PAYMENT_TIMEOUT" default:"30s"`
	Currency      string        `envconfig:"SWIFTBASKET_PAYMENT_CURRENCY" default:"INR"`
}

type ShippingConfig struct {
	BaseURL string        `envconfig:"SWIFTBASKET_SHIPPING_BASE_URL"`
	Email   string        `envconfig:"SWIFTBASKET_SHIPPING_EMAIL"`
	Token   string        `envconfig:"SWIFTBASKET_SHIPPING_TOKEN"`
	Timeout time.Duration `envconfig:"SWIFTBASKET_SHIPPING_TIMEOUT" default:"30s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SWIFTBASKET_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SWIFTBASKET_OUTBOX_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SWIFTBASKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// SupportConfig replaces the historical hardcoded support-account id with
// configuration.
type SupportConfig struct {
	QueueUserID string `envconfig:"SWIFTBASKET_SUPPORT_QUEUE_USER_ID"`
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
