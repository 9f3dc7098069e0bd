package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Payment      PaymentConfig
	Pricing      PricingConfig
	Courier      CourierConfig
	Geocoder     GeocoderConfig
	Provision    ProvisionConfig
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
	Env            string   `envconfig:"LUNCHBOX_APP_ENV" required:"true"`
	Port           string   `envconfig:"LUNCHBOX_APP_PORT" default:"8080"`
	LogLevel       string   `envconfig:"LUNCHBOX_LOG_LEVEL" default:"info"`
	LogWarnStack   bool     `envconfig:"LUNCHBOX_LOG_WARN_STACK" default:"false"`
	AllowedOrigins []string `envconfig:"LUNCHBOX_ALLOWED_ORIGINS" default:""`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LUNCHBOX_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LUNCHBOX_DB_DSN"`
	Driver string `envconfig:"LUNCHBOX_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"LUNCHBOX_DB_HOST"`
	Port     int    `envconfig:"LUNCHBOX_DB_PORT" default:"5432"`
	User     string `envconfig:"LUNCHBOX_DB_USER"`
	Password string `envconfig:"LUNCHBOX_DB_PASSWORD"`
	Name     string `envconfig:"LUNCHBOX_DB_NAME"`
	SSLMode  string `envconfig:"LUNCHBOX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LUNCHBOX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LUNCHBOX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LUNCHBOX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LUNCHBOX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either LUNCHBOX_DB_DSN or host/user/name parts are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"LUNCHBOX_REDIS_URL"`
	Address      string        `envconfig:"LUNCHBOX_REDIS_ADDR"`
	Password     string        `envconfig:"LUNCHBOX_REDIS_PASSWORD"`
	DB           int           `envconfig:"LUNCHBOX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LUNCHBOX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LUNCHBOX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LUNCHBOX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LUNCHBOX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LUNCHBOX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LUNCHBOX_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LUNCHBOX_JWT_ISSUER" default:"lunchbox"`
	ExpirationMinutes int    `envconfig:"LUNCHBOX_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// PaymentConfig carries the Razorpay shared secret used for local signature
// verification plus the reservation lifetime.
type PaymentConfig struct {
	RazorpayKeyID     string        `envconfig:"LUNCHBOX_RAZORPAY_KEY_ID"`
	RazorpayKeySecret string        `envconfig:"LUNCHBOX_RAZORPAY_KEY_SECRET" required:"true"`
	ReservationTTL    time.Duration `envconfig:"LUNCHBOX_PAYMENT_RESERVATION_TTL" default:"15m"`
}

// PricingConfig holds the distance-charge knobs. The first FreeKilometers of a
// route are free; everything beyond is billed at RatePerKilometer per day.
type PricingConfig struct {
	FreeKilometers   decimal.Decimal `envconfig:"LUNCHBOX_PRICING_FREE_KM" default:"5"`
	RatePerKilometer decimal.Decimal `envconfig:"LUNCHBOX_PRICING_RATE_PER_KM" default:"5"`
	Currency         string          `envconfig:"LUNCHBOX_PRICING_CURRENCY" default:"INR"`
}

type CourierConfig struct {
	MaxActiveOrders int `envconfig:"LUNCHBOX_COURIER_MAX_ACTIVE_ORDERS" default:"25"`
}

type GeocoderConfig struct {
	BaseURL   string        `envconfig:"LUNCHBOX_GEOCODER_BASE_URL" default:"https://nominatim.openstreetmap.org"`
	UserAgent string        `envconfig:"LUNCHBOX_GEOCODER_USER_AGENT" default:"lunchbox-backend/1.0"`
	Timeout   time.Duration `envconfig:"LUNCHBOX_GEOCODER_TIMEOUT" default:"10s"`
	Country   string        `envconfig:"LUNCHBOX_GEOCODER_COUNTRY" default:"in"`
}

// ProvisionConfig seeds the bootstrap admin account. Provisioning is an
// explicit step (cmd/migrate provision), never a process-start side effect.
type ProvisionConfig struct {
	AdminEmail    string `envconfig:"LUNCHBOX_PROVISION_ADMIN_EMAIL" default:"admin@lunchbox.local"`
	AdminPassword string `envconfig:"LUNCHBOX_PROVISION_ADMIN_PASSWORD"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LUNCHBOX_FEATURE_AUTO_MIGRATE" default:"false"`
}
