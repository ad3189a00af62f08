package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Outbox    OutboxConfig
	Guard     GuardConfig
	Payouts   PayoutConfig
	Breaker   BreakerConfig
	Providers ProvidersConfig
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
	Env          string `envconfig:"PAYLANE_APP_ENV" required:"true"`
	Port         string `envconfig:"PAYLANE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PAYLANE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYLANE_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"PAYLANE_APP_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PAYLANE_DB_DSN"`
	Driver string `envconfig:"PAYLANE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAYLANE_DB_HOST"`
	LegacyPort     int    `envconfig:"PAYLANE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAYLANE_DB_USER"`
	LegacyPassword string `envconfig:"PAYLANE_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAYLANE_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAYLANE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAYLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAYLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAYLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYLANE_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"PAYLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PAYLANE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PAYLANE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PAYLANE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"PAYLANE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"PAYLANE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	PaymentsTopic      string `envconfig:"PAYLANE_PUBSUB_PAYMENTS_TOPIC" required:"true"`
	RefundsTopic       string `envconfig:"PAYLANE_PUBSUB_REFUNDS_TOPIC" required:"true"`
	PayoutsTopic       string `envconfig:"PAYLANE_PUBSUB_PAYOUTS_TOPIC" required:"true"`
	NotificationsTopic string `envconfig:"PAYLANE_PUBSUB_NOTIFICATIONS_TOPIC" default:"paylane-notification-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PAYLANE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PAYLANE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PAYLANE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// GuardConfig bounds the financial guard. Amounts are integer minor units.
type GuardConfig struct {
	RefundDailyLimit        int64 `envconfig:"PAYLANE_GUARD_REFUND_DAILY_LIMIT" default:"5000000"`
	PayoutDailyLimit        int64 `envconfig:"PAYLANE_GUARD_PAYOUT_DAILY_LIMIT" default:"20000000"`
	RefundApprovalThreshold int64 `envconfig:"PAYLANE_GUARD_REFUND_APPROVAL_THRESHOLD" default:"1000000"`
}

type PayoutConfig struct {
	SettlementWindow time.Duration `envconfig:"PAYLANE_PAYOUT_SETTLEMENT_WINDOW" default:"24h"`
}

type BreakerConfig struct {
	ErrorThreshold  int           `envconfig:"PAYLANE_BREAKER_ERROR_THRESHOLD" default:"5"`
	RecoveryTimeout time.Duration `envconfig:"PAYLANE_BREAKER_RECOVERY_TIMEOUT" default:"60s"`
}

type ProvidersConfig struct {
	Disabled         []string      `envconfig:"PAYLANE_PROVIDERS_DISABLED"`
	CallTimeout      time.Duration `envconfig:"PAYLANE_PROVIDER_CALL_TIMEOUT" default:"10s"`
	WebhookDedupeTTL time.Duration `envconfig:"PAYLANE_WEBHOOK_DEDUPE_TTL" default:"720h"`

	WebpaySecret      string `envconfig:"PAYLANE_WEBPAY_WEBHOOK_SECRET"`
	MercadoPagoSecret string `envconfig:"PAYLANE_MERCADOPAGO_WEBHOOK_SECRET"`
	FlowSecret        string `envconfig:"PAYLANE_FLOW_WEBHOOK_SECRET"`
}

// IsDisabled reports whether a provider has been switched off by operations.
func (p ProvidersConfig) IsDisabled(provider string) bool {
	for _, candidate := range p.Disabled {
		if strings.EqualFold(strings.TrimSpace(candidate), provider) {
			return true
		}
	}
	return false
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
