package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	SenderTwilio = "twilio"
	SenderStdout = "stdout"
)

// Config holds all application configuration.
type Config struct {
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	IngestServerAddr string `env:"INGEST_SERVER_ADDR" envDefault:":5000"`
	AdminServerAddr  string `env:"ADMIN_SERVER_ADDR" envDefault:":9091"`
	MaxBodyBytes     int64  `env:"MAX_BODY_BYTES" envDefault:"1048576"` // 1MB

	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"sent_log.db"`
	PostgresURL string `env:"POSTGRES_URL"`

	RedisAddr string        `env:"REDIS_ADDR"` // optional, enables distributed key locks
	LockTTL   time.Duration `env:"LOCK_TTL" envDefault:"2m"` // must outlive SendTimeout

	Sender             string        `env:"SENDER" envDefault:"twilio"`
	TwilioAccountSID   string        `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken    string        `env:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppFrom string        `env:"TWILIO_WHATSAPP_FROM"`
	TwilioBaseURL      string        `env:"TWILIO_BASE_URL" envDefault:"https://api.twilio.com/2010-04-01"`
	SendTimeout        time.Duration `env:"SEND_TIMEOUT" envDefault:"30s"`

	CountryCode    string  `env:"COUNTRY_CODE" envDefault:"+20"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"0"` // 0 disables the limiter
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// PIIRedactionFields are masked in debug payload logs.
	PIIRedactionFields []string `env:"PII_REDACTION_FIELDS" envSeparator:"," envDefault:"attributeNumber7"`
}

// Load reads configuration from environment variables and validates it for the
// notifier service.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse reads configuration from environment variables without validating it.
// Tools that only need a subset of the settings check what they use themselves.
func Parse() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected drivers have what they need.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.StoreDriver) {
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	case StorePostgres:
		if strings.TrimSpace(c.PostgresURL) == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver))
	}

	switch strings.ToLower(c.Sender) {
	case SenderTwilio:
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioWhatsAppFrom == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_FROM are required for the twilio sender"))
		}
	case SenderStdout:
	default:
		errs = append(errs, fmt.Errorf("unsupported SENDER %q", c.Sender))
	}

	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	if c.SendTimeout <= 0 {
		errs = append(errs, errors.New("SEND_TIMEOUT must be positive"))
	}
	if c.RedisAddr != "" && c.LockTTL <= c.SendTimeout {
		errs = append(errs, fmt.Errorf("LOCK_TTL (%s) must be longer than SEND_TIMEOUT (%s) when REDIS_ADDR is set", c.LockTTL, c.SendTimeout))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must not be negative"))
	}

	return errors.Join(errs...)
}
