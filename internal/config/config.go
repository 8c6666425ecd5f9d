package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	SinkLog   = "log"
	SinkRedis = "redis"
	SinkAMQP  = "amqp"
)

type Config struct {
	Env      string `envconfig:"APP_ENV" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	// StoreDSN selects the backing store: memory://<name> or postgres://...
	StoreDSN string `envconfig:"STORE_DSN" default:"memory://bookmd"`
	// RedisURL is optional; without it locks and idempotency keys stay in process.
	RedisURL string `envconfig:"REDIS_URL"`

	EventSinks        []string `envconfig:"EVENT_SINKS" default:"log"`
	RedisEventChannel string   `envconfig:"REDIS_EVENT_CHANNEL" default:"bookmd:events"`
	AMQPURL           string   `envconfig:"AMQP_URL"`
	AMQPExchange      string   `envconfig:"AMQP_EXCHANGE" default:"bookmd.events"`

	SlotDuration    time.Duration `envconfig:"SLOT_DURATION" default:"30m"`
	LockTTL         time.Duration `envconfig:"LOCK_TTL" default:"5s"`
	IdempotencyTTL  time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	RelayInterval  time.Duration `envconfig:"RELAY_INTERVAL" default:"30s"`
	RelayBatchSize int           `envconfig:"RELAY_BATCH_SIZE" default:"100"`
	RelayMinAge    time.Duration `envconfig:"RELAY_MIN_AGE" default:"10s"`

	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"100"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	for i, s := range cfg.EventSinks {
		cfg.EventSinks[i] = strings.ToLower(strings.TrimSpace(s))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if _, err := c.StoreKind(); err != nil {
		errs = append(errs, err)
	}
	for _, s := range c.EventSinks {
		switch s {
		case SinkLog:
		case SinkRedis:
			if c.RedisURL == "" {
				errs = append(errs, errors.New("EVENT_SINKS=redis requires REDIS_URL"))
			}
		case SinkAMQP:
			if c.AMQPURL == "" {
				errs = append(errs, errors.New("EVENT_SINKS=amqp requires AMQP_URL"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown event sink %q", s))
		}
	}
	if c.SlotDuration <= 0 {
		errs = append(errs, errors.New("SLOT_DURATION must be positive"))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, errors.New("LOCK_TTL must be positive"))
	}
	if c.RelayBatchSize <= 0 {
		errs = append(errs, errors.New("RELAY_BATCH_SIZE must be positive"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	return errors.Join(errs...)
}

// StoreKind returns StoreMemory or StorePostgres for the configured DSN.
func (c Config) StoreKind() (string, error) {
	u, err := url.Parse(c.StoreDSN)
	if err != nil {
		return "", fmt.Errorf("invalid STORE_DSN: %w", err)
	}
	switch u.Scheme {
	case "memory":
		return StoreMemory, nil
	case "postgres", "postgresql":
		return StorePostgres, nil
	}
	return "", fmt.Errorf("unsupported STORE_DSN scheme %q", u.Scheme)
}

// StoreName is the database name of the DSN, used for logs.
func (c Config) StoreName() string {
	u, err := url.Parse(c.StoreDSN)
	if err != nil {
		return ""
	}
	if u.Scheme == "memory" {
		return u.Host
	}
	return strings.TrimPrefix(u.Path, "/")
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EventSinks {
		if s == name {
			return true
		}
	}
	return false
}
