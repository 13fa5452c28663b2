package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultAppName         = "CongoPayClearing"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = time.Hour
	defaultKafkaTopic      = "clearing.outcomes"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	envDevelopment         = "development"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Saga limits. Zero values keep the coordinator defaults.
	SagaTimeout         time.Duration
	StepTimeout         time.Duration
	IdempotencyAttempts int
	DebitAttempts       int
	TransferAttempts    int
	CreditAttempts      int
	// RetryBaseDelay, RetryMaxDelay and RetryJitter apply to every step.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RetryJitter    float64

	GatewayMinLatency  time.Duration
	GatewayMaxLatency  time.Duration
	GatewayFailureRate float64

	// KafkaBrokers empty means outcomes are only logged.
	KafkaBrokers []string
	KafkaTopic   string

	MigrateOnStart bool
}

// Load reads a .env file when one exists, then resolves configuration from
// the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("app_name", defaultAppName)
	v.SetDefault("app_env", defaultAppEnv)
	v.SetDefault("port", defaultPort)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("saga_timeout", 30*time.Second)
	v.SetDefault("saga_step_timeout", 10*time.Second)
	v.SetDefault("gateway_min_latency", 2*time.Second)
	v.SetDefault("gateway_max_latency", 5*time.Second)
	v.SetDefault("gateway_failure_rate", 0.05)
	v.SetDefault("kafka_topic", defaultKafkaTopic)
	v.SetDefault("migrate_on_start", false)
	return v
}

// FromViper builds a Config from the keys of v.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppName:             v.GetString("app_name"),
		AppEnv:              strings.ToLower(v.GetString("app_env")),
		Port:                v.GetString("port"),
		LogLevel:            strings.ToLower(v.GetString("log_level")),
		DatabaseURL:         v.GetString("database_url"),
		RedisURL:            v.GetString("redis_url"),
		SagaTimeout:         v.GetDuration("saga_timeout"),
		StepTimeout:         v.GetDuration("saga_step_timeout"),
		IdempotencyAttempts: v.GetInt("saga_idempotency_attempts"),
		DebitAttempts:       v.GetInt("saga_debit_attempts"),
		TransferAttempts:    v.GetInt("saga_transfer_attempts"),
		CreditAttempts:      v.GetInt("saga_credit_attempts"),
		RetryBaseDelay:      v.GetDuration("saga_retry_base_delay"),
		RetryMaxDelay:       v.GetDuration("saga_retry_max_delay"),
		RetryJitter:         v.GetFloat64("saga_retry_jitter"),
		GatewayMinLatency:   v.GetDuration("gateway_min_latency"),
		GatewayMaxLatency:   v.GetDuration("gateway_max_latency"),
		GatewayFailureRate:  v.GetFloat64("gateway_failure_rate"),
		KafkaBrokers:        splitList(v.GetString("kafka_brokers")),
		KafkaTopic:          v.GetString("kafka_topic"),
		MigrateOnStart:      v.GetBool("migrate_on_start"),
	}

	var err error
	if cfg.ShutdownPeriod, err = duration(v, shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = duration(v, idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if !c.Development() {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set")
		}
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("invalid %s: must be positive", idemTTLDurEnvVar)
	}
	if c.GatewayFailureRate < 0 || c.GatewayFailureRate > 1 {
		return fmt.Errorf("invalid GATEWAY_FAILURE_RATE: %v is outside [0, 1]", c.GatewayFailureRate)
	}
	if c.GatewayMaxLatency < c.GatewayMinLatency {
		return fmt.Errorf("invalid GATEWAY_MAX_LATENCY: below GATEWAY_MIN_LATENCY")
	}
	if c.IdempotencyAttempts < 0 || c.DebitAttempts < 0 || c.TransferAttempts < 0 || c.CreditAttempts < 0 {
		return fmt.Errorf("saga attempt counts must not be negative")
	}
	if c.RetryBaseDelay < 0 || c.RetryMaxDelay < 0 {
		return fmt.Errorf("saga retry delays must not be negative")
	}
	if c.RetryBaseDelay > 0 && c.RetryMaxDelay > 0 && c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("invalid SAGA_RETRY_MAX_DELAY: below SAGA_RETRY_BASE_DELAY")
	}
	if c.RetryJitter < 0 || c.RetryJitter > 1 {
		return fmt.Errorf("invalid SAGA_RETRY_JITTER: %v is outside [0, 1]", c.RetryJitter)
	}
	return nil
}

// Development reports whether in-memory fallbacks may replace Postgres and Redis.
func (c Config) Development() bool {
	return c.AppEnv == envDevelopment
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// duration resolves a whole-seconds variable first, then a Go duration string.
func duration(v *viper.Viper, secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if raw := strings.TrimSpace(v.GetString(secondsKey)); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if raw := strings.TrimSpace(v.GetString(durationKey)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
